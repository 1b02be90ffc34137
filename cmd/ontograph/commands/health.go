package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HealthCmd probes the configured storage backend.
var HealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the storage backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		health, err := rt.store.HealthCheck(cmd.Context())
		if err != nil {
			fmt.Printf("backend: %s (%v)\n", health, err)
			return nil
		}
		fmt.Printf("backend: %s\n", health)
		return nil
	},
}
