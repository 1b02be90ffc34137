package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cairnstack/ontograph/storage"
)

// SeedCmd applies a TOML graph fixture to the configured backend.
var SeedCmd = &cobra.Command{
	Use:   "seed FILE",
	Short: "Apply a TOML graph fixture",
	Long: `Apply a TOML fixture of entities and relationships.

Fixture format:

  [[entities]]
  id = "dog"
  name = "Dog"

  [[relationships]]
  head = "dog"
  tail = "animal"
  edge_type = "SubclassOf"
  confidence = 0.9`,
	Args: cobra.ExactArgs(1),
	RunE: runSeedCommand,
}

func runSeedCommand(cmd *cobra.Command, args []string) error {
	seed, err := storage.LoadSeed(args[0])
	if err != nil {
		return err
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := seed.Apply(cmd.Context(), rt.store); err != nil {
		return err
	}
	rt.cache.InvalidateAll()

	fmt.Printf("applied %d entities and %d relationships from %s\n",
		len(seed.Entities), len(seed.Relationships), args[0])
	return nil
}
