package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cairnstack/ontograph/cmd/ontograph/commands"
	"github.com/cairnstack/ontograph/config"
	"github.com/cairnstack/ontograph/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ontograph",
	Short: "Typed knowledge-graph question answering",
	Long: `ontograph answers typed questions against a directed, weighted
knowledge graph.

Available commands:
  ask    - Answer a question against the graph
  ingest - Load entities and relationships from CSV files
  seed   - Apply a TOML graph fixture
  health - Probe the storage backend

Examples:
  ontograph ask "is a dog an animal?"
  ontograph ask --type SubclassOf --subject dog --object animal
  ontograph ingest --relationships edges.csv --entities nodes.csv
  ontograph seed fixtures/animals.toml
  ontograph health`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Initialize(cfg.Log.JSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.AskCmd)
	rootCmd.AddCommand(commands.IngestCmd)
	rootCmd.AddCommand(commands.SeedCmd)
	rootCmd.AddCommand(commands.HealthCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
