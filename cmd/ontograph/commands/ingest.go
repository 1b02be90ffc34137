package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/ingest"
)

var (
	ingestRelationships string
	ingestEntities      string
	ingestChunkSize     int
)

// IngestCmd loads graph data from CSV files through the pipeline.
var IngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load entities and relationships from CSV files",
	Long: `Load graph data through the ingestion pipeline.

Relationship CSVs carry a HEAD_ENTITY,TAIL_ENTITY,EDGE_TYPE,CONFIDENCE
header; entity CSVs carry ID,NAME,METADATA with metadata packed as
key=value pairs separated by semicolons. Malformed rows are skipped and
counted, never fatal.

Examples:
  ontograph ingest --relationships edges.csv
  ontograph ingest --entities nodes.csv --relationships edges.csv`,
	RunE: runIngestCommand,
}

func init() {
	IngestCmd.Flags().StringVar(&ingestRelationships, "relationships", "", "Relationship CSV file")
	IngestCmd.Flags().StringVar(&ingestEntities, "entities", "", "Entity CSV file")
	IngestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 500, "Rows read from CSV per batch")
}

func runIngestCommand(cmd *cobra.Command, args []string) error {
	if ingestRelationships == "" && ingestEntities == "" {
		return errors.NewValidationError("at least one of --relationships or --entities is required")
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	total := ingest.Stats{}
	skipped := 0

	if ingestEntities != "" {
		stats, n, err := ingestFile(cmd, rt, ingestEntities, true)
		if err != nil {
			return err
		}
		total = addStats(total, stats)
		skipped += n
	}
	if ingestRelationships != "" {
		stats, n, err := ingestFile(cmd, rt, ingestRelationships, false)
		if err != nil {
			return err
		}
		total = addStats(total, stats)
		skipped += n
	}

	fmt.Printf("accepted %d, rejected %d, skipped %d rows; committed %d batches (%d entities, %d relationships)\n",
		total.Accepted, total.Rejected, skipped, total.Batches, total.Entities, total.Relationships)
	return nil
}

func ingestFile(cmd *cobra.Command, rt *runtime, path string, entity bool) (ingest.Stats, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.Stats{}, 0, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	var src *ingest.CSVSource
	if entity {
		src = ingest.NewEntityCSVSource(f, ingestChunkSize)
	} else {
		src = ingest.NewRelationshipCSVSource(f, ingestChunkSize)
	}

	stats, err := rt.pipeline.Run(cmd.Context(), src)
	if err != nil {
		return stats, src.Skipped(), errors.Wrapf(err, "ingesting %s", path)
	}
	return stats, src.Skipped(), nil
}

func addStats(a, b ingest.Stats) ingest.Stats {
	return ingest.Stats{
		Accepted:      a.Accepted + b.Accepted,
		Rejected:      a.Rejected + b.Rejected,
		Batches:       a.Batches + b.Batches,
		Entities:      a.Entities + b.Entities,
		Relationships: a.Relationships + b.Relationships,
	}
}
