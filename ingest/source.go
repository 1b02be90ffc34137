package ingest

import (
	"context"
	"io"
)

// Source produces raw records in lazy batches. Next blocks until a batch is
// available, the source is exhausted (io.EOF), or the context is cancelled.
// Batch sizing is a source concern; the pipeline re-batches for storage.
type Source interface {
	Next(ctx context.Context) ([]Record, error)
}

// SliceSource serves a fixed set of records as a single batch. Useful for
// tests and for small programmatic loads.
type SliceSource struct {
	records []Record
	served  bool
}

// NewSliceSource returns a Source over the given records.
func NewSliceSource(records []Record) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) Next(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.served {
		return nil, io.EOF
	}
	s.served = true
	return s.records, nil
}
