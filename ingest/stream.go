package ingest

import (
	"context"
	"io"
	"sync"
)

// StreamSource adapts an open-ended in-process record stream to a Source.
// Producers push with Submit against a bounded buffer, so a slow pipeline
// exerts backpressure on them; Close marks the end of the stream.
type StreamSource struct {
	ch        chan Record
	chunkSize int
	closeOnce sync.Once
}

// NewStreamSource returns a StreamSource with the given buffer depth.
func NewStreamSource(buffer, chunkSize int) *StreamSource {
	if buffer <= 0 {
		buffer = 64
	}
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &StreamSource{ch: make(chan Record, buffer), chunkSize: chunkSize}
}

// Submit pushes one record, blocking while the buffer is full. Submitting
// after Close panics, as sends on a closed channel do.
func (s *StreamSource) Submit(ctx context.Context, rec Record) error {
	select {
	case s.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream. Records already buffered are still delivered.
func (s *StreamSource) Close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// Next blocks for at least one record, then drains whatever else is already
// buffered up to the chunk size so the pipeline sees real batches instead of
// single records.
func (s *StreamSource) Next(ctx context.Context) ([]Record, error) {
	var first Record
	select {
	case rec, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		first = rec
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	records := append(make([]Record, 0, s.chunkSize), first)
	for len(records) < s.chunkSize {
		select {
		case rec, ok := <-s.ch:
			if !ok {
				return records, nil
			}
			records = append(records, rec)
		default:
			return records, nil
		}
	}
	return records, nil
}
