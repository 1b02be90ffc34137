// Package ingest implements the write path of the knowledge graph: a
// concurrent pipeline that consumes lazy batches of raw records from a
// Source, validates and deduplicates them, flushes size- or time-bounded
// batches through the storage port, and invalidates the result cache after
// every committed batch.
//
// Sources frame the input (CSV files, in-process streams); the pipeline is
// indifferent to framing and only sees raw records. One malformed record is
// skipped and counted, never fatal to its batch; a failed storage write is
// fatal and surfaces to the caller.
package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/ontology"
)

// EntityRecord is a raw entity row before validation.
type EntityRecord struct {
	ID       string
	Name     string
	Metadata map[string]string
}

// RelationshipRecord is a raw relationship row before validation. EdgeType
// and Confidence stay textual until validation so that sources never have
// to reject anything themselves.
type RelationshipRecord struct {
	HeadEntity string
	TailEntity string
	EdgeType   string
	Confidence string
}

// Record is one raw ingestion record, exactly one of the two kinds.
type Record struct {
	Entity       *EntityRecord
	Relationship *RelationshipRecord
}

func (r Record) validateEntity(now time.Time) (ontology.Entity, error) {
	e := ontology.Entity{
		ID:        strings.TrimSpace(r.Entity.ID),
		Name:      strings.TrimSpace(r.Entity.Name),
		CreatedAt: now,
		Metadata:  r.Entity.Metadata,
	}
	if err := e.Validate(); err != nil {
		return ontology.Entity{}, err
	}
	return e, nil
}

func (r Record) validateRelationship() (ontology.Relationship, error) {
	raw := r.Relationship
	et, err := ontology.ParseEdgeType(raw.EdgeType)
	if err != nil {
		return ontology.Relationship{}, err
	}
	conf, err := strconv.ParseFloat(strings.TrimSpace(raw.Confidence), 64)
	if err != nil {
		return ontology.Relationship{}, errors.NewValidationError("confidence %q is not a number", raw.Confidence)
	}
	rel := ontology.Relationship{
		HeadEntity: strings.TrimSpace(raw.HeadEntity),
		TailEntity: strings.TrimSpace(raw.TailEntity),
		EdgeType:   et,
		Confidence: conf,
	}
	if err := rel.Validate(); err != nil {
		return ontology.Relationship{}, err
	}
	return rel, nil
}
