// Package ontology defines the data model for the ontograph knowledge graph:
// entities, typed weighted relationships, questions, and query results.
//
// The graph is directed. Edges carry a confidence weight in [0,1] that the
// query engine combines multiplicatively along a path. Parallel edges with
// the same (head, tail, type) but different confidence are legal; the engine
// tolerates them and ingestion deduplicates within a batch only.
package ontology

import (
	"math"
	"strings"
	"time"

	"github.com/cairnstack/ontograph/errors"
)

// EdgeType is the type of a directed relationship between two entities.
type EdgeType string

const (
	// SubclassOf links a class to its superclass (dog -> animal).
	SubclassOf EdgeType = "SubclassOf"
	// InstanceOf links an individual to its immediate class (Fido -> dog).
	InstanceOf EdgeType = "InstanceOf"
	// HasAttribute links an entity to an attribute it carries.
	HasAttribute EdgeType = "HasAttribute"
)

// EdgeTypes lists all known edge types in canonical order.
var EdgeTypes = []EdgeType{SubclassOf, InstanceOf, HasAttribute}

// ParseEdgeType parses a string into an EdgeType, tolerating case and
// surrounding whitespace. Returns a validation error for unknown values.
func ParseEdgeType(s string) (EdgeType, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, et := range EdgeTypes {
		if strings.ToLower(string(et)) == normalized {
			return et, nil
		}
	}
	return "", errors.NewValidationError("unknown edge type %q", s)
}

// Entity is a node in the knowledge graph. Entities are immutable once
// stored except for metadata, which merges on re-ingest of the same id
// (last-write-wins per key).
type Entity struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Validate checks an entity for storability.
func (e Entity) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.NewValidationError("entity id is empty")
	}
	return nil
}

// Relationship is a directed, typed, weighted edge between two entities.
type Relationship struct {
	HeadEntity string   `json:"head_entity"`
	TailEntity string   `json:"tail_entity"`
	EdgeType   EdgeType `json:"edge_type"`
	Confidence float64  `json:"confidence"`
}

// DedupKey is the identity of a relationship for upsert and batch
// deduplication purposes. Confidence is deliberately excluded: two records
// with the same key and different confidence are the same edge, last wins.
func (r Relationship) DedupKey() string {
	return r.HeadEntity + "\x1f" + r.TailEntity + "\x1f" + string(r.EdgeType)
}

// Validate checks a relationship for storability.
func (r Relationship) Validate() error {
	if strings.TrimSpace(r.HeadEntity) == "" || strings.TrimSpace(r.TailEntity) == "" {
		return errors.NewValidationError("relationship endpoints must be non-empty")
	}
	if _, err := ParseEdgeType(string(r.EdgeType)); err != nil {
		return err
	}
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		return errors.NewValidationError("confidence %v outside [0,1]", r.Confidence)
	}
	return nil
}

// MergeMetadata merges incoming metadata into an existing entity's metadata,
// last-write-wins on conflicting keys. Returns the merged map; the receiver
// maps are not mutated.
func MergeMetadata(existing, incoming map[string]string) map[string]string {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}
	merged := make(map[string]string, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}
