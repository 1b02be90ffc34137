// Package storage provides the storage port for the ontograph knowledge
// graph and its concrete adapters: SQLite (durable, default), Badger
// (embedded KV), and an in-memory store for tests and development.
//
// All adapters share the same contract: absence is reported with
// errors.ErrNotFound (or an empty slice for edge scans), backend faults are
// classified transient or permanent so the circuit breaker can tell a
// degrading backend from a schema bug, and upserts are idempotent per dedup
// key so ingestion workers can commit batches in any order.
package storage

import (
	"context"

	"github.com/cairnstack/ontograph/ontology"
)

// Health is the tri-state result of a backend health check.
type Health string

const (
	Healthy  Health = "healthy"
	Degraded Health = "degraded"
	Down     Health = "down"
)

// Store is the storage port consumed by the query engine (reads) and the
// ingestion pipeline (writes). Every call is context-aware: implementations
// honor cancellation at their I/O boundaries.
type Store interface {
	// GetEntity fetches an entity by id. Returns errors.ErrNotFound when
	// the entity does not exist.
	GetEntity(ctx context.Context, id string) (*ontology.Entity, error)

	// GetRelationshipsByHead returns the outgoing edges of an entity,
	// optionally filtered by edge type (empty edgeType means all types).
	// A head with no edges yields an empty slice, not an error.
	GetRelationshipsByHead(ctx context.Context, headID string, edgeType ontology.EdgeType) ([]ontology.Relationship, error)

	// StoreEntities upserts a batch of entities. Re-ingesting an existing
	// id merges metadata last-write-wins per key; other fields keep their
	// first-stored values.
	StoreEntities(ctx context.Context, entities []ontology.Entity) error

	// StoreRelationships upserts a batch of relationships keyed by
	// (head, tail, edge_type); confidence is overwritten on conflict.
	StoreRelationships(ctx context.Context, rels []ontology.Relationship) error

	// HealthCheck probes the backend.
	HealthCheck(ctx context.Context) (Health, error)
}
