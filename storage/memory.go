package storage

import (
	"context"
	"sync"
	"time"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/ontology"
)

// MemoryStore is an in-memory storage adapter for tests and development.
// Safe for concurrent use. Loss on restart is by contract acceptable only
// outside production.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[string]ontology.Entity
	// edges indexed by head id, then dedup key, so upserts overwrite and
	// by-head scans are a single map read.
	edges map[string]map[string]ontology.Relationship
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities: make(map[string]ontology.Entity),
		edges:    make(map[string]map[string]ontology.Relationship),
	}
}

func (m *MemoryStore) GetEntity(ctx context.Context, id string) (*ontology.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTransient(err, "get entity")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "entity %q", id)
	}
	out := e
	return &out, nil
}

func (m *MemoryStore) GetRelationshipsByHead(ctx context.Context, headID string, edgeType ontology.EdgeType) ([]ontology.Relationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTransient(err, "get relationships by head")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rels []ontology.Relationship
	for _, r := range m.edges[headID] {
		if edgeType != "" && r.EdgeType != edgeType {
			continue
		}
		rels = append(rels, r)
	}
	return rels, nil
}

func (m *MemoryStore) StoreEntities(ctx context.Context, entities []ontology.Entity) error {
	if err := ctx.Err(); err != nil {
		return errors.NewTransient(err, "store entities")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entities {
		if err := e.Validate(); err != nil {
			return err
		}
		if existing, ok := m.entities[e.ID]; ok {
			existing.Metadata = ontology.MergeMetadata(existing.Metadata, e.Metadata)
			m.entities[e.ID] = existing
			continue
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		m.entities[e.ID] = e
	}
	return nil
}

func (m *MemoryStore) StoreRelationships(ctx context.Context, rels []ontology.Relationship) error {
	if err := ctx.Err(); err != nil {
		return errors.NewTransient(err, "store relationships")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rels {
		if err := r.Validate(); err != nil {
			return err
		}
		byHead, ok := m.edges[r.HeadEntity]
		if !ok {
			byHead = make(map[string]ontology.Relationship)
			m.edges[r.HeadEntity] = byHead
		}
		byHead[r.DedupKey()] = r
	}
	return nil
}

func (m *MemoryStore) HealthCheck(ctx context.Context) (Health, error) {
	if err := ctx.Err(); err != nil {
		return Down, errors.NewTransient(err, "health check")
	}
	return Healthy, nil
}

// EntityCount reports how many entities are stored. Test introspection.
func (m *MemoryStore) EntityCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// RelationshipCount reports how many distinct edges are stored.
func (m *MemoryStore) RelationshipCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, byHead := range m.edges {
		n += len(byHead)
	}
	return n
}
