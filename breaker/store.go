package breaker

import (
	"context"

	"github.com/cairnstack/ontograph/metrics"
	"github.com/cairnstack/ontograph/ontology"
	"github.com/cairnstack/ontograph/storage"
)

// GuardedStore decorates a storage.Store so that every read and write passes
// through one shared Breaker. Composition is explicit: construct the inner
// store, wrap it here, and hand the wrapper to the query engine and the
// ingestion pipeline.
type GuardedStore struct {
	inner   storage.Store
	breaker *Breaker
}

// Guard wraps a store with a new breaker.
func Guard(inner storage.Store, cfg Config, sink metrics.Sink) *GuardedStore {
	return &GuardedStore{inner: inner, breaker: New(cfg, sink)}
}

// GuardWith wraps a store with an existing breaker, letting several stores
// share one failure budget.
func GuardWith(inner storage.Store, b *Breaker) *GuardedStore {
	return &GuardedStore{inner: inner, breaker: b}
}

// Breaker exposes the underlying breaker for state inspection.
func (g *GuardedStore) Breaker() *Breaker { return g.breaker }

func (g *GuardedStore) GetEntity(ctx context.Context, id string) (*ontology.Entity, error) {
	var entity *ontology.Entity
	err := g.breaker.Do("get_entity", func() error {
		var err error
		entity, err = g.inner.GetEntity(ctx, id)
		return err
	})
	return entity, err
}

func (g *GuardedStore) GetRelationshipsByHead(ctx context.Context, headID string, edgeType ontology.EdgeType) ([]ontology.Relationship, error) {
	var rels []ontology.Relationship
	err := g.breaker.Do("get_relationships_by_head", func() error {
		var err error
		rels, err = g.inner.GetRelationshipsByHead(ctx, headID, edgeType)
		return err
	})
	return rels, err
}

func (g *GuardedStore) StoreEntities(ctx context.Context, entities []ontology.Entity) error {
	return g.breaker.Do("store_entities", func() error {
		return g.inner.StoreEntities(ctx, entities)
	})
}

func (g *GuardedStore) StoreRelationships(ctx context.Context, rels []ontology.Relationship) error {
	return g.breaker.Do("store_relationships", func() error {
		return g.inner.StoreRelationships(ctx, rels)
	})
}

func (g *GuardedStore) HealthCheck(ctx context.Context) (storage.Health, error) {
	var health storage.Health
	err := g.breaker.Do("health_check", func() error {
		var err error
		health, err = g.inner.HealthCheck(ctx)
		return err
	})
	if err != nil && health == "" {
		health = storage.Down
	}
	return health, err
}
