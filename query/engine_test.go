package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/ontology"
	"github.com/cairnstack/ontograph/storage"
)

func seedStore(t *testing.T, rels ...ontology.Relationship) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.StoreRelationships(context.Background(), rels))
	return store
}

func rel(head, tail string, et ontology.EdgeType, conf float64) ontology.Relationship {
	return ontology.Relationship{HeadEntity: head, TailEntity: tail, EdgeType: et, Confidence: conf}
}

func TestSubclassOfTransitivity(t *testing.T) {
	store := seedStore(t,
		rel("dog", "mammal", ontology.SubclassOf, 0.9),
		rel("mammal", "animal", ontology.SubclassOf, 0.8),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "dog", Object: "animal",
	})

	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.InDelta(t, 0.9*0.8, result.Confidence, 1e-12)
	require.Len(t, result.Path, 2)
	assert.Equal(t, "mammal", result.Path[0].TailEntity)
	assert.Equal(t, "animal", result.Path[1].TailEntity)
}

func TestSubclassOfNoReverseEdge(t *testing.T) {
	store := seedStore(t,
		rel("dog", "animal", ontology.SubclassOf, 0.9),
		rel("Fido", "dog", ontology.InstanceOf, 1.0),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "animal", Object: "dog",
	})

	assert.Equal(t, ontology.No, result.Outcome)
	assert.False(t, result.MaxDepthExceeded)
	assert.Empty(t, result.Path)
}

func TestInstanceOfThroughHierarchy(t *testing.T) {
	store := seedStore(t,
		rel("dog", "animal", ontology.SubclassOf, 0.9),
		rel("Fido", "dog", ontology.InstanceOf, 1.0),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.InstanceOf, Subject: "Fido", Object: "animal",
	})

	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.InDelta(t, 0.9, result.Confidence, 1e-12)
	require.Len(t, result.Path, 2)
	assert.Equal(t, ontology.InstanceOf, result.Path[0].EdgeType)
	assert.Equal(t, ontology.SubclassOf, result.Path[1].EdgeType)
}

func TestInstanceOfDirect(t *testing.T) {
	store := seedStore(t, rel("Fido", "dog", ontology.InstanceOf, 1.0))
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.InstanceOf, Subject: "Fido", Object: "dog",
	})

	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Len(t, result.Path, 1)
}

func TestInstanceOfBranchesOnMultipleClasses(t *testing.T) {
	// Fido is both a dog and a pet; only the pet lattice reaches companion.
	store := seedStore(t,
		rel("Fido", "dog", ontology.InstanceOf, 1.0),
		rel("Fido", "pet", ontology.InstanceOf, 0.9),
		rel("pet", "companion", ontology.SubclassOf, 0.7),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.InstanceOf, Subject: "Fido", Object: "companion",
	})

	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.InDelta(t, 0.9*0.7, result.Confidence, 1e-12)
}

func TestInstanceOfDoesNotChainInstanceEdges(t *testing.T) {
	// InstanceOf takes exactly one instance step; dog InstanceOf species
	// must not extend Fido's traversal.
	store := seedStore(t,
		rel("Fido", "dog", ontology.InstanceOf, 1.0),
		rel("dog", "species", ontology.InstanceOf, 1.0),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.InstanceOf, Subject: "Fido", Object: "species",
	})

	assert.Equal(t, ontology.No, result.Outcome)
}

func TestHasAttributeDirect(t *testing.T) {
	store := seedStore(t, rel("university", "educational", ontology.HasAttribute, 1.0))
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.HasAttribute, Subject: "university", Object: "educational",
	})

	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Len(t, result.Path, 1)
}

func TestHasAttributeInherited(t *testing.T) {
	store := seedStore(t,
		rel("university", "educational", ontology.HasAttribute, 1.0),
		rel("college", "university", ontology.SubclassOf, 0.8),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.HasAttribute, Subject: "college", Object: "educational",
	})

	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.InDelta(t, 0.8, result.Confidence, 1e-12)
	require.Len(t, result.Path, 2)
	assert.Equal(t, ontology.SubclassOf, result.Path[0].EdgeType)
	assert.Equal(t, ontology.HasAttribute, result.Path[1].EdgeType)
}

func TestCycleSafety(t *testing.T) {
	store := seedStore(t,
		rel("a", "b", ontology.SubclassOf, 0.9),
		rel("b", "a", ontology.SubclassOf, 0.9),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "a", Object: "z",
	})

	// Must terminate, never hang; no path to z exists.
	assert.Equal(t, ontology.No, result.Outcome)
}

func TestDepthLimiting(t *testing.T) {
	store := seedStore(t,
		rel("a", "b", ontology.SubclassOf, 1.0),
		rel("b", "c", ontology.SubclassOf, 1.0),
		rel("c", "d", ontology.SubclassOf, 1.0),
	)
	engine := New(store, Config{MaxDepth: 2})

	// d is reachable only at depth 3.
	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "a", Object: "d",
	})

	assert.Equal(t, ontology.Unknown, result.Outcome)
	assert.True(t, result.MaxDepthExceeded)
	assert.Equal(t, ontology.ReasonMaxDepth, result.Reason)

	// c is reachable exactly at the bound.
	result = engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "a", Object: "c",
	})
	assert.Equal(t, ontology.Yes, result.Outcome)
}

func TestTraversalStopsAtFirstGoalLevel(t *testing.T) {
	// A direct edge to the goal ends the search at level one; the
	// stronger two-step path is never explored.
	store := seedStore(t,
		rel("a", "goal", ontology.SubclassOf, 0.5),
		rel("a", "mid", ontology.SubclassOf, 0.9),
		rel("mid", "goal", ontology.SubclassOf, 0.9),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "a", Object: "goal",
	})

	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.InDelta(t, 0.5, result.Confidence, 1e-12)
	assert.Len(t, result.Path, 1)
}

func TestBestPathPrefersHigherProductAtSameLevel(t *testing.T) {
	// Two goal paths surface at the same level; the higher product wins.
	store := seedStore(t,
		rel("a", "m1", ontology.SubclassOf, 0.6),
		rel("m1", "goal", ontology.SubclassOf, 0.6),
		rel("a", "m2", ontology.SubclassOf, 0.9),
		rel("m2", "goal", ontology.SubclassOf, 0.9),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "a", Object: "goal",
	})

	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.InDelta(t, 0.81, result.Confidence, 1e-12)
	require.Len(t, result.Path, 2)
	assert.Equal(t, "m2", result.Path[0].TailEntity)
}

func TestBestPathTieBreaksOnLengthThenIDs(t *testing.T) {
	// Two equal-product paths of equal length through different midpoints:
	// the lexicographically smaller entity sequence wins.
	store := seedStore(t,
		rel("a", "m1", ontology.SubclassOf, 0.8),
		rel("m1", "goal", ontology.SubclassOf, 0.9),
		rel("a", "m2", ontology.SubclassOf, 0.9),
		rel("m2", "goal", ontology.SubclassOf, 0.8),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "a", Object: "goal",
	})

	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.InDelta(t, 0.72, result.Confidence, 1e-12)
	require.Len(t, result.Path, 2)
	assert.Equal(t, "m1", result.Path[0].TailEntity)
}

func TestIdentityQuestions(t *testing.T) {
	engine := New(storage.NewMemoryStore(), DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "dog", Object: "dog",
	})
	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.Equal(t, 1.0, result.Confidence)

	result = engine.Answer(context.Background(), ontology.Question{
		Type: ontology.InstanceOf, Subject: "dog", Object: "dog",
	})
	assert.Equal(t, ontology.No, result.Outcome)
}

func TestUnsupportedQuestionType(t *testing.T) {
	engine := New(storage.NewMemoryStore(), DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: "FriendOf", Subject: "a", Object: "b",
	})
	assert.Equal(t, ontology.Unknown, result.Outcome)
	assert.Equal(t, ontology.ReasonUnsupportedType, result.Reason)
}

// erroringStore fails reads with a configurable error.
type erroringStore struct {
	*storage.MemoryStore
	err error
}

func (s *erroringStore) GetRelationshipsByHead(ctx context.Context, headID string, edgeType ontology.EdgeType) ([]ontology.Relationship, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.MemoryStore.GetRelationshipsByHead(ctx, headID, edgeType)
}

func TestBackendFailureYieldsUnknown(t *testing.T) {
	store := &erroringStore{
		MemoryStore: storage.NewMemoryStore(),
		err:         errors.NewTransient(errors.New("i/o timeout"), "read"),
	}
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "dog", Object: "animal",
	})

	assert.Equal(t, ontology.Unknown, result.Outcome)
	assert.Equal(t, ontology.ReasonBackendUnavailable, result.Reason)
	assert.Empty(t, result.Path)
}

func TestBreakerOpenYieldsUnknownWithReason(t *testing.T) {
	store := &erroringStore{
		MemoryStore: storage.NewMemoryStore(),
		err:         errors.Wrap(errors.ErrBreakerOpen, "get_relationships_by_head"),
	}
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "dog", Object: "animal",
	})

	assert.Equal(t, ontology.Unknown, result.Outcome)
	assert.Equal(t, ontology.ReasonBreakerOpen, result.Reason)
}

func TestCancellationYieldsUnknown(t *testing.T) {
	store := seedStore(t, rel("dog", "animal", ontology.SubclassOf, 0.9))
	engine := New(store, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Answer(ctx, ontology.Question{
		Type: ontology.SubclassOf, Subject: "dog", Object: "animal",
	})

	assert.Equal(t, ontology.Unknown, result.Outcome)
	assert.Equal(t, ontology.ReasonCancelled, result.Reason)
}

// parallelEdgeStore returns duplicate (head, tail, type) edges with
// different confidence, bypassing storage-level dedup.
type parallelEdgeStore struct {
	*storage.MemoryStore
}

func (s *parallelEdgeStore) GetRelationshipsByHead(ctx context.Context, headID string, edgeType ontology.EdgeType) ([]ontology.Relationship, error) {
	if headID != "dog" {
		return nil, nil
	}
	return []ontology.Relationship{
		rel("dog", "animal", ontology.SubclassOf, 0.3),
		rel("dog", "animal", ontology.SubclassOf, 0.9),
	}, nil
}

func TestParallelEdgesHighestConfidenceWins(t *testing.T) {
	engine := New(&parallelEdgeStore{storage.NewMemoryStore()}, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "dog", Object: "animal",
	})

	assert.Equal(t, ontology.Yes, result.Outcome)
	assert.InDelta(t, 0.9, result.Confidence, 1e-12)
}

func TestEntitiesVisitedCounted(t *testing.T) {
	store := seedStore(t,
		rel("a", "b", ontology.SubclassOf, 1.0),
		rel("b", "c", ontology.SubclassOf, 1.0),
	)
	engine := New(store, DefaultConfig())

	result := engine.Answer(context.Background(), ontology.Question{
		Type: ontology.SubclassOf, Subject: "a", Object: "z",
	})

	assert.Equal(t, ontology.No, result.Outcome)
	// a, b, c all had their edges fetched.
	assert.Equal(t, 3, result.EntitiesVisited)
}
