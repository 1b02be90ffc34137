// Package query implements the graph query engine: typed breadth-first
// traversal over the storage port, cycle-safe, depth-bounded, and
// confidence-scored.
//
// The engine is read-only and deterministic for a fixed graph snapshot. It
// never returns a raw error to the caller: storage faults, breaker
// rejections, depth exhaustion, and cancellation all resolve to a
// well-formed UNKNOWN result with a reason code.
package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/logger"
	"github.com/cairnstack/ontograph/ontology"
	"github.com/cairnstack/ontograph/storage"
)

// Config tunes the engine.
type Config struct {
	// MaxDepth bounds BFS depth. A true answer deeper than MaxDepth yields
	// UNKNOWN with max_depth_exceeded, never NO.
	MaxDepth int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxDepth: 10}
}

// Engine answers typed questions by BFS traversal through a (typically
// breaker-guarded) storage port.
type Engine struct {
	store storage.Store
	cfg   Config
	log   *zap.SugaredLogger
}

// New creates an engine over the given store.
func New(store storage.Store, cfg Config) *Engine {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	return &Engine{store: store, cfg: cfg, log: logger.Logger.Named("query")}
}

// candidate is a scored path from the subject to some entity.
type candidate struct {
	path    []ontology.Relationship
	product float64
}

// extend returns a new candidate with edge appended. The path slice is
// copied so siblings never share backing arrays.
func (c candidate) extend(edge ontology.Relationship) candidate {
	path := make([]ontology.Relationship, len(c.path), len(c.path)+1)
	copy(path, c.path)
	return candidate{path: append(path, edge), product: c.product * edge.Confidence}
}

// entitySequence is the ordered entity ids a candidate walks through,
// starting at the subject. Used for deterministic tie-breaking.
func (c candidate) entitySequence(subject string) []string {
	seq := make([]string, 0, len(c.path)+1)
	seq = append(seq, subject)
	for _, edge := range c.path {
		seq = append(seq, edge.TailEntity)
	}
	return seq
}

// better reports whether a beats b under the tie-break rules: higher
// confidence product, then shorter path, then lexicographically smaller
// entity-id sequence.
func better(a, b candidate, subject string) bool {
	if a.product != b.product {
		return a.product > b.product
	}
	if len(a.path) != len(b.path) {
		return len(a.path) < len(b.path)
	}
	aSeq, bSeq := a.entitySequence(subject), b.entitySequence(subject)
	for i := range aSeq {
		if aSeq[i] != bSeq[i] {
			return aSeq[i] < bSeq[i]
		}
	}
	return false
}

// Answer resolves a question to a QueryResult. It never mutates state and
// never panics or errors on a sound-but-negative answer.
func (e *Engine) Answer(ctx context.Context, q ontology.Question) ontology.QueryResult {
	start := time.Now()
	result := e.answer(ctx, q)
	result.Elapsed = time.Since(start)

	e.log.Debugw("Question answered",
		logger.FieldQuestion, string(q.Type),
		logger.FieldSubject, q.Subject,
		logger.FieldObject, q.Object,
		logger.FieldOutcome, string(result.Outcome),
		logger.FieldVisited, result.EntitiesVisited,
		logger.FieldDurationMS, result.Elapsed.Milliseconds(),
	)
	return result
}

func (e *Engine) answer(ctx context.Context, q ontology.Question) ontology.QueryResult {
	subject := strings.TrimSpace(q.Subject)
	object := strings.TrimSpace(q.Object)

	switch q.Type {
	case ontology.SubclassOf, ontology.InstanceOf, ontology.HasAttribute:
	default:
		return ontology.QueryResult{Outcome: ontology.Unknown, Reason: ontology.ReasonUnsupportedType}
	}

	// Identity questions short-circuit: every class is a subclass of
	// itself, nothing is an instance of itself.
	if subject == object {
		switch q.Type {
		case ontology.SubclassOf:
			return ontology.QueryResult{Outcome: ontology.Yes, Confidence: 1.0}
		case ontology.InstanceOf:
			return ontology.QueryResult{Outcome: ontology.No}
		}
	}

	visited := map[string]bool{subject: true}
	frontier := []string{subject}
	paths := map[string]candidate{subject: {product: 1.0}}
	entitiesVisited := 0

	for depth := 1; depth <= e.cfg.MaxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return unknownFor(err, entitiesVisited)
		}

		var goals []candidate
		next := make(map[string]candidate)

		// Frontier order is part of the determinism contract.
		sort.Strings(frontier)

		for _, id := range frontier {
			edges, err := e.fetch(ctx, id, q.Type, depth)
			if err != nil {
				// Partial frontier progress is discarded: a backend
				// fault must not masquerade as NO.
				return unknownFor(err, entitiesVisited)
			}
			entitiesVisited++

			sortEdges(edges)
			from := paths[id]

			for _, edge := range edges {
				cand := from.extend(edge)

				if isGoal(q.Type, edge, object) {
					goals = append(goals, cand)
					continue
				}
				if !expands(q.Type, edge) {
					continue
				}
				tail := edge.TailEntity
				if visited[tail] {
					continue
				}
				if existing, ok := next[tail]; !ok || better(cand, existing, subject) {
					next[tail] = cand
				}
			}
		}

		if len(goals) > 0 {
			best := goals[0]
			for _, g := range goals[1:] {
				if better(g, best, subject) {
					best = g
				}
			}
			return ontology.QueryResult{
				Outcome:         ontology.Yes,
				Confidence:      best.product,
				Path:            best.path,
				EntitiesVisited: entitiesVisited,
			}
		}

		frontier = frontier[:0]
		for tail, cand := range next {
			visited[tail] = true
			paths[tail] = cand
			frontier = append(frontier, tail)
		}
	}

	if len(frontier) > 0 {
		// Reachable work remains beyond the depth bound: the search space
		// was not exhausted, so the honest answer is UNKNOWN.
		return ontology.QueryResult{
			Outcome:          ontology.Unknown,
			EntitiesVisited:  entitiesVisited,
			MaxDepthExceeded: true,
			Reason:           ontology.ReasonMaxDepth,
		}
	}

	return ontology.QueryResult{Outcome: ontology.No, EntitiesVisited: entitiesVisited}
}

// fetch pulls the outgoing edges relevant at this depth for the question
// type. InstanceOf questions take exactly one InstanceOf step and continue
// over SubclassOf; HasAttribute questions need both the goal edges and the
// SubclassOf lattice, so they fetch untyped.
func (e *Engine) fetch(ctx context.Context, id string, qt ontology.QuestionType, depth int) ([]ontology.Relationship, error) {
	switch qt {
	case ontology.SubclassOf:
		return e.store.GetRelationshipsByHead(ctx, id, ontology.SubclassOf)
	case ontology.InstanceOf:
		if depth == 1 {
			return e.store.GetRelationshipsByHead(ctx, id, ontology.InstanceOf)
		}
		return e.store.GetRelationshipsByHead(ctx, id, ontology.SubclassOf)
	default: // HasAttribute
		return e.store.GetRelationshipsByHead(ctx, id, "")
	}
}

// isGoal reports whether edge completes the question against object.
func isGoal(qt ontology.QuestionType, edge ontology.Relationship, object string) bool {
	switch qt {
	case ontology.HasAttribute:
		return edge.EdgeType == ontology.HasAttribute && edge.TailEntity == object
	default:
		return edge.TailEntity == object
	}
}

// expands reports whether edge contributes to the next frontier.
func expands(qt ontology.QuestionType, edge ontology.Relationship) bool {
	switch qt {
	case ontology.HasAttribute:
		return edge.EdgeType == ontology.SubclassOf
	default:
		return true
	}
}

// sortEdges orders edges by tail id, then confidence descending, so
// expansion is deterministic regardless of storage iteration order.
func sortEdges(edges []ontology.Relationship) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].TailEntity != edges[j].TailEntity {
			return edges[i].TailEntity < edges[j].TailEntity
		}
		return edges[i].Confidence > edges[j].Confidence
	})
}

// unknownFor maps a traversal-aborting error to an UNKNOWN result with a
// distinguishable reason code.
func unknownFor(err error, visited int) ontology.QueryResult {
	reason := ontology.ReasonBackendUnavailable
	switch {
	case errors.IsBreakerOpen(err):
		reason = ontology.ReasonBreakerOpen
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = ontology.ReasonCancelled
	}
	return ontology.QueryResult{
		Outcome:         ontology.Unknown,
		EntitiesVisited: visited,
		Reason:          reason,
	}
}
