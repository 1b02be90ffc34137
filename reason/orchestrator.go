// Package reason coordinates the read path: cache consult, subject
// existence check, query engine, metrics, cache store. The orchestrator
// holds no traversal logic of its own.
package reason

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cairnstack/ontograph/cache"
	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/logger"
	"github.com/cairnstack/ontograph/metrics"
	"github.com/cairnstack/ontograph/ontology"
	"github.com/cairnstack/ontograph/query"
	"github.com/cairnstack/ontograph/storage"
)

// Orchestrator answers questions through the cache and the query engine.
// Construction order matters to callers: open the store, guard it with the
// breaker, then hand the guarded store to both the engine and the
// orchestrator so every storage touch shares one breaker.
type Orchestrator struct {
	store  storage.Store
	engine *query.Engine
	cache  *cache.ResultCache
	sink   metrics.Sink
	log    *zap.SugaredLogger
}

// New builds an Orchestrator. cache may be nil to disable caching; sink may
// be nil.
func New(store storage.Store, engine *query.Engine, resultCache *cache.ResultCache, sink metrics.Sink) *Orchestrator {
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &Orchestrator{
		store:  store,
		engine: engine,
		cache:  resultCache,
		sink:   sink,
		log:    logger.Logger.With(logger.FieldComponent, "reason"),
	}
}

// Answer resolves a question: cache hit short-circuits, otherwise the
// subject is checked for existence and the engine runs. The result is always
// well-formed; storage trouble yields UNKNOWN with a reason code.
func (o *Orchestrator) Answer(ctx context.Context, q ontology.Question) ontology.QueryResult {
	requestID := uuid.NewString()
	start := time.Now()

	if o.cache != nil {
		if result, ok := o.cache.Get(q); ok {
			result.CacheHit = true
			result.Elapsed = time.Since(start)
			o.record(requestID, q, result)
			return result
		}
	}

	result := o.resolve(ctx, q)
	result.CacheHit = false
	result.Elapsed = time.Since(start)

	if o.cache != nil && cacheable(result) {
		o.cache.Put(q, result)
	}
	o.record(requestID, q, result)
	return result
}

func (o *Orchestrator) resolve(ctx context.Context, q ontology.Question) ontology.QueryResult {
	known, err := o.subjectKnown(ctx, strings.TrimSpace(q.Subject))
	if err != nil {
		return ontology.QueryResult{
			Outcome: ontology.Unknown,
			Reason:  unavailableReason(err),
		}
	}
	if !known {
		return ontology.QueryResult{
			Outcome: ontology.Unknown,
			Reason:  ontology.ReasonSubjectNotFound,
		}
	}
	return o.engine.Answer(ctx, q)
}

// subjectKnown checks whether the subject exists at all before running a
// traversal. An entity row counts, and so does being the head of any edge,
// since relationship-only loads are common.
func (o *Orchestrator) subjectKnown(ctx context.Context, subject string) (bool, error) {
	_, err := o.store.GetEntity(ctx, subject)
	if err == nil {
		return true, nil
	}
	if !errors.IsNotFoundError(err) {
		return false, err
	}
	edges, err := o.store.GetRelationshipsByHead(ctx, subject, "")
	if err != nil {
		return false, err
	}
	return len(edges) > 0, nil
}

// cacheable excludes results that reflect the moment rather than the graph:
// a cancelled caller or an unavailable backend says nothing about the data.
func cacheable(result ontology.QueryResult) bool {
	switch result.Reason {
	case ontology.ReasonCancelled, ontology.ReasonBackendUnavailable, ontology.ReasonBreakerOpen:
		return false
	}
	return true
}

func unavailableReason(err error) string {
	switch {
	case errors.IsBreakerOpen(err):
		return ontology.ReasonBreakerOpen
	case errors.IsAny(err, context.Canceled, context.DeadlineExceeded):
		return ontology.ReasonCancelled
	default:
		return ontology.ReasonBackendUnavailable
	}
}

func (o *Orchestrator) record(requestID string, q ontology.Question, result ontology.QueryResult) {
	o.sink.Observe(metrics.QueryLatencyMS, float64(result.Elapsed.Milliseconds()), nil)
	o.sink.Inc(metrics.QueryOutcomes, map[string]string{"outcome": string(result.Outcome)})
	o.sink.Observe(metrics.QueryVisited, float64(result.EntitiesVisited), nil)

	o.log.Infow("Question resolved",
		logger.FieldRequestID, requestID,
		logger.FieldQuestion, string(q.Type),
		logger.FieldSubject, q.Subject,
		logger.FieldObject, q.Object,
		logger.FieldOutcome, string(result.Outcome),
		logger.FieldCacheHit, result.CacheHit,
		logger.FieldReason, result.Reason,
		logger.FieldDurationMS, result.Elapsed.Milliseconds(),
	)
}
