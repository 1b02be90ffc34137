package ingest

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/logger"
	"github.com/cairnstack/ontograph/metrics"
	"github.com/cairnstack/ontograph/ontology"
	"github.com/cairnstack/ontograph/storage"
)

// Invalidator receives the cache invalidation signal after each committed
// batch. *cache.ResultCache satisfies it.
type Invalidator interface {
	InvalidateAll()
}

// Config tunes the pipeline. Concurrency and queue depth are configuration,
// not per-call-site knobs.
type Config struct {
	// BatchSize flushes a worker's batch once it holds this many unique
	// records.
	BatchSize int
	// FlushInterval flushes a non-empty batch that has not reached
	// BatchSize, bounding staleness on slow inputs.
	FlushInterval time.Duration
	// Workers is the number of concurrent batch builders.
	Workers int
	// QueueDepth bounds the dispatch queue between the source reader and
	// the workers. A full queue blocks the reader, which stops pulling
	// from the source.
	QueueDepth int
	// RateLimit caps records dispatched per second. Zero means unlimited.
	RateLimit float64
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		Workers:       4,
		QueueDepth:    256,
	}
}

// Stats summarizes one pipeline run.
type Stats struct {
	Accepted      int
	Rejected      int
	Batches       int
	Entities      int
	Relationships int
}

type statsCollector struct {
	mu sync.Mutex
	s  Stats
}

func (c *statsCollector) addAccepted() { c.mu.Lock(); c.s.Accepted++; c.mu.Unlock() }

func (c *statsCollector) addRejected() { c.mu.Lock(); c.s.Rejected++; c.mu.Unlock() }

func (c *statsCollector) addBatch(e, r int) {
	c.mu.Lock()
	c.s.Batches++
	c.s.Entities += e
	c.s.Relationships += r
	c.mu.Unlock()
}

func (c *statsCollector) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

// Pipeline is the concurrent ingestion path. It owns no storage resources;
// callers pass a breaker-guarded store so ingestion writes share the same
// protection as query reads.
type Pipeline struct {
	store       storage.Store
	invalidator Invalidator
	cfg         Config
	sink        metrics.Sink
	limiter     *rate.Limiter
	log         *zap.SugaredLogger
}

// New builds a Pipeline. invalidator and sink may be nil.
func New(store storage.Store, invalidator Invalidator, cfg Config, sink metrics.Sink) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultConfig().QueueDepth
	}
	if sink == nil {
		sink = metrics.Nop{}
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}
	return &Pipeline{
		store:       store,
		invalidator: invalidator,
		cfg:         cfg,
		sink:        sink,
		limiter:     limiter,
		log:         logger.Logger.With(logger.FieldComponent, "ingest"),
	}
}

// Run drains the source to completion, fanning records out across the
// configured workers. It returns aggregate stats and the first fatal error:
// a source read failure, a storage write failure, or cancellation.
// Validation failures are never fatal; they are skipped and counted.
func (p *Pipeline) Run(ctx context.Context, src Source) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stats := &statsCollector{}
	queue := make(chan Record, p.cfg.QueueDepth)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		fatalErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			fatalErr = err
			cancel()
		})
	}

	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.worker(ctx, queue, stats); err != nil && !errors.IsAny(err, context.Canceled, context.DeadlineExceeded) {
				fail(err)
			}
		}()
	}

	if err := p.dispatch(ctx, src, queue); err != nil {
		fail(err)
	}
	close(queue)
	wg.Wait()

	final := stats.snapshot()
	if fatalErr != nil {
		return final, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return final, err
	}
	p.log.Infow("Ingestion run complete",
		logger.FieldCount, final.Accepted,
		logger.FieldRejected, final.Rejected,
		logger.FieldBatchSize, final.Batches,
	)
	return final, nil
}

// dispatch pulls batches from the source and feeds individual records into
// the bounded queue. Blocking on a full queue is the backpressure path.
func (p *Pipeline) dispatch(ctx context.Context, src Source, queue chan<- Record) error {
	for {
		batch, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading ingestion source")
		}
		for _, rec := range batch {
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			select {
			case queue <- rec:
				p.sink.Gauge(metrics.IngestQueueSize, float64(len(queue)), nil)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// batch accumulates deduplicated records between flushes. Entities dedupe by
// id, relationships by (head, tail, edge_type); the last occurrence wins.
type batch struct {
	entities map[string]ontology.Entity
	rels     map[string]ontology.Relationship
}

func newBatch() *batch {
	return &batch{
		entities: make(map[string]ontology.Entity),
		rels:     make(map[string]ontology.Relationship),
	}
}

func (b *batch) size() int { return len(b.entities) + len(b.rels) }

func (p *Pipeline) worker(ctx context.Context, queue <-chan Record, stats *statsCollector) error {
	b := newBatch()
	timer := time.NewTimer(p.cfg.FlushInterval)
	defer timer.Stop()

	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.cfg.FlushInterval)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-queue:
			if !ok {
				return p.flush(ctx, b, stats)
			}
			p.accept(rec, b, stats)
			if b.size() >= p.cfg.BatchSize {
				if err := p.flush(ctx, b, stats); err != nil {
					return err
				}
				b = newBatch()
				resetTimer()
			}
		case <-timer.C:
			if err := p.flush(ctx, b, stats); err != nil {
				return err
			}
			b = newBatch()
			timer.Reset(p.cfg.FlushInterval)
		}
	}
}

// accept validates one record into the batch. A malformed record is counted
// and skipped without touching the batch.
func (p *Pipeline) accept(rec Record, b *batch, stats *statsCollector) {
	switch {
	case rec.Entity != nil:
		entity, err := rec.validateEntity(time.Now().UTC())
		if err != nil {
			p.reject(err, stats)
			return
		}
		b.entities[entity.ID] = entity
	case rec.Relationship != nil:
		rel, err := rec.validateRelationship()
		if err != nil {
			p.reject(err, stats)
			return
		}
		b.rels[rel.DedupKey()] = rel
	default:
		p.reject(errors.NewValidationError("record carries neither an entity nor a relationship"), stats)
		return
	}
	stats.addAccepted()
	p.sink.Inc(metrics.IngestAccepted, nil)
}

func (p *Pipeline) reject(err error, stats *statsCollector) {
	stats.addRejected()
	p.sink.Inc(metrics.IngestRejected, nil)
	p.log.Warnw("Rejected ingestion record", logger.FieldError, err)
}

// flush commits the batch through the storage port and signals cache
// invalidation. A storage failure surfaces to the caller for a
// retry-or-abort decision.
func (p *Pipeline) flush(ctx context.Context, b *batch, stats *statsCollector) error {
	if b.size() == 0 {
		return nil
	}
	batchID := uuid.NewString()
	start := time.Now()

	if len(b.entities) > 0 {
		entities := make([]ontology.Entity, 0, len(b.entities))
		for _, e := range b.entities {
			entities = append(entities, e)
		}
		if err := p.store.StoreEntities(ctx, entities); err != nil {
			return errors.Wrapf(err, "committing entity batch %s", batchID)
		}
	}
	if len(b.rels) > 0 {
		rels := make([]ontology.Relationship, 0, len(b.rels))
		for _, r := range b.rels {
			rels = append(rels, r)
		}
		if err := p.store.StoreRelationships(ctx, rels); err != nil {
			return errors.Wrapf(err, "committing relationship batch %s", batchID)
		}
	}

	elapsed := time.Since(start)
	stats.addBatch(len(b.entities), len(b.rels))
	p.sink.Inc(metrics.IngestBatches, nil)
	p.sink.Observe(metrics.IngestFlushMS, float64(elapsed.Milliseconds()), nil)

	if p.invalidator != nil {
		p.invalidator.InvalidateAll()
	}
	p.log.Debugw("Committed ingestion batch",
		logger.FieldBatchID, batchID,
		logger.FieldBatchSize, b.size(),
		logger.FieldDurationMS, elapsed.Milliseconds(),
	)
	return nil
}
