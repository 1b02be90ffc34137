// Package commands implements the ontograph CLI commands. All graph logic
// lives in the library packages; commands only wire them together.
package commands

import (
	"github.com/cairnstack/ontograph/breaker"
	"github.com/cairnstack/ontograph/cache"
	"github.com/cairnstack/ontograph/config"
	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/ingest"
	"github.com/cairnstack/ontograph/logger"
	"github.com/cairnstack/ontograph/metrics"
	"github.com/cairnstack/ontograph/query"
	"github.com/cairnstack/ontograph/reason"
	"github.com/cairnstack/ontograph/storage"
)

// runtime holds the wired component graph for one command invocation.
// Construction order is load-bearing: the store is guarded by the breaker
// before anything else sees it, so queries and ingestion share one breaker.
type runtime struct {
	cfg          *config.Config
	store        storage.Store
	cache        *cache.ResultCache
	orchestrator *reason.Orchestrator
	pipeline     *ingest.Pipeline
	closer       func() error
}

func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	inner, closer, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	sink := metrics.NewLogSink(logger.Logger)
	guarded := breaker.Guard(inner, breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout(),
		Window:           cfg.Breaker.Window(),
	}, sink)

	resultCache := cache.New(cfg.Cache.MaxSize, cfg.Cache.TTL(), sink)
	engine := query.New(guarded, query.Config{MaxDepth: cfg.Query.MaxDepth})
	orchestrator := reason.New(guarded, engine, resultCache, sink)
	pipeline := ingest.New(guarded, resultCache, ingest.Config{
		BatchSize:     cfg.Ingest.BatchSize,
		FlushInterval: cfg.Ingest.FlushInterval(),
		Workers:       cfg.Ingest.Workers,
		QueueDepth:    cfg.Ingest.QueueDepth,
		RateLimit:     cfg.Ingest.RateLimit,
	}, sink)

	return &runtime{
		cfg:          cfg,
		store:        guarded,
		cache:        resultCache,
		orchestrator: orchestrator,
		pipeline:     pipeline,
		closer:       closer,
	}, nil
}

func (r *runtime) Close() error {
	if r.closer != nil {
		return r.closer()
	}
	return nil
}

func openStore(cfg *config.Config) (storage.Store, func() error, error) {
	switch cfg.Database.Backend {
	case "sqlite":
		store, err := storage.Open(cfg.Database.Path, logger.Logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "badger":
		store, err := storage.OpenBadger(storage.BadgerOptions{
			DataDir: cfg.Database.DataDir,
		}, logger.Logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory":
		return storage.NewMemoryStore(), nil, nil
	default:
		return nil, nil, errors.NewValidationError("unknown database backend %q", cfg.Database.Backend)
	}
}
