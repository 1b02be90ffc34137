package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/ontology"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	metadata   TEXT
);

CREATE TABLE IF NOT EXISTS relationships (
	head_entity TEXT NOT NULL,
	tail_entity TEXT NOT NULL,
	edge_type   TEXT NOT NULL CHECK (edge_type IN ('SubclassOf','InstanceOf','HasAttribute')),
	confidence  REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
	PRIMARY KEY (head_entity, tail_entity, edge_type)
);

CREATE INDEX IF NOT EXISTS idx_relationships_head
	ON relationships (head_entity, edge_type);
`

// SQLStore is the SQLite-backed storage adapter. WAL mode allows concurrent
// query reads while an ingestion worker commits a batch.
type SQLStore struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open opens (creating if needed) a SQLite database at path with the
// standard pragmas and schema. If log is nil the store operates silently.
func Open(path string, log *zap.SugaredLogger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// WAL mode for concurrent reads during writes
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}

	if log != nil {
		log.Infow("Database opened",
			"path", path,
			"wal_mode", true,
		)
	}

	return &SQLStore{db: db, log: log}, nil
}

// NewSQLStore wraps an existing database handle. The schema is assumed to be
// in place; tests use this with internal/testing.CreateTestDB.
func NewSQLStore(db *sql.DB, log *zap.SugaredLogger) (*SQLStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, errors.Wrap(err, "failed to apply schema")
	}
	return &SQLStore{db: db, log: log}, nil
}

// DB exposes the underlying handle for migration tooling.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) GetEntity(ctx context.Context, id string) (*ontology.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, metadata FROM entities WHERE id = ?`, id)

	var e ontology.Entity
	var metadata sql.NullString
	if err := row.Scan(&e.ID, &e.Name, &e.CreatedAt, &metadata); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrapf(errors.ErrNotFound, "entity %q", id)
		}
		return nil, classifySQLiteError(err, "get entity")
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
			return nil, errors.NewPermanent(err, "decode entity metadata")
		}
	}
	return &e, nil
}

func (s *SQLStore) GetRelationshipsByHead(ctx context.Context, headID string, edgeType ontology.EdgeType) ([]ontology.Relationship, error) {
	query := `SELECT head_entity, tail_entity, edge_type, confidence
		FROM relationships WHERE head_entity = ?`
	args := []interface{}{headID}
	if edgeType != "" {
		query += ` AND edge_type = ?`
		args = append(args, string(edgeType))
	}
	query += ` ORDER BY tail_entity, confidence DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifySQLiteError(err, "get relationships by head")
	}
	defer rows.Close()

	var rels []ontology.Relationship
	for rows.Next() {
		var r ontology.Relationship
		var et string
		if err := rows.Scan(&r.HeadEntity, &r.TailEntity, &et, &r.Confidence); err != nil {
			return nil, classifySQLiteError(err, "scan relationship")
		}
		r.EdgeType = ontology.EdgeType(et)
		rels = append(rels, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLiteError(err, "iterate relationships")
	}
	return rels, nil
}

func (s *SQLStore) StoreEntities(ctx context.Context, entities []ontology.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifySQLiteError(err, "begin entity batch")
	}
	defer tx.Rollback()

	for _, e := range entities {
		if err := e.Validate(); err != nil {
			return err
		}
		merged, err := s.mergedMetadata(ctx, tx, e)
		if err != nil {
			return err
		}
		var metadata interface{}
		if len(merged) > 0 {
			raw, err := json.Marshal(merged)
			if err != nil {
				return errors.NewPermanent(err, "encode entity metadata")
			}
			metadata = string(raw)
		}
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		// Idempotent upsert: identity fields keep first-stored values,
		// metadata merges last-write-wins.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entities (id, name, created_at, metadata)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET metadata = excluded.metadata`,
			e.ID, e.Name, createdAt, metadata)
		if err != nil {
			return classifySQLiteError(err, "upsert entity")
		}
	}

	if err := tx.Commit(); err != nil {
		return classifySQLiteError(err, "commit entity batch")
	}
	return nil
}

// mergedMetadata fetches the stored metadata for e (if any) and merges the
// incoming map over it.
func (s *SQLStore) mergedMetadata(ctx context.Context, tx *sql.Tx, e ontology.Entity) (map[string]string, error) {
	var stored sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT metadata FROM entities WHERE id = ?`, e.ID).Scan(&stored)
	if err == sql.ErrNoRows {
		return e.Metadata, nil
	}
	if err != nil {
		return nil, classifySQLiteError(err, "read existing metadata")
	}
	var existing map[string]string
	if stored.Valid && stored.String != "" {
		if err := json.Unmarshal([]byte(stored.String), &existing); err != nil {
			return nil, errors.NewPermanent(err, "decode existing metadata")
		}
	}
	return ontology.MergeMetadata(existing, e.Metadata), nil
}

func (s *SQLStore) StoreRelationships(ctx context.Context, rels []ontology.Relationship) error {
	if len(rels) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifySQLiteError(err, "begin relationship batch")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO relationships (head_entity, tail_entity, edge_type, confidence)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(head_entity, tail_entity, edge_type)
		DO UPDATE SET confidence = excluded.confidence`)
	if err != nil {
		return classifySQLiteError(err, "prepare relationship upsert")
	}
	defer stmt.Close()

	for _, r := range rels {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.HeadEntity, r.TailEntity, string(r.EdgeType), r.Confidence); err != nil {
			return classifySQLiteError(err, "upsert relationship")
		}
	}

	if err := tx.Commit(); err != nil {
		return classifySQLiteError(err, "commit relationship batch")
	}
	return nil
}

func (s *SQLStore) HealthCheck(ctx context.Context) (Health, error) {
	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return Down, classifySQLiteError(err, "health check")
	}
	// A ping that succeeds but crawls signals lock contention ahead.
	if time.Since(start) > time.Second {
		return Degraded, nil
	}
	return Healthy, nil
}

// classifySQLiteError maps driver errors onto the transient/permanent split
// the breaker relies on. Lock contention and I/O retries are transient;
// constraint and schema failures are permanent. String matching is the
// fallback because the driver surfaces its own error types that cannot be
// wrapped at the source.
func classifySQLiteError(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.NewTransient(err, op)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "constraint failed"),
		strings.Contains(msg, "no such table"),
		strings.Contains(msg, "no such column"):
		return errors.NewPermanent(err, op)
	default:
		// Lock contention, I/O errors, closed handles, and anything
		// unrecognized: retryable as far as the breaker is concerned.
		return errors.NewTransient(err, op)
	}
}
