package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/ontology"
)

// Key prefixes for Badger storage organization. Single-byte prefixes keep
// scans cheap.
//
// Key structure:
//   - Entities:      0x01 + id                               -> JSON(Entity)
//   - Relationships: 0x02 + head + 0x00 + type + 0x00 + tail -> JSON(Relationship)
//
// The relationship key embeds the dedup key, so upserts overwrite in place
// and a by-head scan is a single prefix iteration.
const (
	prefixEntity       = byte(0x01)
	prefixRelationship = byte(0x02)
	keySeparator       = byte(0x00)
)

// BadgerStore is an embedded key-value storage adapter backed by BadgerDB.
// It trades SQL queryability for write throughput; ingestion-heavy
// deployments prefer it over SQLite.
type BadgerStore struct {
	db  *badger.DB
	log *zap.SugaredLogger
}

// BadgerOptions configures the Badger adapter.
type BadgerOptions struct {
	// DataDir is the directory for data files. Ignored when InMemory.
	DataDir string
	// InMemory runs Badger without persistence. Useful for tests.
	InMemory bool
	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool
}

// OpenBadger opens a Badger-backed store.
func OpenBadger(opts BadgerOptions, log *zap.SugaredLogger) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open badger store")
	}
	if log != nil {
		log.Infow("Badger store opened", "dir", opts.DataDir, "in_memory", opts.InMemory)
	}
	return &BadgerStore{db: db, log: log}, nil
}

// Close closes the underlying database.
func (b *BadgerStore) Close() error { return b.db.Close() }

func entityKey(id string) []byte {
	return append([]byte{prefixEntity}, []byte(id)...)
}

func relationshipKey(r ontology.Relationship) []byte {
	key := relationshipPrefix(r.HeadEntity)
	key = append(key, []byte(r.EdgeType)...)
	key = append(key, keySeparator)
	key = append(key, []byte(r.TailEntity)...)
	return key
}

// relationshipPrefix returns the scan prefix for all outgoing edges of head.
func relationshipPrefix(head string) []byte {
	key := append([]byte{prefixRelationship}, []byte(head)...)
	return append(key, keySeparator)
}

// typedRelationshipPrefix narrows the scan to one edge type.
func typedRelationshipPrefix(head string, edgeType ontology.EdgeType) []byte {
	key := relationshipPrefix(head)
	key = append(key, []byte(edgeType)...)
	return append(key, keySeparator)
}

func (b *BadgerStore) GetEntity(ctx context.Context, id string) (*ontology.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTransient(err, "get entity")
	}
	var e ontology.Entity
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, errors.Wrapf(errors.ErrNotFound, "entity %q", id)
	}
	if err != nil {
		return nil, classifyBadgerError(err, "get entity")
	}
	return &e, nil
}

func (b *BadgerStore) GetRelationshipsByHead(ctx context.Context, headID string, edgeType ontology.EdgeType) ([]ontology.Relationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTransient(err, "get relationships by head")
	}
	prefix := relationshipPrefix(headID)
	if edgeType != "" {
		prefix = typedRelationshipPrefix(headID, edgeType)
	}

	var rels []ontology.Relationship
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var r ontology.Relationship
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			rels = append(rels, r)
		}
		return nil
	})
	if err != nil {
		return nil, classifyBadgerError(err, "get relationships by head")
	}
	return rels, nil
}

func (b *BadgerStore) StoreEntities(ctx context.Context, entities []ontology.Entity) error {
	if err := ctx.Err(); err != nil {
		return errors.NewTransient(err, "store entities")
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, e := range entities {
			if err := e.Validate(); err != nil {
				return err
			}
			// Metadata merge on re-ingest requires a read-modify-write;
			// the single Update txn keeps it atomic per batch.
			if item, err := txn.Get(entityKey(e.ID)); err == nil {
				var existing ontology.Entity
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &existing)
				}); err != nil {
					return err
				}
				existing.Metadata = ontology.MergeMetadata(existing.Metadata, e.Metadata)
				e = existing
			} else if err != badger.ErrKeyNotFound {
				return err
			} else if e.CreatedAt.IsZero() {
				e.CreatedAt = time.Now().UTC()
			}
			raw, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := txn.Set(entityKey(e.ID), raw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.IsValidationError(err) {
			return err
		}
		return classifyBadgerError(err, "store entities")
	}
	return nil
}

func (b *BadgerStore) StoreRelationships(ctx context.Context, rels []ontology.Relationship) error {
	if err := ctx.Err(); err != nil {
		return errors.NewTransient(err, "store relationships")
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, r := range rels {
			if err := r.Validate(); err != nil {
				return err
			}
			raw, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := txn.Set(relationshipKey(r), raw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.IsValidationError(err) {
			return err
		}
		return classifyBadgerError(err, "store relationships")
	}
	return nil
}

func (b *BadgerStore) HealthCheck(ctx context.Context) (Health, error) {
	if err := ctx.Err(); err != nil {
		return Down, errors.NewTransient(err, "health check")
	}
	if b.db.IsClosed() {
		return Down, errors.Wrap(errors.ErrStorageUnavailable, "badger store closed")
	}
	return Healthy, nil
}

// classifyBadgerError maps Badger errors onto the transient/permanent split.
// Conflicts and blocked writes resolve on retry; everything structural is
// permanent.
func classifyBadgerError(err error, op string) error {
	switch {
	case errors.Is(err, badger.ErrConflict),
		errors.Is(err, badger.ErrBlockedWrites),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return errors.NewTransient(err, op)
	case errors.Is(err, badger.ErrDBClosed):
		return errors.Wrap(errors.Wrap(errors.ErrStorageUnavailable, err.Error()), op)
	default:
		return errors.NewTransient(err, op)
	}
}
