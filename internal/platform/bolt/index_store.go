// Package bolt provides the bbolt-backed implementation of the IndexStore:
// the small, fast metadata tier of the two-tier storage split.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyloop/studycore/internal/store"
	"go.etcd.io/bbolt"
)

// Bucket names for the index namespaces. Catalogue records, migration flags
// and pre-migration backups live under separate buckets keyed by user ID, so
// a failed write to one never corrupts another.
var (
	bucketCatalogues = []byte("catalogues")
	bucketFlags      = []byte("migration_flags")
	bucketBackups    = []byte("migration_backups")
)

// flagSet is the stored value for a completed migration flag.
var flagSet = []byte{1}

// IndexStore implements store.IndexStore using bbolt.
type IndexStore struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// Option configures an IndexStore instance.
type Option func(*IndexStore)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *IndexStore) {
		s.logger = logger
	}
}

// Ensure IndexStore implements store.IndexStore.
var _ store.IndexStore = (*IndexStore)(nil)

// Open opens (creating if necessary) the index database at the given path
// and ensures all buckets exist.
func Open(path string, opts ...Option) (*IndexStore, error) {
	s := &IndexStore{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "bolt_index_store"))

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCatalogues, bucketFlags, bucketBackups} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db = db
	s.logger.Debug("opened index database", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *IndexStore) Close() error {
	return s.db.Close()
}

// LoadCatalogue implements store.IndexStore.LoadCatalogue.
// A missing record yields an empty catalogue. A record that fails to
// deserialize also yields an empty catalogue and a nil error: the corrupt
// bytes are left in place for post-mortem and the failure is surfaced only
// as a diagnostic log.
func (s *IndexStore) LoadCatalogue(ctx context.Context, userID string) (*store.Catalogue, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketCatalogues).Get([]byte(userID)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading catalogue record: %w", err)
	}

	if raw == nil {
		return store.NewCatalogue(), nil
	}

	catalogue := store.NewCatalogue()
	if err := json.Unmarshal(raw, catalogue); err != nil {
		s.logger.Error("catalogue record failed to deserialize, starting empty",
			"user_id", userID,
			"error", err)
		return store.NewCatalogue(), nil
	}
	return catalogue, nil
}

// SaveCatalogue implements store.IndexStore.SaveCatalogue.
func (s *IndexStore) SaveCatalogue(ctx context.Context, userID string, catalogue *store.Catalogue) error {
	raw, err := json.Marshal(catalogue)
	if err != nil {
		return fmt.Errorf("serializing catalogue: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCatalogues).Put([]byte(userID), raw)
	})
	if err != nil {
		return fmt.Errorf("%w: catalogue for user %s: %v", store.ErrWriteFailed, userID, err)
	}
	return nil
}

// LoadRawCatalogue implements store.IndexStore.LoadRawCatalogue.
func (s *IndexStore) LoadRawCatalogue(ctx context.Context, userID string) ([]byte, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketCatalogues).Get([]byte(userID)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading catalogue record: %w", err)
	}
	if raw == nil {
		return nil, store.ErrNotFound
	}
	return raw, nil
}

// SaveMigrationBackup implements store.IndexStore.SaveMigrationBackup.
// Write-once: an existing backup for the user is never overwritten.
func (s *IndexStore) SaveMigrationBackup(ctx context.Context, userID string, raw []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBackups)
		if b.Get([]byte(userID)) != nil {
			s.logger.Debug("migration backup already present, keeping original",
				"user_id", userID)
			return nil
		}
		return b.Put([]byte(userID), raw)
	})
	if err != nil {
		return fmt.Errorf("%w: migration backup for user %s: %v", store.ErrWriteFailed, userID, err)
	}
	return nil
}

// LoadMigrationFlag implements store.IndexStore.LoadMigrationFlag.
func (s *IndexStore) LoadMigrationFlag(ctx context.Context, userID string) (bool, error) {
	var set bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		set = tx.Bucket(bucketFlags).Get([]byte(userID)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("reading migration flag: %w", err)
	}
	return set, nil
}

// SetMigrationFlag implements store.IndexStore.SetMigrationFlag.
func (s *IndexStore) SetMigrationFlag(ctx context.Context, userID string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFlags).Put([]byte(userID), flagSet)
	})
	if err != nil {
		return fmt.Errorf("%w: migration flag for user %s: %v", store.ErrWriteFailed, userID, err)
	}
	return nil
}
