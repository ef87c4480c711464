package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/studyloop/studycore/internal/store"
)

// IndexStore implements the store.IndexStore interface using a PostgreSQL
// database as the storage backend. The whole catalogue record is stored as a
// single JSONB payload per user, mirroring the single-record layout of the
// local tier.
type IndexStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewIndexStore creates a new PostgreSQL implementation of the IndexStore
// interface. It accepts a database connection that should be initialized and
// managed by the caller. If logger is nil, a default logger will be used.
func NewIndexStore(db *sql.DB, logger *slog.Logger) *IndexStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IndexStore{
		db:     db,
		logger: logger.With(slog.String("component", "postgres_index_store")),
	}
}

// Ensure IndexStore implements store.IndexStore.
var _ store.IndexStore = (*IndexStore)(nil)

// LoadCatalogue implements store.IndexStore.LoadCatalogue.
// A missing row or an undeserializable payload both recover to an empty
// catalogue; the latter is logged as a diagnostic.
func (s *IndexStore) LoadCatalogue(ctx context.Context, userID string) (*store.Catalogue, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM study_catalogues WHERE user_id = $1`, userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.NewCatalogue(), nil
		}
		return nil, fmt.Errorf("querying catalogue record: %w", err)
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO study_catalogues (user_id, payload, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("%w: catalogue for user %s: %v", store.ErrWriteFailed, userID, err)
	}
	return nil
}

// LoadRawCatalogue implements store.IndexStore.LoadRawCatalogue.
func (s *IndexStore) LoadRawCatalogue(ctx context.Context, userID string) ([]byte, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM study_catalogues WHERE user_id = $1`, userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("querying catalogue record: %w", err)
	}
	return raw, nil
}

// SaveMigrationBackup implements store.IndexStore.SaveMigrationBackup.
// ON CONFLICT DO NOTHING gives the write-once guarantee: a backup row, once
// present, is never replaced.
func (s *IndexStore) SaveMigrationBackup(ctx context.Context, userID string, raw []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO migration_backups (user_id, payload) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("%w: migration backup for user %s: %v", store.ErrWriteFailed, userID, err)
	}
	return nil
}

// LoadMigrationFlag implements store.IndexStore.LoadMigrationFlag.
func (s *IndexStore) LoadMigrationFlag(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM migration_flags WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("querying migration flag: %w", err)
	}
	return exists, nil
}

// SetMigrationFlag implements store.IndexStore.SetMigrationFlag.
func (s *IndexStore) SetMigrationFlag(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO migration_flags (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return fmt.Errorf("%w: migration flag for user %s: %v", store.ErrWriteFailed, userID, err)
	}
	return nil
}
