package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/studyloop/studycore/internal/store"
)

// BlobStore implements the store.BlobStore interface using a PostgreSQL
// database as the storage backend.
type BlobStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBlobStore creates a new PostgreSQL implementation of the BlobStore
// interface. It accepts a database connection that should be initialized and
// managed by the caller. If logger is nil, a default logger will be used.
func NewBlobStore(db *sql.DB, logger *slog.Logger) *BlobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &BlobStore{
		db:     db,
		logger: logger.With(slog.String("component", "postgres_blob_store")),
	}
}

// Ensure BlobStore implements store.BlobStore.
var _ store.BlobStore = (*BlobStore)(nil)

// PutBody implements store.BlobStore.PutBody.
func (s *BlobStore) PutBody(ctx context.Context, userID, topicID, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO note_bodies (user_id, topic_id, body, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, topic_id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		userID, topicID, text)
	if err != nil {
		return fmt.Errorf("%w: body %s/%s: %v", store.ErrWriteFailed, userID, topicID, err)
	}
	return nil
}

// GetBody implements store.BlobStore.GetBody.
// Returns store.ErrBodyNotFound if no body is stored for the key.
func (s *BlobStore) GetBody(ctx context.Context, userID, topicID string) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM note_bodies WHERE user_id = $1 AND topic_id = $2`,
		userID, topicID,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrBodyNotFound
		}
		return "", fmt.Errorf("querying body %s/%s: %w", userID, topicID, err)
	}
	return body, nil
}

// DeleteBody implements store.BlobStore.DeleteBody.
// Deleting an absent key is not an error.
func (s *BlobStore) DeleteBody(ctx context.Context, userID, topicID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM note_bodies WHERE user_id = $1 AND topic_id = $2`,
		userID, topicID)
	if err != nil {
		return fmt.Errorf("deleting body %s/%s: %w", userID, topicID, err)
	}
	return nil
}

// PutAudio implements store.BlobStore.PutAudio.
func (s *BlobStore) PutAudio(ctx context.Context, topicID string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audio_payloads (topic_id, payload, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (topic_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		topicID, payload)
	if err != nil {
		return fmt.Errorf("%w: audio %s: %v", store.ErrWriteFailed, topicID, err)
	}
	return nil
}

// DeleteAudio implements store.BlobStore.DeleteAudio.
// Deleting an absent key is not an error.
func (s *BlobStore) DeleteAudio(ctx context.Context, topicID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM audio_payloads WHERE topic_id = $1`, topicID)
	if err != nil {
		return fmt.Errorf("deleting audio %s: %w", topicID, err)
	}
	return nil
}

// ListAudioKeys implements store.BlobStore.ListAudioKeys.
func (s *BlobStore) ListAudioKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT topic_id FROM audio_payloads`)
	if err != nil {
		return nil, fmt.Errorf("enumerating audio keys: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("failed to close audio key rows", "error", err)
		}
	}()

	keys := make(map[string]struct{})
	for rows.Next() {
		var topicID string
		if err := rows.Scan(&topicID); err != nil {
			return nil, fmt.Errorf("scanning audio key: %w", err)
		}
		keys[topicID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audio keys: %w", err)
	}
	return keys, nil
}
