// Package pebbleblob provides the pebble-backed implementation of the
// BlobStore: the larger, slower content tier holding note bodies and audio
// payloads.
package pebbleblob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/pebble"
	"github.com/studyloop/studycore/internal/store"
)

// Key layout. Bodies are scoped by user then topic so a single user's bodies
// are contiguous; audio is keyed by topic alone because a payload belongs to
// whichever topic ID claims the key.
//
//	body/<userID>/<topicID> -> note text
//	audio/<topicID>         -> audio payload
const (
	bodyPrefix  = "body/"
	audioPrefix = "audio/"
)

// writeOptions syncs every write: blob payloads are user content and a
// crash must not lose an acknowledged write.
var writeOptions = &pebble.WriteOptions{Sync: true}

// BlobStore implements store.BlobStore using pebble.
type BlobStore struct {
	db     *pebble.DB
	logger *slog.Logger
}

// Option configures a BlobStore instance.
type Option func(*BlobStore)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *BlobStore) {
		s.logger = logger
	}
}

// Ensure BlobStore implements store.BlobStore.
var _ store.BlobStore = (*BlobStore)(nil)

// Open opens (creating if necessary) the blob database at the given path.
func Open(path string, opts ...Option) (*BlobStore, error) {
	s := &BlobStore{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "pebble_blob_store"))

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening blob database: %w", err)
	}

	s.db = db
	s.logger.Debug("opened blob database", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *BlobStore) Close() error {
	return s.db.Close()
}

func bodyKey(userID, topicID string) []byte {
	return []byte(bodyPrefix + userID + "/" + topicID)
}

func audioKey(topicID string) []byte {
	return []byte(audioPrefix + topicID)
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix: the prefix with its last non-0xff byte incremented. Topic IDs
// are arbitrary bytes (imports accept foreign IDs verbatim), so the bound must
// not assume anything about what follows the prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// PutBody implements store.BlobStore.PutBody.
func (s *BlobStore) PutBody(ctx context.Context, userID, topicID, text string) error {
	if err := s.db.Set(bodyKey(userID, topicID), []byte(text), writeOptions); err != nil {
		return fmt.Errorf("%w: body %s/%s: %v", store.ErrWriteFailed, userID, topicID, err)
	}
	return nil
}

// GetBody implements store.BlobStore.GetBody.
// Returns store.ErrBodyNotFound if no body is stored for the key.
func (s *BlobStore) GetBody(ctx context.Context, userID, topicID string) (string, error) {
	val, closer, err := s.db.Get(bodyKey(userID, topicID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", store.ErrBodyNotFound
		}
		return "", fmt.Errorf("reading body %s/%s: %w", userID, topicID, err)
	}
	text := string(val)
	if err := closer.Close(); err != nil {
		return "", fmt.Errorf("closing body value: %w", err)
	}
	return text, nil
}

// DeleteBody implements store.BlobStore.DeleteBody.
// Deleting an absent key is not an error.
func (s *BlobStore) DeleteBody(ctx context.Context, userID, topicID string) error {
	if err := s.db.Delete(bodyKey(userID, topicID), writeOptions); err != nil {
		return fmt.Errorf("deleting body %s/%s: %w", userID, topicID, err)
	}
	return nil
}

// PutAudio implements store.BlobStore.PutAudio.
func (s *BlobStore) PutAudio(ctx context.Context, topicID string, payload []byte) error {
	if err := s.db.Set(audioKey(topicID), payload, writeOptions); err != nil {
		return fmt.Errorf("%w: audio %s: %v", store.ErrWriteFailed, topicID, err)
	}
	return nil
}

// DeleteAudio implements store.BlobStore.DeleteAudio.
// Deleting an absent key is not an error.
func (s *BlobStore) DeleteAudio(ctx context.Context, topicID string) error {
	if err := s.db.Delete(audioKey(topicID), writeOptions); err != nil {
		return fmt.Errorf("deleting audio %s: %w", topicID, err)
	}
	return nil
}

// ListAudioKeys implements store.BlobStore.ListAudioKeys.
// It scans the audio key range and returns the set of topic IDs present.
func (s *BlobStore) ListAudioKeys(ctx context.Context) (map[string]struct{}, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(audioPrefix),
		UpperBound: prefixUpperBound([]byte(audioPrefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating audio keys: %w", err)
	}

	keys := make(map[string]struct{})
	for iter.First(); iter.Valid(); iter.Next() {
		keys[string(iter.Key()[len(audioPrefix):])] = struct{}{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("closing audio key iterator: %w", err)
	}
	return keys, nil
}
