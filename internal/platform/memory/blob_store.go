package memory

import (
	"context"
	"sync"

	"github.com/studyloop/studycore/internal/store"
)

// BlobStore implements store.BlobStore in memory.
// Function fields, when set, override the default behavior for failure
// injection in tests.
type BlobStore struct {
	mu     sync.Mutex
	bodies map[string]string
	audio  map[string][]byte

	PutBodyFn       func(ctx context.Context, userID, topicID, text string) error
	GetBodyFn       func(ctx context.Context, userID, topicID string) (string, error)
	PutAudioFn      func(ctx context.Context, topicID string, payload []byte) error
	ListAudioKeysFn func(ctx context.Context) (map[string]struct{}, error)
}

// Ensure BlobStore implements store.BlobStore.
var _ store.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates an empty in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		bodies: make(map[string]string),
		audio:  make(map[string][]byte),
	}
}

func bodyKey(userID, topicID string) string {
	return userID + "/" + topicID
}

// PutBody implements store.BlobStore.PutBody.
func (s *BlobStore) PutBody(ctx context.Context, userID, topicID, text string) error {
	if s.PutBodyFn != nil {
		return s.PutBodyFn(ctx, userID, topicID, text)
	}

	s.mu.Lock()
	s.bodies[bodyKey(userID, topicID)] = text
	s.mu.Unlock()
	return nil
}

// GetBody implements store.BlobStore.GetBody.
func (s *BlobStore) GetBody(ctx context.Context, userID, topicID string) (string, error) {
	if s.GetBodyFn != nil {
		return s.GetBodyFn(ctx, userID, topicID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	text, ok := s.bodies[bodyKey(userID, topicID)]
	if !ok {
		return "", store.ErrBodyNotFound
	}
	return text, nil
}

// DeleteBody implements store.BlobStore.DeleteBody.
func (s *BlobStore) DeleteBody(ctx context.Context, userID, topicID string) error {
	s.mu.Lock()
	delete(s.bodies, bodyKey(userID, topicID))
	s.mu.Unlock()
	return nil
}

// PutAudio implements store.BlobStore.PutAudio.
func (s *BlobStore) PutAudio(ctx context.Context, topicID string, payload []byte) error {
	if s.PutAudioFn != nil {
		return s.PutAudioFn(ctx, topicID, payload)
	}

	s.mu.Lock()
	s.audio[topicID] = append([]byte(nil), payload...)
	s.mu.Unlock()
	return nil
}

// DeleteAudio implements store.BlobStore.DeleteAudio.
func (s *BlobStore) DeleteAudio(ctx context.Context, topicID string) error {
	s.mu.Lock()
	delete(s.audio, topicID)
	s.mu.Unlock()
	return nil
}

// ListAudioKeys implements store.BlobStore.ListAudioKeys.
func (s *BlobStore) ListAudioKeys(ctx context.Context) (map[string]struct{}, error) {
	if s.ListAudioKeysFn != nil {
		return s.ListAudioKeysFn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]struct{}, len(s.audio))
	for topicID := range s.audio {
		keys[topicID] = struct{}{}
	}
	return keys, nil
}

// Audio returns the stored audio payload for the topic, for test assertions.
func (s *BlobStore) Audio(topicID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.audio[topicID]
	return payload, ok
}

// BodyCount returns the number of stored bodies, for test assertions.
func (s *BlobStore) BodyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}
