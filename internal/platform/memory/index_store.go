package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/studyloop/studycore/internal/store"
)

// IndexStore implements store.IndexStore in memory.
// Function fields, when set, override the default behavior for failure
// injection in tests.
type IndexStore struct {
	mu         sync.Mutex
	catalogues map[string][]byte
	flags      map[string]bool
	backups    map[string][]byte
	logger     *slog.Logger

	SaveCatalogueFn func(ctx context.Context, userID string, catalogue *store.Catalogue) error
	LoadCatalogueFn func(ctx context.Context, userID string) (*store.Catalogue, error)
	SetFlagFn       func(ctx context.Context, userID string) error
}

// Ensure IndexStore implements store.IndexStore.
var _ store.IndexStore = (*IndexStore)(nil)

// NewIndexStore creates an empty in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		catalogues: make(map[string][]byte),
		flags:      make(map[string]bool),
		backups:    make(map[string][]byte),
		logger:     slog.Default().With(slog.String("component", "memory_index_store")),
	}
}

// LoadCatalogue implements store.IndexStore.LoadCatalogue.
// Corrupt stored bytes recover to an empty catalogue, matching the fail-soft
// contract of the durable backends.
func (s *IndexStore) LoadCatalogue(ctx context.Context, userID string) (*store.Catalogue, error) {
	if s.LoadCatalogueFn != nil {
		return s.LoadCatalogueFn(ctx, userID)
	}

	s.mu.Lock()
	raw, ok := s.catalogues[userID]
	s.mu.Unlock()

	if !ok {
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
	if s.SaveCatalogueFn != nil {
		return s.SaveCatalogueFn(ctx, userID, catalogue)
	}

	raw, err := json.Marshal(catalogue)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.catalogues[userID] = raw
	s.mu.Unlock()
	return nil
}

// LoadRawCatalogue implements store.IndexStore.LoadRawCatalogue.
func (s *IndexStore) LoadRawCatalogue(ctx context.Context, userID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.catalogues[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

// SaveMigrationBackup implements store.IndexStore.SaveMigrationBackup.
// Write-once: an existing backup is never overwritten.
func (s *IndexStore) SaveMigrationBackup(ctx context.Context, userID string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.backups[userID]; exists {
		return nil
	}
	s.backups[userID] = append([]byte(nil), raw...)
	return nil
}

// MigrationBackup returns the stored backup for the user, for test assertions.
func (s *IndexStore) MigrationBackup(userID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.backups[userID]
	return raw, ok
}

// LoadMigrationFlag implements store.IndexStore.LoadMigrationFlag.
func (s *IndexStore) LoadMigrationFlag(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[userID], nil
}

// SetMigrationFlag implements store.IndexStore.SetMigrationFlag.
func (s *IndexStore) SetMigrationFlag(ctx context.Context, userID string) error {
	if s.SetFlagFn != nil {
		return s.SetFlagFn(ctx, userID)
	}

	s.mu.Lock()
	s.flags[userID] = true
	s.mu.Unlock()
	return nil
}

// SeedRawCatalogue stores raw bytes directly, bypassing serialization. Tests
// use it to simulate records written by earlier schema versions or corrupted
// on disk.
func (s *IndexStore) SeedRawCatalogue(userID string, raw []byte) {
	s.mu.Lock()
	s.catalogues[userID] = append([]byte(nil), raw...)
	s.mu.Unlock()
}
