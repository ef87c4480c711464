package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/studyloop/studycore/internal/domain/srs"
	"github.com/studyloop/studycore/internal/store"
	"github.com/studyloop/studycore/internal/task"
)

// Registry manages the per-user catalogue handles. A handle is created and
// activated on first use and torn down on user switch or teardown; the
// registry is the only place handles are created, keeping the one-owner-per-
// user rule enforceable.
type Registry struct {
	index    store.IndexStore
	blobs    store.BlobStore
	queue    *task.WriteQueue
	schedule *srs.Schedule
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// registryEntry guards one user's activation. The once runs the load/migrate/
// reconcile sequence outside the registry lock, so a slow activation for one
// user never stalls another user's first request.
type registryEntry struct {
	once   sync.Once
	handle *CatalogService
	err    error
}

// NewRegistry creates a registry over the given storage tiers.
func NewRegistry(
	index store.IndexStore,
	blobs store.BlobStore,
	queue *task.WriteQueue,
	schedule *srs.Schedule,
	logger *slog.Logger,
) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		index:    index,
		blobs:    blobs,
		queue:    queue,
		schedule: schedule,
		logger:   logger,
		entries:  make(map[string]*registryEntry),
	}
}

// Activate returns the ready catalogue handle for the user, creating and
// activating it if this is the user's first use. Concurrent callers for the
// same user share one activation; callers for different users activate
// independently. A failed activation is not cached, so the next call retries
// it.
func (r *Registry) Activate(ctx context.Context, userID string) (*CatalogService, error) {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	if !ok {
		entry = &registryEntry{}
		r.entries[userID] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		handle, err := NewCatalogService(userID, r.index, r.blobs, r.queue, r.schedule, r.logger)
		if err != nil {
			entry.err = err
			return
		}
		if err := handle.Activate(ctx); err != nil {
			entry.err = err
			return
		}
		entry.handle = handle
	})

	if entry.err != nil {
		// Drop the failed entry so a later call starts a fresh activation.
		r.mu.Lock()
		if r.entries[userID] == entry {
			delete(r.entries, userID)
		}
		r.mu.Unlock()
		return nil, entry.err
	}
	return entry.handle, nil
}

// Deactivate drops the user's handle. Pending background body writes are not
// cancelled; they drain through the shared queue regardless.
func (r *Registry) Deactivate(userID string) {
	r.mu.Lock()
	delete(r.entries, userID)
	r.mu.Unlock()
}
