package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studyloop/studycore/internal/store"
)

// MigrationEngine performs the one-time structural upgrade that moves note
// bodies inlined in the index out into the blob store, marking a per-user
// completion flag when done.
//
// The procedure is safe to repeat: if the process dies after the body writes
// but before the flag is set, the next boot re-runs the whole thing.
// Re-writing identical bodies is harmless (last write wins with the same
// content) and the pre-migration backup is write-once, so a second attempt
// can never clobber it.
type MigrationEngine struct {
	index  store.IndexStore
	blobs  store.BlobStore
	logger *slog.Logger
}

// NewMigrationEngine creates a new MigrationEngine.
func NewMigrationEngine(index store.IndexStore, blobs store.BlobStore, logger *slog.Logger) *MigrationEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &MigrationEngine{
		index:  index,
		blobs:  blobs,
		logger: logger.With(slog.String("component", "migration_engine")),
	}
}

// Run migrates the given catalogue for the user if migration is still
// pending. The catalogue is mutated in place: after a successful run every
// topic's ShortNotes is empty and the bodies live in the blob store.
//
// Preconditions checked here: the migration flag is unset and the catalogue
// is non-empty. An empty catalogue has nothing to migrate and the flag is
// left untouched.
//
// Individual body-write failures are logged and skipped, and the flag is
// still set after best-effort completion. A skipped body leaves that topic
// with an empty note until the user re-enters content; the loss is surfaced
// in the diagnostic log rather than hidden, and rather than blocking the
// whole catalogue behind one bad key.
func (e *MigrationEngine) Run(ctx context.Context, userID string, catalogue *store.Catalogue) error {
	migrated, err := e.index.LoadMigrationFlag(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading migration flag: %w", err)
	}
	if migrated {
		return nil
	}
	if catalogue.IsEmpty() {
		e.logger.Debug("catalogue empty, no migration needed", "user_id", userID)
		return nil
	}

	e.logger.Info("starting notes migration",
		"user_id", userID,
		"topic_count", len(catalogue.Topics))

	// Step 1: full raw backup of the pre-migration index record. The backup
	// key is write-once, and because this code only runs while the flag is
	// unset, a completed migration can never overwrite it either.
	raw, err := e.index.LoadRawCatalogue(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading pre-migration record for backup: %w", err)
	}
	if err := e.index.SaveMigrationBackup(ctx, userID, raw); err != nil {
		return fmt.Errorf("writing pre-migration backup: %w", err)
	}

	// Step 2: move every non-empty inlined body into the blob store,
	// awaiting all writes. Best-effort per key.
	var skipped int
	for _, topic := range catalogue.Topics {
		if topic.ShortNotes == "" {
			continue
		}
		if err := e.blobs.PutBody(ctx, userID, topic.ID, topic.ShortNotes); err != nil {
			skipped++
			e.logger.Error("failed to migrate note body, topic will lose its note",
				"user_id", userID,
				"topic_id", topic.ID,
				"error", err)
		}
	}

	// Step 3: replace the inlined bodies with empty strings in memory.
	for _, topic := range catalogue.Topics {
		topic.ShortNotes = ""
	}

	// Step 4: persist the updated catalogue.
	if err := e.index.SaveCatalogue(ctx, userID, catalogue); err != nil {
		return fmt.Errorf("persisting migrated catalogue: %w", err)
	}

	// Step 5: mark the migration complete.
	if err := e.index.SetMigrationFlag(ctx, userID); err != nil {
		return fmt.Errorf("setting migration flag: %w", err)
	}

	e.logger.Info("notes migration complete",
		"user_id", userID,
		"skipped_bodies", skipped)
	return nil
}
