package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studyloop/studycore/internal/domain"
	"github.com/studyloop/studycore/internal/platform/memory"
	"github.com/studyloop/studycore/internal/store"
)

// seedPreMigrationCatalogue stores a catalogue with inlined note bodies, the
// shape records had before the two-tier split.
func seedPreMigrationCatalogue(t *testing.T, index *memory.IndexStore, userID string, topics []*domain.Topic) *store.Catalogue {
	t.Helper()

	catalogue := store.NewCatalogue()
	catalogue.Topics = topics

	raw, err := json.Marshal(catalogue)
	require.NoError(t, err)
	index.SeedRawCatalogue(userID, raw)

	loaded, err := index.LoadCatalogue(context.Background(), userID)
	require.NoError(t, err)
	return loaded
}

func TestMigrationMovesBodiesToBlobStore(t *testing.T) {
	ctx := context.Background()
	index := memory.NewIndexStore()
	blobs := memory.NewBlobStore()

	topics := []*domain.Topic{
		{ID: "t1", TopicName: "Thermo", ShortNotes: "first law"},
		{ID: "t2", TopicName: "Optics", ShortNotes: ""},
		{ID: "t3", TopicName: "Waves", ShortNotes: "v = f*lambda"},
	}
	catalogue := seedPreMigrationCatalogue(t, index, "u1", topics)

	engine := NewMigrationEngine(index, blobs, nil)
	require.NoError(t, engine.Run(ctx, "u1", catalogue))

	// Bodies with content moved to the blob store.
	body, err := blobs.GetBody(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "first law", body)

	body, err = blobs.GetBody(ctx, "u1", "t3")
	require.NoError(t, err)
	assert.Equal(t, "v = f*lambda", body)

	// Empty notes get no blob entry from migration.
	_, err = blobs.GetBody(ctx, "u1", "t2")
	assert.ErrorIs(t, err, store.ErrBodyNotFound)

	// In-memory and persisted catalogues both carry empty bodies now.
	for _, topic := range catalogue.Topics {
		assert.Empty(t, topic.ShortNotes)
	}
	persisted, err := index.LoadCatalogue(ctx, "u1")
	require.NoError(t, err)
	for _, topic := range persisted.Topics {
		assert.Empty(t, topic.ShortNotes)
	}

	migrated, err := index.LoadMigrationFlag(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, migrated)
}

func TestMigrationIdempotence(t *testing.T) {
	ctx := context.Background()
	index := memory.NewIndexStore()
	blobs := memory.NewBlobStore()

	topics := []*domain.Topic{{ID: "t1", TopicName: "Thermo", ShortNotes: "entropy"}}
	catalogue := seedPreMigrationCatalogue(t, index, "u1", topics)

	engine := NewMigrationEngine(index, blobs, nil)
	require.NoError(t, engine.Run(ctx, "u1", catalogue))

	backupAfterFirst, ok := index.MigrationBackup("u1")
	require.True(t, ok)
	bodyAfterFirst, err := blobs.GetBody(ctx, "u1", "t1")
	require.NoError(t, err)

	// Second run on the already-migrated state is a no-op.
	reloaded, err := index.LoadCatalogue(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, engine.Run(ctx, "u1", reloaded))

	backupAfterSecond, ok := index.MigrationBackup("u1")
	require.True(t, ok)
	assert.Equal(t, backupAfterFirst, backupAfterSecond)

	bodyAfterSecond, err := blobs.GetBody(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, bodyAfterFirst, bodyAfterSecond)
}

func TestMigrationInterruptedBeforeFlagIsRepeatable(t *testing.T) {
	ctx := context.Background()
	index := memory.NewIndexStore()
	blobs := memory.NewBlobStore()

	topics := []*domain.Topic{{ID: "t1", TopicName: "Thermo", ShortNotes: "entropy"}}
	catalogue := seedPreMigrationCatalogue(t, index, "u1", topics)

	// Simulate a crash between persisting the catalogue and setting the
	// flag: the first SetMigrationFlag call fails.
	failOnce := true
	index.SetFlagFn = func(ctx context.Context, userID string) error {
		if failOnce {
			failOnce = false
			return errors.New("process killed")
		}
		index.SetFlagFn = nil
		return index.SetMigrationFlag(ctx, userID)
	}

	engine := NewMigrationEngine(index, blobs, nil)
	require.Error(t, engine.Run(ctx, "u1", catalogue))

	migrated, err := index.LoadMigrationFlag(ctx, "u1")
	require.NoError(t, err)
	require.False(t, migrated)

	backupAfterCrash, ok := index.MigrationBackup("u1")
	require.True(t, ok)

	// Next boot: reload and re-run the full procedure.
	reloaded, err := index.LoadCatalogue(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, engine.Run(ctx, "u1", reloaded))

	migrated, err = index.LoadMigrationFlag(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, migrated)

	// The original backup survived the re-run even though the catalogue
	// record had already been rewritten with stripped bodies.
	backupAfterRerun, ok := index.MigrationBackup("u1")
	require.True(t, ok)
	assert.Equal(t, backupAfterCrash, backupAfterRerun)

	body, err := blobs.GetBody(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "entropy", body)
}

func TestMigrationSkipsEmptyCatalogue(t *testing.T) {
	ctx := context.Background()
	index := memory.NewIndexStore()
	blobs := memory.NewBlobStore()

	engine := NewMigrationEngine(index, blobs, nil)
	require.NoError(t, engine.Run(ctx, "u1", store.NewCatalogue()))

	migrated, err := index.LoadMigrationFlag(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, migrated)

	_, ok := index.MigrationBackup("u1")
	assert.False(t, ok)
}

func TestMigrationBodyWriteFailureIsSkippedNotFatal(t *testing.T) {
	ctx := context.Background()
	index := memory.NewIndexStore()
	blobs := memory.NewBlobStore()

	topics := []*domain.Topic{
		{ID: "t1", TopicName: "Thermo", ShortNotes: "entropy"},
		{ID: "t2", TopicName: "Optics", ShortNotes: "snell"},
	}
	catalogue := seedPreMigrationCatalogue(t, index, "u1", topics)

	written := make(map[string]string)
	blobs.PutBodyFn = func(ctx context.Context, userID, topicID, text string) error {
		if topicID == "t1" {
			return errors.New("disk full")
		}
		written[topicID] = text
		return nil
	}

	engine := NewMigrationEngine(index, blobs, nil)
	require.NoError(t, engine.Run(ctx, "u1", catalogue))

	// Migration completed despite the failed key.
	migrated, err := index.LoadMigrationFlag(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, migrated)

	// The surviving body made it across; the failed one is lost.
	assert.NotContains(t, written, "t1")
	assert.Equal(t, "snell", written["t2"])
}
