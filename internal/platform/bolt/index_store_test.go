package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studyloop/studycore/internal/domain"
	"github.com/studyloop/studycore/internal/store"
	"go.etcd.io/bbolt"
)

func openTestStore(t *testing.T) *IndexStore {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadCatalogueMissingUserIsEmpty(t *testing.T) {
	s := openTestStore(t)

	catalogue, err := s.LoadCatalogue(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, catalogue.IsEmpty())
}

func TestSaveAndLoadCatalogue(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	catalogue := store.NewCatalogue()
	catalogue.Topics = []*domain.Topic{{ID: "t1", TopicName: "Thermo", SubjectID: "s1"}}
	catalogue.Subjects = []*domain.Subject{{ID: "s1", Name: "Physics"}}
	require.NoError(t, s.SaveCatalogue(ctx, "u1", catalogue))

	loaded, err := s.LoadCatalogue(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, loaded.Topics, 1)
	assert.Equal(t, "Thermo", loaded.Topics[0].TopicName)
	require.Len(t, loaded.Subjects, 1)
	assert.Equal(t, "Physics", loaded.Subjects[0].Name)

	// Each user's record is independent.
	other, err := s.LoadCatalogue(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestLoadCatalogueCorruptRecordRecoversEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCatalogues).Put([]byte("u1"), []byte("{truncated"))
	})
	require.NoError(t, err)

	catalogue, err := s.LoadCatalogue(ctx, "u1")
	require.NoError(t, err, "corrupt record must not be a hard failure")
	assert.True(t, catalogue.IsEmpty())

	// The corrupt bytes stay in place for post-mortem.
	raw, err := s.LoadRawCatalogue(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte("{truncated"), raw)
}

func TestLoadRawCatalogueMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadRawCatalogue(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMigrationBackupIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SaveMigrationBackup(ctx, "u1", []byte("original")))
	require.NoError(t, s.SaveMigrationBackup(ctx, "u1", []byte("overwrite attempt")))

	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw = append([]byte(nil), tx.Bucket(bucketBackups).Get([]byte("u1"))...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), raw)
}

func TestMigrationFlagRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	set, err := s.LoadMigrationFlag(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, set)

	require.NoError(t, s.SetMigrationFlag(ctx, "u1"))

	set, err = s.LoadMigrationFlag(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, set)

	// Flags are per user.
	set, err = s.LoadMigrationFlag(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestReopenPreservesData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := Open(path)
	require.NoError(t, err)

	catalogue := store.NewCatalogue()
	catalogue.Topics = []*domain.Topic{{ID: "t1", TopicName: "Thermo"}}
	require.NoError(t, s.SaveCatalogue(ctx, "u1", catalogue))
	require.NoError(t, s.SetMigrationFlag(ctx, "u1"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.LoadCatalogue(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, loaded.Topics, 1)
	assert.Equal(t, "Thermo", loaded.Topics[0].TopicName)

	set, err := s.LoadMigrationFlag(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, set)
}
