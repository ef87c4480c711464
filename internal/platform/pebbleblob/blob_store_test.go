package pebbleblob

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studyloop/studycore/internal/store"
)

func openTestStore(t *testing.T) *BlobStore {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBodyRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutBody(ctx, "u1", "t1", "entropy never decreases"))

	text, err := s.GetBody(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "entropy never decreases", text)

	// Overwrite replaces the stored body.
	require.NoError(t, s.PutBody(ctx, "u1", "t1", "revised"))
	text, err = s.GetBody(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "revised", text)
}

func TestBodiesAreScopedByUser(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutBody(ctx, "u1", "t1", "for u1"))

	_, err := s.GetBody(ctx, "u2", "t1")
	assert.ErrorIs(t, err, store.ErrBodyNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteBodyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutBody(ctx, "u1", "t1", "bye"))
	require.NoError(t, s.DeleteBody(ctx, "u1", "t1"))

	_, err := s.GetBody(ctx, "u1", "t1")
	assert.ErrorIs(t, err, store.ErrBodyNotFound)

	require.NoError(t, s.DeleteBody(ctx, "u1", "t1"))
}

func TestAudioRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutAudio(ctx, "t1", []byte{0xff, 0xfb, 0x90}))

	keys, err := s.ListAudioKeys(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, "t1")

	require.NoError(t, s.DeleteAudio(ctx, "t1"))
	keys, err = s.ListAudioKeys(ctx)
	require.NoError(t, err)
	assert.NotContains(t, keys, "t1")

	require.NoError(t, s.DeleteAudio(ctx, "t1"))
}

func TestListAudioKeysSkipsBodies(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutBody(ctx, "u1", "t1", "notes"))
	require.NoError(t, s.PutAudio(ctx, "t2", []byte("mp3")))
	require.NoError(t, s.PutAudio(ctx, "t3", []byte("mp3")))

	keys, err := s.ListAudioKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"t2": {}, "t3": {}}, keys)
}

func TestListAudioKeysHandlesHighBytes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// Imported topic IDs are foreign and can start with any byte, including
	// ones that sort past a naive one-byte range cap.
	high := "\xff\xffimported"
	require.NoError(t, s.PutAudio(ctx, high, []byte("mp3")))
	require.NoError(t, s.PutAudio(ctx, "t1", []byte("mp3")))

	keys, err := s.ListAudioKeys(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, high)
	assert.Contains(t, keys, "t1")
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("audio0"), prefixUpperBound([]byte("audio/")))
	assert.Equal(t, []byte("b"), prefixUpperBound([]byte("a\xff\xff")))
	assert.Nil(t, prefixUpperBound([]byte("\xff\xff")))
}

func TestReopenPreservesBlobs(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "blobs")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutBody(ctx, "u1", "t1", "durable"))
	require.NoError(t, s.PutAudio(ctx, "t1", []byte("mp3")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	text, err := s.GetBody(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "durable", text)

	keys, err := s.ListAudioKeys(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, "t1")
}
