package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studyloop/studycore/internal/domain"
	"github.com/studyloop/studycore/internal/platform/memory"
	"github.com/studyloop/studycore/internal/store"
	"github.com/studyloop/studycore/internal/task"
)

// newTestCatalog wires an activated catalogue handle over in-memory stores.
func newTestCatalog(t *testing.T) (*CatalogService, *memory.IndexStore, *memory.BlobStore, *task.WriteQueue) {
	t.Helper()

	index := memory.NewIndexStore()
	blobs := memory.NewBlobStore()
	queue := task.NewWriteQueue(blobs.PutBody, task.DefaultWriteQueueConfig(), nil)
	t.Cleanup(queue.Close)

	catalog, err := NewCatalogService("u1", index, blobs, queue, nil, nil)
	require.NoError(t, err)
	require.NoError(t, catalog.Activate(context.Background()))
	return catalog, index, blobs, queue
}

func TestMutationsRejectedBeforeActivation(t *testing.T) {
	index := memory.NewIndexStore()
	blobs := memory.NewBlobStore()
	queue := task.NewWriteQueue(blobs.PutBody, task.DefaultWriteQueueConfig(), nil)
	defer queue.Close()

	catalog, err := NewCatalogService("u1", index, blobs, queue, nil, nil)
	require.NoError(t, err)
	require.False(t, catalog.Ready())

	_, err = catalog.AddTopic(context.Background(), AddTopicInput{TopicName: "Thermo"})
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, catalog.Activate(context.Background()))
	assert.True(t, catalog.Ready())
}

func TestAddTopicScenario(t *testing.T) {
	ctx := context.Background()
	catalog, index, blobs, _ := newTestCatalog(t)

	topic, err := catalog.AddTopic(ctx, AddTopicInput{
		TopicName:  "Thermo",
		Subject:    "Physics",
		ShortNotes: "heat flows downhill",
	})
	require.NoError(t, err)
	require.NotEmpty(t, topic.ID)
	assert.Empty(t, topic.Repetitions)
	assert.Empty(t, topic.FocusLogs)
	assert.Zero(t, topic.PomodoroTimeMinutes)

	// The persisted index record carries an empty body.
	persisted, err := index.LoadCatalogue(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, persisted.Topics, 1)
	assert.Empty(t, persisted.Topics[0].ShortNotes)
	assert.Nil(t, persisted.Topics[0].PodcastAudio)

	// The matching body is retrievable from the blob store.
	body, err := blobs.GetBody(ctx, "u1", topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "heat flows downhill", body)
}

func TestUpdateTopicRoundTrip(t *testing.T) {
	ctx := context.Background()
	catalog, index, blobs, queue := newTestCatalog(t)

	topic, err := catalog.AddTopic(ctx, AddTopicInput{TopicName: "Thermo"})
	require.NoError(t, err)

	topic.ShortNotes = "second law: entropy never decreases"
	updated, err := catalog.UpdateTopic(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, topic.ShortNotes, updated.ShortNotes)

	// The body write is fire-and-forget; flush the queue before reading.
	queue.Flush()

	fresh, err := index.LoadCatalogue(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, fresh.Topics, 1)
	assert.Empty(t, fresh.Topics[0].ShortNotes, "persisted index must never carry bodies")

	body, err := blobs.GetBody(ctx, "u1", topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "second law: entropy never decreases", body)
}

func TestUpdateTopicOffloadsAudio(t *testing.T) {
	ctx := context.Background()
	catalog, index, blobs, _ := newTestCatalog(t)

	topic, err := catalog.AddTopic(ctx, AddTopicInput{TopicName: "Thermo"})
	require.NoError(t, err)

	topic.PodcastAudio = []byte("mp3-bytes")
	updated, err := catalog.UpdateTopic(ctx, topic)
	require.NoError(t, err)

	assert.Nil(t, updated.PodcastAudio, "returned topic must be index-safe")
	assert.True(t, updated.HasSavedAudio)

	payload, ok := blobs.Audio(topic.ID)
	require.True(t, ok)
	assert.Equal(t, []byte("mp3-bytes"), payload)

	persisted, err := index.LoadCatalogue(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, persisted.Topics[0].HasSavedAudio)
}

func TestUpdateTopicAudioWriteFailureDropsPayload(t *testing.T) {
	ctx := context.Background()
	catalog, _, blobs, _ := newTestCatalog(t)

	topic, err := catalog.AddTopic(ctx, AddTopicInput{TopicName: "Thermo"})
	require.NoError(t, err)

	blobs.PutAudioFn = func(ctx context.Context, topicID string, payload []byte) error {
		return errors.New("quota exceeded")
	}

	topic.PodcastAudio = []byte("mp3-bytes")
	updated, err := catalog.UpdateTopic(ctx, topic)
	require.NoError(t, err, "audio loss is non-fatal to the index update")

	// The payload is dropped even though the write failed, and the flag
	// stays unset. Known data-loss limitation, preserved deliberately.
	assert.Nil(t, updated.PodcastAudio)
	assert.False(t, updated.HasSavedAudio)
	_, ok := blobs.Audio(topic.ID)
	assert.False(t, ok)
}

func TestUpdateTopicPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	catalog, index, _, _ := newTestCatalog(t)

	topic, err := catalog.AddTopic(ctx, AddTopicInput{TopicName: "Thermo"})
	require.NoError(t, err)
	require.False(t, topic.CreatedAt.IsZero())

	// Callers rebuild the topic from a DTO that carries no creation time.
	updated, err := catalog.UpdateTopic(ctx, &domain.Topic{
		ID:        topic.ID,
		TopicName: "Thermodynamics",
	})
	require.NoError(t, err)
	assert.Equal(t, topic.CreatedAt, updated.CreatedAt)

	// A caller-supplied creation time is ignored too.
	updated, err = catalog.UpdateTopic(ctx, &domain.Topic{
		ID:        topic.ID,
		TopicName: "Thermodynamics",
		CreatedAt: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, topic.CreatedAt, updated.CreatedAt)

	persisted, err := index.LoadCatalogue(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, topic.CreatedAt, persisted.Topics[0].CreatedAt)
}

func TestUpdateTopicUnknownIDFails(t *testing.T) {
	catalog, _, _, _ := newTestCatalog(t)

	_, err := catalog.UpdateTopic(context.Background(), &domain.Topic{ID: "ghost", TopicName: "x"})
	assert.ErrorIs(t, err, ErrTopicNotFound)
}

func TestDeleteTopicLeavesBlobsInPlace(t *testing.T) {
	ctx := context.Background()
	catalog, index, blobs, _ := newTestCatalog(t)

	topic, err := catalog.AddTopic(ctx, AddTopicInput{TopicName: "Thermo", ShortNotes: "notes"})
	require.NoError(t, err)
	require.NoError(t, blobs.PutAudio(ctx, topic.ID, []byte("mp3")))

	require.NoError(t, catalog.DeleteTopic(ctx, topic.ID))

	persisted, err := index.LoadCatalogue(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, persisted.Topics)

	// Blob cleanup is an explicit external responsibility.
	body, err := blobs.GetBody(ctx, "u1", topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes", body)
	_, ok := blobs.Audio(topic.ID)
	assert.True(t, ok)
}

func TestCompleteRepetitionFollowsSchedule(t *testing.T) {
	ctx := context.Background()
	catalog, _, _, _ := newTestCatalog(t)

	topic, err := catalog.AddTopic(ctx, AddTopicInput{TopicName: "Thermo"})
	require.NoError(t, err)

	first, err := catalog.CompleteRepetition(ctx, topic.ID, 0.8, nil)
	require.NoError(t, err)
	require.Len(t, first.Repetitions, 1)

	rep := first.Repetitions[0]
	assert.Equal(t, 0.8, rep.Score)
	assert.WithinDuration(t,
		rep.DateCompleted.AddDate(0, 0, 1), rep.NextReviewDate, time.Second,
		"first repetition reviews after 1 day")

	second, err := catalog.CompleteRepetition(ctx, topic.ID, 0.9, nil)
	require.NoError(t, err)
	require.Len(t, second.Repetitions, 2)
	rep = second.Repetitions[1]
	assert.WithinDuration(t,
		rep.DateCompleted.AddDate(0, 0, 3), rep.NextReviewDate, time.Second,
		"second repetition reviews after 3 days")

	// The first repetition is untouched by the second completion.
	assert.Equal(t, first.Repetitions[0], second.Repetitions[0])
}

func TestLogFocusAccumulates(t *testing.T) {
	ctx := context.Background()
	catalog, _, _, _ := newTestCatalog(t)

	topic, err := catalog.AddTopic(ctx, AddTopicInput{TopicName: "Thermo"})
	require.NoError(t, err)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = catalog.LogFocus(ctx, topic.ID, day, 25)
	require.NoError(t, err)
	updated, err := catalog.LogFocus(ctx, topic.ID, day.AddDate(0, 0, 1), 50)
	require.NoError(t, err)

	assert.Len(t, updated.FocusLogs, 2)
	assert.Equal(t, 75, updated.PomodoroTimeMinutes)

	_, err = catalog.LogFocus(ctx, topic.ID, day, -5)
	assert.ErrorIs(t, err, domain.ErrNegativeMinutes)
}

func TestAddSubjectIdempotent(t *testing.T) {
	ctx := context.Background()
	catalog, _, _, _ := newTestCatalog(t)

	require.NoError(t, catalog.AddSubject(ctx, &domain.Subject{ID: "s1", Name: "Physics"}))
	require.NoError(t, catalog.AddSubject(ctx, &domain.Subject{ID: "s1", Name: "Renamed"}))

	_, subjects := catalog.Catalogue()
	require.Len(t, subjects, 1)
	assert.Equal(t, "Physics", subjects[0].Name, "second add with same id is a no-op")
}

func TestDeleteSubjectToleratesOrphans(t *testing.T) {
	ctx := context.Background()
	catalog, _, _, _ := newTestCatalog(t)

	require.NoError(t, catalog.AddSubject(ctx, &domain.Subject{ID: "s1", Name: "Physics"}))
	topic, err := catalog.AddTopic(ctx, AddTopicInput{TopicName: "Thermo", Subject: "Physics", SubjectID: "s1"})
	require.NoError(t, err)

	require.NoError(t, catalog.DeleteSubject(ctx, "s1"))

	topics, subjects := catalog.Catalogue()
	assert.Empty(t, subjects)
	require.Len(t, topics, 1)
	// The orphaned topic keeps its reference and its denormalized name.
	assert.Equal(t, "s1", topics[0].SubjectID)
	assert.Equal(t, "Physics", topics[0].Subject)
	assert.Equal(t, topic.ID, topics[0].ID)
}

func TestEnsureTopicContentHydrates(t *testing.T) {
	ctx := context.Background()
	catalog, _, blobs, _ := newTestCatalog(t)

	topic, err := catalog.AddTopic(ctx, AddTopicInput{TopicName: "Thermo", ShortNotes: "carnot"})
	require.NoError(t, err)

	// Simulate a cold boot: the topic arrives with its body stripped.
	stripped := topic.Clone()
	stripped.ShortNotes = ""

	hydrated, err := catalog.EnsureTopicContent(ctx, stripped)
	require.NoError(t, err)
	assert.Equal(t, "carnot", hydrated.ShortNotes)

	// A topic with no stored body hydrates to the empty string.
	require.NoError(t, blobs.DeleteBody(ctx, "u1", topic.ID))
	hydrated, err = catalog.EnsureTopicContent(ctx, stripped)
	require.NoError(t, err)
	assert.Empty(t, hydrated.ShortNotes)
}

func TestDeleteAudioClearsFlag(t *testing.T) {
	ctx := context.Background()
	catalog, _, blobs, _ := newTestCatalog(t)

	topic, err := catalog.AddTopic(ctx, AddTopicInput{TopicName: "Thermo"})
	require.NoError(t, err)

	topic.PodcastAudio = []byte("mp3")
	updated, err := catalog.UpdateTopic(ctx, topic)
	require.NoError(t, err)
	require.True(t, updated.HasSavedAudio)

	require.NoError(t, catalog.DeleteAudio(ctx, topic.ID))

	topics, _ := catalog.Catalogue()
	assert.False(t, topics[0].HasSavedAudio)
	_, ok := blobs.Audio(topic.ID)
	assert.False(t, ok)
}

func TestActivationHealsAudioFlags(t *testing.T) {
	ctx := context.Background()
	index := memory.NewIndexStore()
	blobs := memory.NewBlobStore()
	queue := task.NewWriteQueue(blobs.PutBody, task.DefaultWriteQueueConfig(), nil)
	defer queue.Close()

	// Audio blob written, but the process died before the index caught up.
	catalogue := store.NewCatalogue()
	catalogue.Topics = []*domain.Topic{{ID: "t1", TopicName: "Thermo", HasSavedAudio: false}}
	require.NoError(t, index.SaveCatalogue(ctx, "u1", catalogue))
	require.NoError(t, blobs.PutAudio(ctx, "t1", []byte("mp3")))

	catalog, err := NewCatalogService("u1", index, blobs, queue, nil, nil)
	require.NoError(t, err)
	require.NoError(t, catalog.Activate(ctx))

	topics, _ := catalog.Catalogue()
	require.Len(t, topics, 1)
	assert.True(t, topics[0].HasSavedAudio)
}

func TestActivationRecoversCorruptIndex(t *testing.T) {
	ctx := context.Background()
	index := memory.NewIndexStore()
	blobs := memory.NewBlobStore()
	queue := task.NewWriteQueue(blobs.PutBody, task.DefaultWriteQueueConfig(), nil)
	defer queue.Close()

	index.SeedRawCatalogue("u1", []byte("{not json"))

	catalog, err := NewCatalogService("u1", index, blobs, queue, nil, nil)
	require.NoError(t, err)
	require.NoError(t, catalog.Activate(ctx))

	topics, subjects := catalog.Catalogue()
	assert.Empty(t, topics)
	assert.Empty(t, subjects)
}
