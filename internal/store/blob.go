package store

import "context"

// BlobStore defines the interface for the larger, slower content tier holding
// note bodies (keyed by user + topic) and podcast audio (keyed by topic).
//
// Operations fail independently per key. Callers running batches over many
// keys must treat a failure on one key as best-effort: log it and continue
// with the remaining keys rather than aborting the batch.
type BlobStore interface {
	// PutBody stores the note body for the (user, topic) key, replacing any
	// previous value. Storing an empty string is valid and acts as a
	// placeholder for a topic that has no notes yet.
	PutBody(ctx context.Context, userID, topicID, text string) error

	// GetBody retrieves the note body for the (user, topic) key.
	// Returns ErrBodyNotFound if no body is stored.
	GetBody(ctx context.Context, userID, topicID string) (string, error)

	// DeleteBody removes the note body for the (user, topic) key.
	// Deleting an absent key is not an error.
	DeleteBody(ctx context.Context, userID, topicID string) error

	// PutAudio stores the audio payload for the topic, replacing any
	// previous value.
	PutAudio(ctx context.Context, topicID string, payload []byte) error

	// DeleteAudio removes the audio payload for the topic.
	// Deleting an absent key is not an error.
	DeleteAudio(ctx context.Context, topicID string) error

	// ListAudioKeys enumerates the set of topic IDs that currently have a
	// stored audio payload.
	ListAudioKeys(ctx context.Context) (map[string]struct{}, error)
}
