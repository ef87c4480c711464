package service

import (
	"context"
	"log/slog"

	"github.com/studyloop/studycore/internal/store"
)

// AudioReconciler heals the drift between the index's HasSavedAudio flag and
// the blob store's actual audio key set. It runs unconditionally at every
// boot, after the catalogue is loaded.
//
// The healing direction is deliberately one-way: a blob that exists forces
// the flag to true, but a flag set true without a matching blob is left
// alone. Deletion flows clear the flag explicitly, so the stale-true case is
// a tolerated soft inconsistency rather than something to correct here.
type AudioReconciler struct {
	blobs  store.BlobStore
	logger *slog.Logger
}

// NewAudioReconciler creates a new AudioReconciler.
func NewAudioReconciler(blobs store.BlobStore, logger *slog.Logger) *AudioReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioReconciler{
		blobs:  blobs,
		logger: logger.With(slog.String("component", "audio_reconciler")),
	}
}

// Run reconciles the catalogue in place. If enumerating the audio keys fails
// the pass is skipped entirely for this boot: no topic is ever marked
// audio-less on the strength of a failed listing.
func (r *AudioReconciler) Run(ctx context.Context, catalogue *store.Catalogue) {
	keys, err := r.blobs.ListAudioKeys(ctx)
	if err != nil {
		r.logger.Error("audio key enumeration failed, skipping reconciliation for this boot",
			"error", err)
		return
	}

	var healed int
	for _, topic := range catalogue.Topics {
		if _, ok := keys[topic.ID]; ok {
			if !topic.HasSavedAudio {
				healed++
			}
			topic.HasSavedAudio = true
		}
	}

	if healed > 0 {
		r.logger.Info("reconciled audio flags",
			"healed_count", healed,
			"audio_key_count", len(keys))
	}
}
