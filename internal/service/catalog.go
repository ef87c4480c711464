package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/studyloop/studycore/internal/domain"
	"github.com/studyloop/studycore/internal/domain/srs"
	"github.com/studyloop/studycore/internal/platform/logger"
	"github.com/studyloop/studycore/internal/store"
	"github.com/studyloop/studycore/internal/task"
)

// CatalogService is the per-user study catalogue controller. It exclusively
// owns the in-memory catalogue for its user, sequences the boot-time
// load/migrate/reconcile pass, persists the index on every mutation, and
// offloads large content (note bodies, podcast audio) to the blob store.
//
// A handle is created per active user and torn down on user switch; there is
// no ambient singleton. Mutations are rejected with ErrNotReady until
// Activate has completed.
type CatalogService struct {
	userID   string
	index    store.IndexStore
	blobs    store.BlobStore
	queue    *task.WriteQueue
	schedule *srs.Schedule
	logger   *slog.Logger

	mu        sync.Mutex
	catalogue *store.Catalogue
	ready     bool
}

// AddTopicInput carries the caller-supplied fields for a new topic.
type AddTopicInput struct {
	TopicName  string
	Subject    string
	SubjectID  string
	ShortNotes string
}

// NewCatalogService creates a catalogue controller for the user. The handle
// is not usable for mutations until Activate has been called.
// It returns an error if any of the required dependencies are nil.
func NewCatalogService(
	userID string,
	index store.IndexStore,
	blobs store.BlobStore,
	queue *task.WriteQueue,
	schedule *srs.Schedule,
	log *slog.Logger,
) (*CatalogService, error) {
	if userID == "" {
		return nil, domain.NewValidationError("userID", "cannot be empty", domain.ErrValidation)
	}
	if index == nil {
		return nil, domain.NewValidationError("index", "cannot be nil", domain.ErrValidation)
	}
	if blobs == nil {
		return nil, domain.NewValidationError("blobs", "cannot be nil", domain.ErrValidation)
	}
	if queue == nil {
		return nil, domain.NewValidationError("queue", "cannot be nil", domain.ErrValidation)
	}
	if schedule == nil {
		schedule = srs.NewDefaultSchedule()
	}
	if log == nil {
		log = slog.Default()
	}

	return &CatalogService{
		userID:   userID,
		index:    index,
		blobs:    blobs,
		queue:    queue,
		schedule: schedule,
		logger: log.With(
			slog.String("component", "catalog_service"),
			slog.String("user_id", userID)),
		catalogue: store.NewCatalogue(),
	}, nil
}

// Activate loads the user's catalogue, runs the one-time notes migration if
// still pending, reconciles audio flags against the blob store, and marks
// the handle ready for mutation. The ordering is strict: external callers
// never observe the catalogue mid-migration.
func (s *CatalogService) Activate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalogue, err := s.index.LoadCatalogue(ctx, s.userID)
	if err != nil {
		return NewCatalogServiceError("activate", "failed to load catalogue", err)
	}

	migration := NewMigrationEngine(s.index, s.blobs, s.logger)
	if err := migration.Run(ctx, s.userID, catalogue); err != nil {
		return NewCatalogServiceError("activate", "notes migration failed", err)
	}

	reconciler := NewAudioReconciler(s.blobs, s.logger)
	reconciler.Run(ctx, catalogue)

	s.catalogue = catalogue
	s.ready = true

	s.logger.Info("catalogue activated",
		"topic_count", len(catalogue.Topics),
		"subject_count", len(catalogue.Subjects))
	return nil
}

// Ready reports whether the handle has completed activation.
func (s *CatalogService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Catalogue returns copies of the committed topics and subjects.
func (s *CatalogService) Catalogue() ([]*domain.Topic, []*domain.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := make([]*domain.Topic, len(s.catalogue.Topics))
	for i, t := range s.catalogue.Topics {
		topics[i] = t.Clone()
	}
	subjects := make([]*domain.Subject, len(s.catalogue.Subjects))
	for i, sub := range s.catalogue.Subjects {
		clone := *sub
		subjects[i] = &clone
	}
	return topics, subjects
}

// AddTopic creates a new topic with empty repetition and focus histories,
// eagerly persists its body to the blob store, appends it to the catalogue
// and persists the index. Returns the created topic.
func (s *CatalogService) AddTopic(ctx context.Context, input AddTopicInput) (*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	topic, err := domain.NewTopic(input.TopicName, input.Subject, input.SubjectID, input.ShortNotes)
	if err != nil {
		return nil, NewCatalogServiceError("add_topic", "invalid topic data", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, ErrNotReady
	}

	// Eager placeholder write: the blob key exists from the moment the topic
	// does, even when the topic starts with no notes. Awaited, best-effort.
	if err := s.blobs.PutBody(ctx, s.userID, topic.ID, topic.ShortNotes); err != nil {
		log.Error("failed to persist initial note body",
			"topic_id", topic.ID,
			"error", err)
	}

	s.catalogue.Topics = append(s.catalogue.Topics, topic)
	s.persistLocked(ctx, log)

	log.Debug("topic added", "topic_id", topic.ID, "topic_name", topic.TopicName)
	return topic.Clone(), nil
}

// UpdateTopic replaces the stored topic with the given one and handles its
// large content:
//
//   - A present PodcastAudio payload is written to the blob store; on
//     success HasSavedAudio is set. On failure the error is logged, the flag
//     is NOT set, and the payload is dropped regardless: the audio is lost
//     but the index update proceeds. (Known limitation, preserved behavior.)
//   - A non-empty ShortNotes body is handed to the background write queue
//     and NOT awaited: the caller sees the committed in-memory state
//     immediately while the durable body write races behind it.
//
// Returns the committed topic, already index-safe (audio stripped).
func (s *CatalogService) UpdateTopic(ctx context.Context, topic *domain.Topic) (*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := topic.Validate(); err != nil {
		return nil, NewCatalogServiceError("update_topic", "invalid topic data", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, ErrNotReady
	}

	i := findTopicIndex(s.catalogue.Topics, topic.ID)
	if i < 0 {
		return nil, NewCatalogServiceError("update_topic", "topic not in catalogue", ErrTopicNotFound)
	}

	updated := topic.Clone()
	// CreatedAt is set once at creation; the stored value always wins over
	// whatever the caller sent.
	updated.CreatedAt = s.catalogue.Topics[i].CreatedAt

	if len(updated.PodcastAudio) > 0 {
		if err := s.blobs.PutAudio(ctx, updated.ID, updated.PodcastAudio); err != nil {
			log.Error("failed to persist podcast audio, payload dropped",
				"topic_id", updated.ID,
				"error", err)
		} else {
			updated.HasSavedAudio = true
		}
		updated.PodcastAudio = nil
	}

	if updated.ShortNotes != "" {
		err := s.queue.Enqueue(task.BodyWrite{
			UserID:  s.userID,
			TopicID: updated.ID,
			Text:    updated.ShortNotes,
		})
		if err != nil {
			log.Error("failed to enqueue note body write, body not persisted",
				"topic_id", updated.ID,
				"error", err)
		}
	}

	s.catalogue.Topics[i] = updated
	s.persistLocked(ctx, log)

	return updated.Clone(), nil
}

// DeleteTopic removes the topic from the catalogue. The topic's blob entries
// (body, audio) are deliberately left in place: cleanup is an explicit
// external responsibility via DeleteTopicBody and DeleteAudio.
func (s *CatalogService) DeleteTopic(ctx context.Context, topicID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}

	i := findTopicIndex(s.catalogue.Topics, topicID)
	if i < 0 {
		return NewCatalogServiceError("delete_topic", "topic not in catalogue", ErrTopicNotFound)
	}

	s.catalogue.Topics = append(s.catalogue.Topics[:i], s.catalogue.Topics[i+1:]...)
	s.persistLocked(ctx, log)

	log.Debug("topic deleted", "topic_id", topicID)
	return nil
}

// CompleteRepetition appends a repetition record to the topic, deriving the
// next review date from the spacing schedule at the topic's current
// repetition ordinal. Repetitions are append-only.
func (s *CatalogService) CompleteRepetition(
	ctx context.Context,
	topicID string,
	score float64,
	quizAttempt json.RawMessage,
) (*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, ErrNotReady
	}

	i := findTopicIndex(s.catalogue.Topics, topicID)
	if i < 0 {
		return nil, NewCatalogServiceError("complete_repetition", "topic not in catalogue", ErrTopicNotFound)
	}
	topic := s.catalogue.Topics[i]

	now := time.Now().UTC()
	topic.Repetitions = append(topic.Repetitions, domain.Repetition{
		DateCompleted:  now,
		NextReviewDate: s.schedule.NextReviewDate(len(topic.Repetitions), now),
		Score:          score,
		QuizAttempt:    quizAttempt,
	})
	s.persistLocked(ctx, log)

	log.Debug("repetition completed",
		"topic_id", topicID,
		"repetition_count", len(topic.Repetitions),
		"score", score)
	return topic.Clone(), nil
}

// LogFocus appends a focus log entry to the topic and accumulates its
// pomodoro total.
func (s *CatalogService) LogFocus(ctx context.Context, topicID string, date time.Time, minutes int) (*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if minutes < 0 {
		return nil, NewCatalogServiceError("log_focus", "invalid duration", domain.ErrNegativeMinutes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, ErrNotReady
	}

	i := findTopicIndex(s.catalogue.Topics, topicID)
	if i < 0 {
		return nil, NewCatalogServiceError("log_focus", "topic not in catalogue", ErrTopicNotFound)
	}
	topic := s.catalogue.Topics[i]

	topic.FocusLogs = append(topic.FocusLogs, domain.FocusLog{Date: date, Minutes: minutes})
	topic.PomodoroTimeMinutes += minutes
	s.persistLocked(ctx, log)

	return topic.Clone(), nil
}

// AddSubject appends the subject to the catalogue. Idempotent: adding a
// subject whose id already exists is a no-op.
func (s *CatalogService) AddSubject(ctx context.Context, subject *domain.Subject) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := subject.Validate(); err != nil {
		return NewCatalogServiceError("add_subject", "invalid subject data", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}

	if findSubjectByID(s.catalogue.Subjects, subject.ID) != nil {
		return nil
	}

	clone := *subject
	s.catalogue.Subjects = append(s.catalogue.Subjects, &clone)
	s.persistLocked(ctx, log)
	return nil
}

// UpdateSubject replaces the stored subject with the given one.
func (s *CatalogService) UpdateSubject(ctx context.Context, subject *domain.Subject) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := subject.Validate(); err != nil {
		return NewCatalogServiceError("update_subject", "invalid subject data", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}

	existing := findSubjectByID(s.catalogue.Subjects, subject.ID)
	if existing == nil {
		return NewCatalogServiceError("update_subject", "subject not in catalogue", ErrSubjectNotFound)
	}

	existing.Name = subject.Name
	s.persistLocked(ctx, log)
	return nil
}

// DeleteSubject removes the subject from the catalogue. Topics referencing
// it are left untouched: orphaning is tolerated and each topic keeps its
// denormalized subject name as a fallback label.
func (s *CatalogService) DeleteSubject(ctx context.Context, subjectID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}

	for i, subject := range s.catalogue.Subjects {
		if subject.ID == subjectID {
			s.catalogue.Subjects = append(s.catalogue.Subjects[:i], s.catalogue.Subjects[i+1:]...)
			s.persistLocked(ctx, log)
			return nil
		}
	}
	return NewCatalogServiceError("delete_subject", "subject not in catalogue", ErrSubjectNotFound)
}

// ImportCatalogue merges an externally supplied topic/subject set into the
// catalogue via the import merger. All blob writes for imported bodies are
// awaited before this returns.
func (s *CatalogService) ImportCatalogue(
	ctx context.Context,
	topics []*domain.Topic,
	subjects []*domain.Subject,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}

	merger := NewImportMerger(s.blobs, s.logger)
	if err := merger.Merge(ctx, s.userID, s.catalogue, topics, subjects); err != nil {
		return NewCatalogServiceError("import_catalogue", "merge failed", err)
	}

	s.persistLocked(ctx, log)
	return nil
}

// EnsureTopicContent returns a copy of the topic with ShortNotes hydrated
// from the blob store. A topic that already carries its body is returned
// as-is; a missing blob hydrates to the empty string.
func (s *CatalogService) EnsureTopicContent(ctx context.Context, topic *domain.Topic) (*domain.Topic, error) {
	if topic.ShortNotes != "" {
		return topic, nil
	}

	body, err := s.blobs.GetBody(ctx, s.userID, topic.ID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return topic, nil
		}
		return nil, NewCatalogServiceError("ensure_topic_content", "failed to read note body", err)
	}

	hydrated := topic.Clone()
	hydrated.ShortNotes = body
	return hydrated, nil
}

// DeleteTopicBody removes the topic's note body from the blob store. Exposed
// for callers performing full topic teardown; ordinary topic deletion does
// not call it.
func (s *CatalogService) DeleteTopicBody(ctx context.Context, topicID string) error {
	return s.blobs.DeleteBody(ctx, s.userID, topicID)
}

// DeleteAudio removes the topic's audio payload from the blob store and
// clears the topic's HasSavedAudio flag if the topic is still in the
// catalogue. This explicit clear is what makes the reconciler's one-way
// healing safe.
func (s *CatalogService) DeleteAudio(ctx context.Context, topicID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.blobs.DeleteAudio(ctx, topicID); err != nil {
		return NewCatalogServiceError("delete_audio", "failed to delete audio payload", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := findTopicIndex(s.catalogue.Topics, topicID); i >= 0 {
		s.catalogue.Topics[i].HasSavedAudio = false
		s.persistLocked(ctx, log)
	}
	return nil
}

// persistLocked writes the current catalogue to the index with every topic's
// content stripped. Must be called with s.mu held.
//
// An index write failure is logged and swallowed: the committed in-memory
// state is now ahead of disk, which is the accepted degradation. The write
// is not retried automatically; the next mutation persists the full state
// again anyway.
func (s *CatalogService) persistLocked(ctx context.Context, log *slog.Logger) {
	stripped := &store.Catalogue{
		Topics:   make([]*domain.Topic, len(s.catalogue.Topics)),
		Subjects: s.catalogue.Subjects,
	}
	for i, topic := range s.catalogue.Topics {
		clone := topic.Clone()
		clone.StripContent()
		stripped.Topics[i] = clone
	}

	if err := s.index.SaveCatalogue(ctx, s.userID, stripped); err != nil {
		log.Error("failed to persist catalogue, in-memory state is ahead of disk",
			"error", err)
	}
}
