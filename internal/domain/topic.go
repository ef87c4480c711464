package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic represents a single study unit in a user's catalogue.
//
// Two fields are special with respect to persistence: ShortNotes holds the
// note body only while the topic is being edited in memory. Every record
// written to the index carries an empty string there, with the real content
// living in the blob store keyed by (user, topic). PodcastAudio is transient
// in the same way: the service offloads it to the blob store and clears the
// field before the topic ever reaches the index.
type Topic struct {
	ID                  string       `json:"id"`
	TopicName           string       `json:"topicName"`
	Subject             string       `json:"subject"`
	SubjectID           string       `json:"subjectId,omitempty"`
	ShortNotes          string       `json:"shortNotes"`
	CreatedAt           time.Time    `json:"createdAt"`
	Repetitions         []Repetition `json:"repetitions"`
	FocusLogs           []FocusLog   `json:"focusLogs"`
	PomodoroTimeMinutes int          `json:"pomodoroTimeMinutes"`
	HasSavedAudio       bool         `json:"hasSavedAudio"`
	PodcastAudio        []byte       `json:"-"`
}

// Repetition records one completed review of a topic. Entries are append-only:
// once a repetition is recorded it is never modified.
type Repetition struct {
	DateCompleted  time.Time       `json:"dateCompleted"`
	NextReviewDate time.Time       `json:"nextReviewDate"`
	Score          float64         `json:"score"`
	QuizAttempt    json.RawMessage `json:"quizAttempt,omitempty"`
}

// FocusLog records minutes of focused study on a given date.
type FocusLog struct {
	Date    time.Time `json:"date"`
	Minutes int       `json:"minutes"`
}

// NewTopic creates a new Topic with a freshly minted ID, empty repetition and
// focus histories, and zero accumulated pomodoro time.
// Returns an error if validation fails.
func NewTopic(topicName, subjectName, subjectID, shortNotes string) (*Topic, error) {
	topic := &Topic{
		ID:          uuid.NewString(),
		TopicName:   topicName,
		Subject:     subjectName,
		SubjectID:   subjectID,
		ShortNotes:  shortNotes,
		CreatedAt:   time.Now().UTC(),
		Repetitions: []Repetition{},
		FocusLogs:   []FocusLog{},
	}

	if err := topic.Validate(); err != nil {
		return nil, err
	}

	return topic, nil
}

// Validate checks if the Topic has valid data.
// Returns an error if any field fails validation.
func (t *Topic) Validate() error {
	if t.ID == "" {
		return ErrTopicIDEmpty
	}
	if t.TopicName == "" {
		return ErrTopicNameEmpty
	}
	return nil
}

// Clone returns a deep copy of the topic. The service layer hands copies to
// callers so its committed state cannot be mutated from outside.
func (t *Topic) Clone() *Topic {
	clone := *t
	clone.Repetitions = make([]Repetition, len(t.Repetitions))
	copy(clone.Repetitions, t.Repetitions)
	clone.FocusLogs = make([]FocusLog, len(t.FocusLogs))
	copy(clone.FocusLogs, t.FocusLogs)
	if t.PodcastAudio != nil {
		clone.PodcastAudio = make([]byte, len(t.PodcastAudio))
		copy(clone.PodcastAudio, t.PodcastAudio)
	}
	return &clone
}

// StripContent clears the fields that must never reach the index: the note
// body and any transient podcast audio payload.
func (t *Topic) StripContent() {
	t.ShortNotes = ""
	t.PodcastAudio = nil
}
