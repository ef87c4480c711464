package api

import (
	"encoding/json"
	"time"

	"github.com/studyloop/studycore/internal/domain"
)

// Common request/response structures

// AddTopicRequest defines the payload for creating a topic.
type AddTopicRequest struct {
	TopicName  string `json:"topicName"            validate:"required,min=1"`
	Subject    string `json:"subject"`
	SubjectID  string `json:"subjectId"`
	ShortNotes string `json:"shortNotes"`
}

// UpdateTopicRequest defines the payload for replacing a topic's fields.
// PodcastAudio carries a base64-encoded payload when an AI producer hands
// back generated audio.
type UpdateTopicRequest struct {
	TopicName     string              `json:"topicName"     validate:"required,min=1"`
	Subject       string              `json:"subject"`
	SubjectID     string              `json:"subjectId"`
	ShortNotes    string              `json:"shortNotes"`
	HasSavedAudio bool                `json:"hasSavedAudio"`
	PodcastAudio  []byte              `json:"podcastAudio,omitempty"`
	Repetitions   []domain.Repetition `json:"repetitions"`
	FocusLogs     []domain.FocusLog   `json:"focusLogs"`
	PomodoroTime  int                 `json:"pomodoroTimeMinutes"`
}

// SubjectRequest defines the payload for creating or updating a subject.
type SubjectRequest struct {
	ID   string `json:"id"   validate:"required"`
	Name string `json:"name" validate:"required,min=1"`
}

// CompleteRepetitionRequest defines the payload for recording a review.
type CompleteRepetitionRequest struct {
	Score       float64         `json:"score"`
	QuizAttempt json.RawMessage `json:"quizAttempt,omitempty"`
}

// LogFocusRequest defines the payload for recording focused study time.
type LogFocusRequest struct {
	Date    time.Time `json:"date"    validate:"required"`
	Minutes int       `json:"minutes" validate:"gte=0"`
}

// ImportRequest defines the payload for merging a backup into the catalogue.
type ImportRequest struct {
	Topics   []*domain.Topic   `json:"topics"   validate:"required"`
	Subjects []*domain.Subject `json:"subjects,omitempty"`
}

// TopicResponse represents the response data for a topic. Note bodies appear
// only when the caller asked for hydration; audio payloads never appear.
type TopicResponse struct {
	ID                  string              `json:"id"`
	TopicName           string              `json:"topicName"`
	Subject             string              `json:"subject"`
	SubjectID           string              `json:"subjectId,omitempty"`
	ShortNotes          string              `json:"shortNotes"`
	CreatedAt           time.Time           `json:"createdAt"`
	Repetitions         []domain.Repetition `json:"repetitions"`
	FocusLogs           []domain.FocusLog   `json:"focusLogs"`
	PomodoroTimeMinutes int                 `json:"pomodoroTimeMinutes"`
	HasSavedAudio       bool                `json:"hasSavedAudio"`
}

// CatalogueResponse represents the full catalogue for a user.
type CatalogueResponse struct {
	Topics   []TopicResponse   `json:"topics"`
	Subjects []*domain.Subject `json:"subjects"`
}

// topicToResponse converts a domain.Topic to a TopicResponse.
func topicToResponse(topic *domain.Topic) TopicResponse {
	return TopicResponse{
		ID:                  topic.ID,
		TopicName:           topic.TopicName,
		Subject:             topic.Subject,
		SubjectID:           topic.SubjectID,
		ShortNotes:          topic.ShortNotes,
		CreatedAt:           topic.CreatedAt,
		Repetitions:         topic.Repetitions,
		FocusLogs:           topic.FocusLogs,
		PomodoroTimeMinutes: topic.PomodoroTimeMinutes,
		HasSavedAudio:       topic.HasSavedAudio,
	}
}
