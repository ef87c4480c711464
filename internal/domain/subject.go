package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Subject groups topics under a display name. Subject IDs are generated
// independently per installation, so identity across backups is established
// by name, not by ID (see SameName).
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewSubject creates a new Subject with a freshly minted ID.
// Returns an error if validation fails.
func NewSubject(name string) (*Subject, error) {
	subject := &Subject{
		ID:   uuid.NewString(),
		Name: name,
	}

	if err := subject.Validate(); err != nil {
		return nil, err
	}

	return subject, nil
}

// Validate checks if the Subject has valid data.
func (s *Subject) Validate() error {
	if s.ID == "" {
		return ErrSubjectIDEmpty
	}
	if s.Name == "" {
		return ErrSubjectNameEmpty
	}
	return nil
}

// SameName reports whether the subject's name matches the given name under
// the merge identity rule: case-insensitive, with surrounding whitespace
// ignored.
func (s *Subject) SameName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(s.Name), strings.TrimSpace(name))
}
