package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubject(t *testing.T) {
	subject, err := NewSubject("Physics")
	require.NoError(t, err)
	assert.NotEmpty(t, subject.ID)
	assert.Equal(t, "Physics", subject.Name)

	_, err = NewSubject("")
	assert.ErrorIs(t, err, ErrSubjectNameEmpty)
}

func TestSubjectSameName(t *testing.T) {
	subject := &Subject{ID: "s1", Name: "Physics"}

	assert.True(t, subject.SameName("Physics"))
	assert.True(t, subject.SameName("physics"))
	assert.True(t, subject.SameName("  PHYSICS  "))
	assert.False(t, subject.SameName("Physic"))
	assert.False(t, subject.SameName(""))

	padded := &Subject{ID: "s2", Name: " physics "}
	assert.True(t, padded.SameName("Physics"))
}
