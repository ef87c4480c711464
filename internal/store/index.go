package store

import (
	"context"

	"github.com/studyloop/studycore/internal/domain"
)

// Catalogue is the per-user index record: the full topic and subject lists
// minus large content. This is what IndexStore serializes.
type Catalogue struct {
	Topics   []*domain.Topic   `json:"topics"`
	Subjects []*domain.Subject `json:"subjects"`
}

// NewCatalogue returns an empty catalogue with non-nil slices.
func NewCatalogue() *Catalogue {
	return &Catalogue{
		Topics:   []*domain.Topic{},
		Subjects: []*domain.Subject{},
	}
}

// IsEmpty reports whether the catalogue holds no topics and no subjects.
func (c *Catalogue) IsEmpty() bool {
	return len(c.Topics) == 0 && len(c.Subjects) == 0
}

// IndexStore defines the interface for the small, fast metadata tier.
//
// Writes across distinct keys (catalogue, migration flag, backup) are NOT
// atomic with respect to each other: a crash between SaveCatalogue and
// SetMigrationFlag must leave the system in a state where the migration can
// safely be repeated.
type IndexStore interface {
	// LoadCatalogue retrieves the catalogue for the user. A missing record
	// yields an empty catalogue. A record that fails to deserialize also
	// yields an empty catalogue and a nil error: the failure is recovered
	// locally and surfaced only as a diagnostic log, never to the caller.
	LoadCatalogue(ctx context.Context, userID string) (*Catalogue, error)

	// SaveCatalogue persists the catalogue for the user, replacing any
	// previous record. Callers are responsible for stripping note bodies and
	// audio from every topic before saving; the index is the authoritative
	// metadata record only.
	SaveCatalogue(ctx context.Context, userID string, catalogue *Catalogue) error

	// LoadRawCatalogue returns the stored catalogue bytes verbatim, or
	// ErrNotFound if no record exists. Used to take pre-migration backups.
	LoadRawCatalogue(ctx context.Context, userID string) ([]byte, error)

	// SaveMigrationBackup stores a raw pre-migration snapshot under a
	// distinct backup key. Write-once: if a backup already exists for the
	// user it is left intact and the call is a no-op.
	SaveMigrationBackup(ctx context.Context, userID string, raw []byte) error

	// LoadMigrationFlag reports whether the one-time notes migration has
	// completed for the user.
	LoadMigrationFlag(ctx context.Context, userID string) (bool, error)

	// SetMigrationFlag marks the one-time notes migration as completed.
	SetMigrationFlag(ctx context.Context, userID string) error
}
