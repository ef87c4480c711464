package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyloop/studycore/internal/domain"
	"github.com/studyloop/studycore/internal/store"
)

// placeholderSubjectName labels a subject synthesized from topics whose
// denormalized subject name is empty.
const placeholderSubjectName = "Imported subject"

// ImportMerger reconciles an externally supplied topic/subject set (a backup
// from another device or installation) against the current catalogue.
//
// Subject identity across installations is established by NAME, not by ID:
// ids are generated independently per device, so matching on id alone would
// silently duplicate every subject on import. Conversely, two unrelated
// subjects from different sources can coincidentally share a generated id,
// which is resolved by minting a fresh id for the incomer.
type ImportMerger struct {
	blobs  store.BlobStore
	logger *slog.Logger
	now    func() time.Time
}

// NewImportMerger creates a new ImportMerger.
func NewImportMerger(blobs store.BlobStore, logger *slog.Logger) *ImportMerger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportMerger{
		blobs:  blobs,
		logger: logger.With(slog.String("component", "import_merger")),
		now:    time.Now,
	}
}

// Merge merges the imported topics and subjects into the catalogue, mutating
// it in place. importedSubjects may be nil or empty, in which case subjects
// are reconstructed from the topics' subject references.
//
// Every imported topic with a non-empty note body has the body written to
// the blob store before the catalogue mutation commits, so that subsequent
// index persistence (which strips bodies) cannot lose content. Body writes
// are awaited; a failed write is logged and that topic imports with its
// body only in the index-stripped form.
func (m *ImportMerger) Merge(
	ctx context.Context,
	userID string,
	catalogue *store.Catalogue,
	importedTopics []*domain.Topic,
	importedSubjects []*domain.Subject,
) error {
	if len(importedSubjects) == 0 {
		importedSubjects = synthesizeSubjects(importedTopics)
	}

	// Resolve each imported subject against the current list, building the
	// id remap for topics as we go.
	idMap := make(map[string]string, len(importedSubjects))
	for _, imported := range importedSubjects {
		if existing := findSubjectByName(catalogue.Subjects, imported.Name); existing != nil {
			// Name match: reunify under the existing subject, no new entry.
			idMap[imported.ID] = existing.ID
			continue
		}

		if findSubjectByID(catalogue.Subjects, imported.ID) != nil {
			// Unrelated subject happens to share a generated id: mint a new
			// one and append the incomer under it.
			newID := fmt.Sprintf("%s_%d", imported.ID, m.now().Unix())
			m.logger.Info("imported subject id collides, minting new id",
				"imported_id", imported.ID,
				"new_id", newID,
				"subject_name", imported.Name)
			idMap[imported.ID] = newID
			catalogue.Subjects = append(catalogue.Subjects, &domain.Subject{
				ID:   newID,
				Name: imported.Name,
			})
			continue
		}

		// No name match, no id collision: keep verbatim.
		idMap[imported.ID] = imported.ID
		catalogue.Subjects = append(catalogue.Subjects, &domain.Subject{
			ID:   imported.ID,
			Name: imported.Name,
		})
	}

	// Persist imported note bodies before touching the topic list.
	for _, topic := range importedTopics {
		if topic.ShortNotes == "" {
			continue
		}
		if err := m.blobs.PutBody(ctx, userID, topic.ID, topic.ShortNotes); err != nil {
			m.logger.Error("failed to persist imported note body",
				"user_id", userID,
				"topic_id", topic.ID,
				"error", err)
		}
	}

	// Remap subject references and merge topics by id, import winning on
	// conflict.
	for _, imported := range importedTopics {
		topic := imported.Clone()

		if topic.SubjectID != "" {
			if mapped, ok := idMap[topic.SubjectID]; ok {
				topic.SubjectID = mapped
			}
			if resolved := findSubjectByID(catalogue.Subjects, topic.SubjectID); resolved != nil {
				topic.Subject = resolved.Name
			}
		}

		if i := findTopicIndex(catalogue.Topics, topic.ID); i >= 0 {
			catalogue.Topics[i] = topic
		} else {
			catalogue.Topics = append(catalogue.Topics, topic)
		}
	}

	m.logger.Info("import merge complete",
		"user_id", userID,
		"imported_topics", len(importedTopics),
		"imported_subjects", len(importedSubjects),
		"catalogue_topics", len(catalogue.Topics),
		"catalogue_subjects", len(catalogue.Subjects))
	return nil
}

// synthesizeSubjects reconstructs a subject list from the topics' distinct
// subject references, used when the import carries no subject list of its
// own (older backup formats).
func synthesizeSubjects(topics []*domain.Topic) []*domain.Subject {
	seen := make(map[string]struct{})
	var subjects []*domain.Subject
	for _, topic := range topics {
		if topic.SubjectID == "" {
			continue
		}
		if _, ok := seen[topic.SubjectID]; ok {
			continue
		}
		seen[topic.SubjectID] = struct{}{}

		name := topic.Subject
		if name == "" {
			name = placeholderSubjectName
		}
		subjects = append(subjects, &domain.Subject{ID: topic.SubjectID, Name: name})
	}
	return subjects
}

func findSubjectByName(subjects []*domain.Subject, name string) *domain.Subject {
	for _, s := range subjects {
		if s.SameName(name) {
			return s
		}
	}
	return nil
}

func findSubjectByID(subjects []*domain.Subject, id string) *domain.Subject {
	for _, s := range subjects {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func findTopicIndex(topics []*domain.Topic, id string) int {
	for i, t := range topics {
		if t.ID == id {
			return i
		}
	}
	return -1
}
