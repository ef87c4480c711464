package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/studyloop/studycore/internal/api/shared"
	"github.com/studyloop/studycore/internal/domain"
	"github.com/studyloop/studycore/internal/service"
)

// CatalogHandler handles catalogue-related HTTP requests. Every route is
// scoped by the user ID path parameter; the handler activates (or reuses)
// the user's catalogue handle through the registry.
type CatalogHandler struct {
	registry  *service.Registry
	validator *validator.Validate
	logger    *slog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(registry *service.Registry, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{
		registry:  registry,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "catalog_handler")),
	}
}

// Routes registers the catalogue routes on the router.
func (h *CatalogHandler) Routes(r chi.Router) {
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/catalogue", h.GetCatalogue)
		r.Post("/import", h.ImportCatalogue)

		r.Route("/topics", func(r chi.Router) {
			r.Post("/", h.AddTopic)
			r.Put("/{topicID}", h.UpdateTopic)
			r.Delete("/{topicID}", h.DeleteTopic)
			r.Get("/{topicID}/body", h.GetTopicBody)
			r.Delete("/{topicID}/body", h.DeleteTopicBody)
			r.Delete("/{topicID}/audio", h.DeleteAudio)
			r.Post("/{topicID}/repetitions", h.CompleteRepetition)
			r.Post("/{topicID}/focus", h.LogFocus)
		})

		r.Route("/subjects", func(r chi.Router) {
			r.Post("/", h.AddSubject)
			r.Put("/{subjectID}", h.UpdateSubject)
			r.Delete("/{subjectID}", h.DeleteSubject)
		})
	})
}

// handle activates and returns the catalogue handle for the request's user.
func (h *CatalogHandler) handle(w http.ResponseWriter, r *http.Request) (*service.CatalogService, bool) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "User ID is required", nil)
		return nil, false
	}

	catalog, err := h.registry.Activate(r.Context(), userID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to activate catalogue", err)
		return nil, false
	}
	return catalog, true
}

// respondServiceError maps service errors to HTTP status codes.
func respondServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case errors.Is(err, service.ErrTopicNotFound), errors.Is(err, service.ErrSubjectNotFound):
		shared.RespondWithError(w, r, http.StatusNotFound, message, err)
	case errors.Is(err, service.ErrNotReady):
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, message, err)
	case errors.Is(err, domain.ErrValidation):
		shared.RespondWithError(w, r, http.StatusBadRequest, message, err)
	default:
		shared.RespondWithError(w, r, http.StatusInternalServerError, message, err)
	}
}

// GetCatalogue handles GET /api/users/{userID}/catalogue requests.
func (h *CatalogHandler) GetCatalogue(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	topics, subjects := catalog.Catalogue()
	response := CatalogueResponse{
		Topics:   make([]TopicResponse, len(topics)),
		Subjects: subjects,
	}
	for i, topic := range topics {
		response.Topics[i] = topicToResponse(topic)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// AddTopic handles POST /api/users/{userID}/topics requests.
func (h *CatalogHandler) AddTopic(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	var req AddTopicRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error(), err)
		return
	}

	topic, err := catalog.AddTopic(r.Context(), service.AddTopicInput{
		TopicName:  req.TopicName,
		Subject:    req.Subject,
		SubjectID:  req.SubjectID,
		ShortNotes: req.ShortNotes,
	})
	if err != nil {
		respondServiceError(w, r, "Failed to add topic", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, topicToResponse(topic))
}

// UpdateTopic handles PUT /api/users/{userID}/topics/{topicID} requests.
func (h *CatalogHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	var req UpdateTopicRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error(), err)
		return
	}

	topic := &domain.Topic{
		ID:                  chi.URLParam(r, "topicID"),
		TopicName:           req.TopicName,
		Subject:             req.Subject,
		SubjectID:           req.SubjectID,
		ShortNotes:          req.ShortNotes,
		Repetitions:         req.Repetitions,
		FocusLogs:           req.FocusLogs,
		PomodoroTimeMinutes: req.PomodoroTime,
		HasSavedAudio:       req.HasSavedAudio,
		PodcastAudio:        req.PodcastAudio,
	}

	updated, err := catalog.UpdateTopic(r.Context(), topic)
	if err != nil {
		respondServiceError(w, r, "Failed to update topic", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, topicToResponse(updated))
}

// DeleteTopic handles DELETE /api/users/{userID}/topics/{topicID} requests.
// The topic's blob entries are left in place; see the body and audio delete
// endpoints for explicit cleanup.
func (h *CatalogHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	if err := catalog.DeleteTopic(r.Context(), chi.URLParam(r, "topicID")); err != nil {
		respondServiceError(w, r, "Failed to delete topic", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTopicBody handles GET /api/users/{userID}/topics/{topicID}/body
// requests, returning the topic with its note body hydrated from the blob
// store.
func (h *CatalogHandler) GetTopicBody(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	topicID := chi.URLParam(r, "topicID")
	topics, _ := catalog.Catalogue()
	var topic *domain.Topic
	for _, t := range topics {
		if t.ID == topicID {
			topic = t
			break
		}
	}
	if topic == nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Topic not found", service.ErrTopicNotFound)
		return
	}

	hydrated, err := catalog.EnsureTopicContent(r.Context(), topic)
	if err != nil {
		respondServiceError(w, r, "Failed to load note body", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, topicToResponse(hydrated))
}

// DeleteTopicBody handles DELETE /api/users/{userID}/topics/{topicID}/body
// requests. Exposed for full-teardown callers.
func (h *CatalogHandler) DeleteTopicBody(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	if err := catalog.DeleteTopicBody(r.Context(), chi.URLParam(r, "topicID")); err != nil {
		respondServiceError(w, r, "Failed to delete note body", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAudio handles DELETE /api/users/{userID}/topics/{topicID}/audio
// requests.
func (h *CatalogHandler) DeleteAudio(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	if err := catalog.DeleteAudio(r.Context(), chi.URLParam(r, "topicID")); err != nil {
		respondServiceError(w, r, "Failed to delete audio", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteRepetition handles POST /api/users/{userID}/topics/{topicID}/repetitions requests.
func (h *CatalogHandler) CompleteRepetition(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	var req CompleteRepetitionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	topic, err := catalog.CompleteRepetition(r.Context(), chi.URLParam(r, "topicID"), req.Score, req.QuizAttempt)
	if err != nil {
		respondServiceError(w, r, "Failed to record repetition", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, topicToResponse(topic))
}

// LogFocus handles POST /api/users/{userID}/topics/{topicID}/focus requests.
func (h *CatalogHandler) LogFocus(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	var req LogFocusRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error(), err)
		return
	}

	topic, err := catalog.LogFocus(r.Context(), chi.URLParam(r, "topicID"), req.Date, req.Minutes)
	if err != nil {
		respondServiceError(w, r, "Failed to log focus time", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, topicToResponse(topic))
}

// AddSubject handles POST /api/users/{userID}/subjects requests.
func (h *CatalogHandler) AddSubject(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	var req SubjectRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error(), err)
		return
	}

	err := catalog.AddSubject(r.Context(), &domain.Subject{ID: req.ID, Name: req.Name})
	if err != nil {
		respondServiceError(w, r, "Failed to add subject", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// UpdateSubject handles PUT /api/users/{userID}/subjects/{subjectID} requests.
func (h *CatalogHandler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	var req SubjectRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	subject := &domain.Subject{ID: chi.URLParam(r, "subjectID"), Name: req.Name}
	if err := catalog.UpdateSubject(r.Context(), subject); err != nil {
		respondServiceError(w, r, "Failed to update subject", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteSubject handles DELETE /api/users/{userID}/subjects/{subjectID} requests.
func (h *CatalogHandler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	if err := catalog.DeleteSubject(r.Context(), chi.URLParam(r, "subjectID")); err != nil {
		respondServiceError(w, r, "Failed to delete subject", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportCatalogue handles POST /api/users/{userID}/import requests.
func (h *CatalogHandler) ImportCatalogue(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.handle(w, r)
	if !ok {
		return
	}

	var req ImportRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error(), err)
		return
	}

	if err := catalog.ImportCatalogue(r.Context(), req.Topics, req.Subjects); err != nil {
		respondServiceError(w, r, "Failed to import catalogue", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
