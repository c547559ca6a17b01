package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rps-arena/internal/game"
	"github.com/rps-arena/internal/models"
	"github.com/rps-arena/internal/service"
	"github.com/rps-arena/internal/storage"
	"github.com/rps-arena/pkg/logger"
)

const requestTimeout = 5 * time.Second

// Handler holds all HTTP handlers
type Handler struct {
	gameService *service.GameService
	logger      *logger.Logger
}

// NewHandler creates a new handler
func NewHandler(gameService *service.GameService, logger *logger.Logger) *Handler {
	return &Handler{
		gameService: gameService,
		logger:      logger,
	}
}

// Routes sets up all routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.StartSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Post("/rounds", h.PlayRound)
			r.Post("/rounds/auto", h.PlayAutomatedRound)
			r.Post("/reset", h.ResetSession)
			r.Get("/stats", h.Stats)
			r.Post("/exhibition", h.StartExhibition)
			r.Delete("/exhibition", h.StopExhibition)
			r.Get("/watch", h.Watch)
		})
	})

	return r
}

// Health handles health check requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StartSession handles POST /sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	session, err := h.gameService.StartSession(ctx)
	if err != nil {
		h.respondServiceError(w, r, "failed to start session", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, session)
}

// GetSession handles GET /sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	session, err := h.gameService.GetSession(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, "failed to get session", err)
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// DeleteSession handles DELETE /sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.gameService.DeleteSession(ctx, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, "failed to delete session", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PlayRound handles POST /sessions/{id}/rounds
func (h *Handler) PlayRound(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req models.PlayRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.gameService.PlayRound(ctx, chi.URLParam(r, "id"), req.Move)
	if err != nil {
		h.respondServiceError(w, r, "failed to play round", err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// PlayAutomatedRound handles POST /sessions/{id}/rounds/auto
func (h *Handler) PlayAutomatedRound(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result, err := h.gameService.PlayAutomatedRound(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, "failed to play round", err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ResetSession handles POST /sessions/{id}/reset
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	session, err := h.gameService.ResetSession(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, "failed to reset session", err)
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// Stats handles GET /sessions/{id}/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stats, err := h.gameService.Stats(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, "failed to get stats", err)
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// StartExhibition handles POST /sessions/{id}/exhibition. The body is optional.
func (h *Handler) StartExhibition(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req models.StartExhibitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	interval := time.Duration(req.IntervalMs) * time.Millisecond
	status, err := h.gameService.StartExhibition(ctx, chi.URLParam(r, "id"), interval)
	if err != nil {
		h.respondServiceError(w, r, "failed to start exhibition", err)
		return
	}

	h.respondJSON(w, http.StatusAccepted, status)
}

// StopExhibition handles DELETE /sessions/{id}/exhibition
func (h *Handler) StopExhibition(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	status, err := h.gameService.StopExhibition(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, "failed to stop exhibition", err)
		return
	}

	h.respondJSON(w, http.StatusOK, status)
}

// respondServiceError maps service errors to status codes
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, errorMsg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrInvalidMove):
		status, errorMsg = http.StatusBadRequest, "invalid move"
	case errors.Is(err, service.ErrInvalidInterval):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrSessionNotFound):
		status, errorMsg = http.StatusNotFound, "session not found"
	case errors.Is(err, service.ErrExhibitionRunning), errors.Is(err, service.ErrExhibitionNotRunning):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(errorMsg, logger.Err(err), logger.F("request_id", GetRequestID(r.Context())))
	}
	h.respondError(w, status, errorMsg, err.Error())
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func (h *Handler) respondError(w http.ResponseWriter, status int, errorMsg, message string) {
	h.respondJSON(w, status, models.ErrorResponse{
		Error:   errorMsg,
		Message: message,
	})
}
