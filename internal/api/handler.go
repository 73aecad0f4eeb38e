// Package api exposes the reconciled queue to the presentation layer over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Guizzs26/suya-queue/internal/engine"
	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/Guizzs26/suya-queue/internal/view"
	"github.com/go-chi/chi/v5"
)

// Board is the slice of the engine the handlers use
type Board interface {
	Snapshot() engine.Snapshot
	QueueNumber(ctx context.Context) (string, error)
	Register(ctx context.Context, req models.RegistrationRequest) (models.PendingRegistration, error)
	Outcome(id string) (engine.PendingOutcome, bool)
	Next(ctx context.Context) (string, error)
	Set(ctx context.Context, value string) (string, error)
	Reset(ctx context.Context) error
}

type Handler struct {
	board  Board
	logger *slog.Logger
}

func NewHandler(board Board, logger *slog.Logger) *Handler {
	return &Handler{board: board, logger: logger}
}

type queueResponse struct {
	Serving   string              `json:"serving"`
	Active    []models.QueueEntry `json:"active"`
	Waiting   int                 `json:"waiting"`
	Total     int                 `json:"total"`
	Sequence  uint64              `json:"sequence"`
	Error     string              `json:"error,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type sessionResponse struct {
	QueueNumber string                  `json:"queue_number"`
	View        *models.ClientViewState `json:"view,omitempty"`
}

type servingRequest struct {
	Value string `json:"value"`
}

type servingResponse struct {
	Serving string `json:"serving"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<16)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps the error taxonomy onto HTTP statuses; the body is always the user message
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error, validationStatus int) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = validationStatus
	case errors.Is(err, models.ErrSubmissionInFlight):
		status = http.StatusConflict
	case errors.Is(err, models.ErrMisconfiguredEndpoint):
		status = http.StatusServiceUnavailable
	case errors.Is(err, models.ErrTransport):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, models.UserMessage(err))
}

// Queue handles GET /api/queue
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	snap := h.board.Snapshot()

	active := snap.Active
	if active == nil {
		active = []models.QueueEntry{}
	}
	writeJSON(w, http.StatusOK, queueResponse{
		Serving:   snap.Serving,
		Active:    active,
		Waiting:   len(snap.Active),
		Total:     len(snap.Entries),
		Sequence:  snap.Sequence,
		Error:     models.UserMessage(snap.Err),
		UpdatedAt: snap.UpdatedAt,
	})
}

// ClientView handles GET /api/queue/{number}
func (h *Handler) ClientView(w http.ResponseWriter, r *http.Request) {
	state, err := view.FromSnapshot(h.board.Snapshot(), chi.URLParam(r, "number"))
	if err != nil {
		h.writeDomainError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Session handles GET /api/session: the number bound to this session and its view, if any
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	number, err := h.board.QueueNumber(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err, http.StatusBadRequest)
		return
	}

	resp := sessionResponse{QueueNumber: number}
	if number != "" {
		if state, err := view.FromSnapshot(h.board.Snapshot(), number); err == nil {
			resp.View = &state
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Register handles POST /api/registrations.
// 202 means the form received the request, not that a queue number exists; poll the returned id.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.board.Register(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusAccepted, engine.PendingOutcome{
		ID:          p.ID,
		Status:      engine.PendingWaiting,
		SubmittedAt: p.SubmittedAt,
	})
}

// Registration handles GET /api/registrations/{id}
func (h *Handler) Registration(w http.ResponseWriter, r *http.Request) {
	o, ok := h.board.Outcome(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "registration not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Next handles POST /api/admin/next
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	v, err := h.board.Next(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, servingResponse{Serving: v})
}

// SetServing handles POST /api/admin/serving
func (h *Handler) SetServing(w http.ResponseWriter, r *http.Request) {
	var req servingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	v, err := h.board.Set(r.Context(), req.Value)
	if err != nil {
		h.writeDomainError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, servingResponse{Serving: v})
}

// Reset handles POST /api/admin/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.board.Reset(r.Context()); err != nil {
		h.writeDomainError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, servingResponse{Serving: models.ZeroServing})
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
