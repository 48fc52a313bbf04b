package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/trackq/internal/models"
	"github.com/desertthunder/trackq/internal/shared"
	"github.com/desertthunder/trackq/internal/tasks"
)

const maxBodyBytes = 1 << 20

// QueueOperations is the part of [tasks.Operations] the API exposes.
type QueueOperations interface {
	Status(ctx context.Context) (*models.QueueSnapshot, error)
	EnqueueMissing(ctx context.Context, taskID int64) tasks.Result
	EnqueueSingle(ctx context.Context, taskID int64, track models.WantedTrack) tasks.Result
	Pause(ctx context.Context, sessionID string) tasks.Result
	Resume(ctx context.Context, sessionID string) tasks.Result
	Delete(ctx context.Context, sessionID string) tasks.Result
	RetrySession(ctx context.Context, sessionID string) tasks.Result
	RetryItem(ctx context.Context, itemID string) tasks.Result
	CancelItem(ctx context.Context, itemID string) tasks.Result
	ClearCompleted(ctx context.Context) tasks.Result
	SessionLog(ctx context.Context, sessionID string) tasks.Result
}

// EnqueueRequest is the body of POST /api/sessions.
//
// With a track, one song is queued under TaskID (0 for an ad-hoc download). Without one, every missing
// track of TaskID is queued.
type EnqueueRequest struct {
	TaskID int64               `json:"task_id"`
	Track  *models.WantedTrack `json:"track,omitempty"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// QueueHandler serves the queue API under /api/.
type QueueHandler struct {
	ops    QueueOperations
	routes *BasicRouter
}

// NewQueueHandler creates a handler for ops.
func NewQueueHandler(ops QueueOperations) *QueueHandler {
	h := &QueueHandler{ops: ops, routes: NewBasicRouter()}

	h.routes.HandleFunc(http.MethodGet, "/api/queue", h.status)
	h.routes.HandleFunc(http.MethodPost, "/api/queue/clear", h.clear)
	h.routes.HandleFunc(http.MethodPost, "/api/sessions", h.enqueue)
	h.routes.HandleFunc(http.MethodPost, "/api/sessions/{id}/pause", h.session(ops.Pause))
	h.routes.HandleFunc(http.MethodPost, "/api/sessions/{id}/resume", h.session(ops.Resume))
	h.routes.HandleFunc(http.MethodPost, "/api/sessions/{id}/retry", h.session(ops.RetrySession))
	h.routes.HandleFunc(http.MethodDelete, "/api/sessions/{id}", h.session(ops.Delete))
	h.routes.HandleFunc(http.MethodGet, "/api/sessions/{id}/log", h.log)
	h.routes.HandleFunc(http.MethodPost, "/api/items/{id}/retry", h.session(ops.RetryItem))
	h.routes.HandleFunc(http.MethodPost, "/api/items/{id}/cancel", h.session(ops.CancelItem))
	return h
}

// Routes implements [Handler].
func (h *QueueHandler) Routes() []string {
	return []string{"/api/"}
}

func (h *QueueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.routes.ServeHTTP(w, r)
}

func (h *QueueHandler) status(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.ops.Status(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), errorBody{Message: fmt.Sprintf("failed to load queue: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *QueueHandler) clear(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.ops.ClearCompleted(r.Context()), http.StatusOK)
}

func (h *QueueHandler) enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	var res tasks.Result
	switch {
	case req.Track != nil:
		res = h.ops.EnqueueSingle(r.Context(), req.TaskID, *req.Track)
	case req.TaskID > 0:
		res = h.ops.EnqueueMissing(r.Context(), req.TaskID)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "either a track or a positive task_id is required"})
		return
	}
	writeResult(w, res, http.StatusAccepted)
}

func (h *QueueHandler) log(w http.ResponseWriter, r *http.Request) {
	res := h.ops.SessionLog(r.Context(), r.PathValue("id"))
	if res.Success && r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, res.Log)
		return
	}
	writeResult(w, res, http.StatusOK)
}

// session adapts an operation keyed by the {id} path value.
func (h *QueueHandler) session(op func(context.Context, string) tasks.Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, op(r.Context(), r.PathValue("id")), http.StatusOK)
	}
}

func writeResult(w http.ResponseWriter, res tasks.Result, okStatus int) {
	status := okStatus
	if res.Err != nil {
		status = statusFor(res.Err)
	}
	writeJSON(w, status, res)
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrSessionNotFound), errors.Is(err, shared.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrDatabaseBusy), errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
