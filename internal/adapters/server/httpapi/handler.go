// Package httpapi provides the REST HTTP adapter for the board service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hylla/ranka/internal/app"
	"github.com/hylla/ranka/internal/domain"
	"github.com/hylla/ranka/internal/ordering"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Service is the app surface the REST adapter exposes.
type Service interface {
	Board(context.Context, bool) (app.BoardSnapshot, error)
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	GetTask(context.Context, string) (domain.Task, error)
	UpdateTask(context.Context, app.UpdateTaskInput) (domain.Task, error)
	MoveTask(context.Context, string, string, int) (domain.Task, error)
	ArchiveTask(context.Context, string) (domain.Task, error)
	RestoreTask(context.Context, string) (domain.Task, error)
	DeleteTask(context.Context, string) error
	RebalanceColumn(context.Context, string) error
	CreateLabel(context.Context, string, string) (domain.Label, error)
	UpdateLabel(context.Context, string, string, string) (domain.Label, error)
	ListLabels(context.Context) ([]domain.Label, error)
	DeleteLabel(context.Context, string) error
	AddAttachment(context.Context, app.AddAttachmentInput) (domain.Attachment, error)
	ListAttachments(context.Context, string) ([]domain.Attachment, error)
	RemoveAttachment(context.Context, string) error
}

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	svc Service
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "board service is not configured",
		})
		return
	}
	segments := splitPath(r.URL.Path)
	switch {
	case len(segments) == 1 && segments[0] == "board":
		h.requireMethod(w, r, http.MethodGet, h.handleBoard)
	case len(segments) == 1 && segments[0] == "tasks":
		switch r.Method {
		case http.MethodPost:
			h.handleCreateTask(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodPost)
		}
	case len(segments) == 2 && segments[0] == "tasks":
		h.handleTask(w, r, segments[1])
	case len(segments) == 3 && segments[0] == "tasks":
		h.handleTaskAction(w, r, segments[1], segments[2])
	case len(segments) == 1 && segments[0] == "labels":
		switch r.Method {
		case http.MethodGet:
			h.handleListLabels(w, r)
		case http.MethodPost:
			h.handleCreateLabel(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case len(segments) == 2 && segments[0] == "labels":
		h.handleLabel(w, r, segments[1])
	case len(segments) == 2 && segments[0] == "attachments" && r.Method == http.MethodDelete:
		h.handleDeleteAttachment(w, r, segments[1])
	case len(segments) == 3 && segments[0] == "columns" && segments[2] == "rebalance":
		h.requireMethod(w, r, http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
			h.handleRebalance(w, r, segments[1])
		})
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

func (h *Handler) requireMethod(w http.ResponseWriter, r *http.Request, method string, next http.HandlerFunc) {
	if r.Method != method {
		writeMethodNotAllowed(w, method)
		return
	}
	next(w, r)
}

// handleBoard serves GET `/board`.
func (h *Handler) handleBoard(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	board, err := h.svc.Board(r.Context(), includeArchived)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boardDTOFrom(board))
}

type createTaskRequest struct {
	Status      string   `json:"status"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
}

// handleCreateTask serves POST `/tasks`.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	task, err := h.svc.CreateTask(r.Context(), app.CreateTaskInput{
		Status:      req.Status,
		Title:       req.Title,
		Description: req.Description,
		Labels:      req.Labels,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, taskDTOFrom(task))
}

// handleTask serves `/tasks/{id}`.
func (h *Handler) handleTask(w http.ResponseWriter, r *http.Request, taskID string) {
	switch r.Method {
	case http.MethodGet:
		task, err := h.svc.GetTask(r.Context(), taskID)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, taskDTOFrom(task))
	case http.MethodPut:
		var req struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Labels      []string `json:"labels"`
		}
		if !decodeJSONBody(w, r, &req) {
			return
		}
		task, err := h.svc.UpdateTask(r.Context(), app.UpdateTaskInput{
			TaskID:      taskID,
			Title:       req.Title,
			Description: req.Description,
			Labels:      req.Labels,
		})
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, taskDTOFrom(task))
	case http.MethodDelete:
		if err := h.svc.DeleteTask(r.Context(), taskID); err != nil {
			writeErrorFrom(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

type moveTaskRequest struct {
	Status string `json:"status"`
	Index  *int   `json:"index"`
}

// handleTaskAction serves `/tasks/{id}/{action}`.
func (h *Handler) handleTaskAction(w http.ResponseWriter, r *http.Request, taskID, action string) {
	if action == "attachments" {
		h.handleTaskAttachments(w, r, taskID)
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	switch action {
	case "move":
		var req moveTaskRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		index := -1
		if req.Index != nil {
			index = *req.Index
		}
		task, err := h.svc.MoveTask(r.Context(), taskID, req.Status, index)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, taskDTOFrom(task))
	case "archive":
		task, err := h.svc.ArchiveTask(r.Context(), taskID)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, taskDTOFrom(task))
	case "restore":
		task, err := h.svc.RestoreTask(r.Context(), taskID)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, taskDTOFrom(task))
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: fmt.Sprintf("unknown task action %q", action),
		})
	}
}

type addAttachmentRequest struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
	SHA256   string `json:"sha256"`
}

// handleTaskAttachments serves `/tasks/{id}/attachments`.
func (h *Handler) handleTaskAttachments(w http.ResponseWriter, r *http.Request, taskID string) {
	switch r.Method {
	case http.MethodGet:
		attachments, err := h.svc.ListAttachments(r.Context(), taskID)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		out := make([]attachmentDTO, 0, len(attachments))
		for _, a := range attachments {
			out = append(out, attachmentDTOFrom(a))
		}
		writeJSON(w, http.StatusOK, map[string]any{"attachments": out})
	case http.MethodPost:
		var req addAttachmentRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		att, err := h.svc.AddAttachment(r.Context(), app.AddAttachmentInput{
			TaskID:   taskID,
			FileName: req.FileName,
			MimeType: req.MimeType,
			FileSize: req.FileSize,
			SHA256:   req.SHA256,
		})
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, attachmentDTOFrom(att))
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleDeleteAttachment serves DELETE `/attachments/{id}`.
func (h *Handler) handleDeleteAttachment(w http.ResponseWriter, r *http.Request, attachmentID string) {
	if err := h.svc.RemoveAttachment(r.Context(), attachmentID); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type labelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// handleListLabels serves GET `/labels`.
func (h *Handler) handleListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := h.svc.ListLabels(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	out := make([]labelDTO, 0, len(labels))
	for _, l := range labels {
		out = append(out, labelDTOFrom(l))
	}
	writeJSON(w, http.StatusOK, map[string]any{"labels": out})
}

// handleCreateLabel serves POST `/labels`.
func (h *Handler) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	label, err := h.svc.CreateLabel(r.Context(), req.Name, req.Color)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, labelDTOFrom(label))
}

// handleLabel serves `/labels/{id}`.
func (h *Handler) handleLabel(w http.ResponseWriter, r *http.Request, labelID string) {
	switch r.Method {
	case http.MethodPut:
		var req labelRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		label, err := h.svc.UpdateLabel(r.Context(), labelID, req.Name, req.Color)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, labelDTOFrom(label))
	case http.MethodDelete:
		if err := h.svc.DeleteLabel(r.Context(), labelID); err != nil {
			writeErrorFrom(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

// handleRebalance serves POST `/columns/{status}/rebalance`.
func (h *Handler) handleRebalance(w http.ResponseWriter, r *http.Request, status string) {
	if err := h.svc.RebalanceColumn(r.Context(), status); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "rebalanced": true})
}

// splitPath normalizes and splits the request path.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// decodeJSONBody decodes one bounded JSON request body, replying with a
// structured error on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: fmt.Sprintf("decode request body: %v", err),
		})
		return false
	}
	return true
}

// writeErrorFrom maps service errors onto structured HTTP failures.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNotFound), errors.Is(err, ordering.ErrUnknownItem):
		writeJSONError(w, http.StatusNotFound, APIError{Code: "not_found", Message: err.Error()})
	case errors.Is(err, app.ErrUnknownStatus),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidColor),
		errors.Is(err, domain.ErrInvalidFileName):
		writeJSONError(w, http.StatusUnprocessableEntity, APIError{Code: "invalid_input", Message: err.Error()})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{Code: "internal", Message: err.Error()})
	}
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

func writeJSONError(w http.ResponseWriter, status int, apiErr APIError) {
	writeJSON(w, status, ErrorEnvelope{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
