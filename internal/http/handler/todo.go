package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jaekwang-park/todo-local/internal/middleware"
	"github.com/jaekwang-park/todo-local/internal/model"
	"github.com/jaekwang-park/todo-local/internal/service"
)

type TodoHandler struct {
	svc *service.ListController
}

func NewTodoHandler(svc *service.ListController) *TodoHandler {
	return &TodoHandler{svc: svc}
}

// ServeHTTP routes /api/v1/todos and /api/v1/todos/{id}
func (h *TodoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/todos")
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	rawID := parts[0]
	subPath := ""
	if len(parts) > 1 {
		subPath = parts[1]
	}

	if rawID == "" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		}
		return
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "INVALID_ID", "todo id must be a positive integer")
		return
	}

	switch subPath {
	case "status":
		h.handleUpdateStatus(w, r, id)
	case "":
		switch r.Method {
		case http.MethodGet:
			h.handleGetByID(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		}
	default:
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	}
}

// durable drops cancellation from the request context. Store writes run to
// completion after the client goes away.
func durable(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

type listResponse struct {
	Todos   []model.Todo `json:"todos"`
	IsEmpty bool         `json:"is_empty"`
	IsBusy  bool         `json:"is_busy"`
}

func (h *TodoHandler) handleList(w http.ResponseWriter, r *http.Request) {
	todos := h.svc.Items()
	if todos == nil {
		todos = []model.Todo{}
	}

	WriteJSON(w, http.StatusOK, listResponse{
		Todos:   todos,
		IsEmpty: len(todos) == 0,
		IsBusy:  h.svc.IsBusy(),
	})
}

type createTodoRequest struct {
	Title string `json:"title"`
}

func (h *TodoHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	// Blank titles never reach the store.
	if strings.TrimSpace(req.Title) == "" {
		WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "title is required")
		return
	}

	todo, err := h.svc.Add(durable(r), req.Title)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	slog.DebugContext(r.Context(), "todo created", "id", todo.ID, "subject", middleware.GetSubject(r))
	WriteJSON(w, http.StatusCreated, todo)
}

func (h *TodoHandler) handleGetByID(w http.ResponseWriter, r *http.Request, id int64) {
	todo, ok := h.svc.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}

	WriteJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) handleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	todo, ok := h.svc.Get(id)
	if !ok {
		// Deleting is idempotent; the store ignores unknown ids.
		todo = model.Todo{ID: id}
	}

	if err := h.svc.Delete(durable(r), &todo); err != nil {
		WriteServiceError(w, err)
		return
	}

	slog.DebugContext(r.Context(), "todo deleted", "id", id, "subject", middleware.GetSubject(r))
	w.WriteHeader(http.StatusNoContent)
}

type updateStatusRequest struct {
	Completed *bool `json:"completed"`
}

func (h *TodoHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPatch {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.Completed == nil {
		WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "completed is required")
		return
	}

	todo, ok := h.svc.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}

	updated, err := h.svc.SetCompletion(durable(r), &todo, *req.Completed)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	slog.DebugContext(r.Context(), "todo status updated", "id", id, "completed", updated.IsCompleted, "subject", middleware.GetSubject(r))
	WriteJSON(w, http.StatusOK, updated)
}
