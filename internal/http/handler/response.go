package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jaekwang-park/todo-local/internal/repository"
	"github.com/jaekwang-park/todo-local/internal/service"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

// WriteServiceError maps store and controller errors onto API errors.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrInvalidArgument):
		WriteError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, repository.ErrStorageUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "storage is unavailable")
	case errors.Is(err, repository.ErrDataCorrupt):
		WriteError(w, http.StatusInternalServerError, "DATA_CORRUPT", "stored data could not be read")
	case errors.Is(err, service.ErrControllerClosed):
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "service is shutting down")
	default:
		slog.Error("unhandled service error", "error", err)
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
