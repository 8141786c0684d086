package http

import (
	"net/http"

	"github.com/jaekwang-park/todo-local/internal/http/handler"
	"github.com/jaekwang-park/todo-local/internal/service"
)

func NewRouter(ctl *service.ListController, check handler.HealthCheck) http.Handler {
	mux := http.NewServeMux()

	// Health check stays outside /api/v1 so it is never behind auth.
	mux.Handle("/health", handler.NewHealthHandler(check))

	todoHandler := handler.NewTodoHandler(ctl)
	mux.Handle("/api/v1/todos", todoHandler)
	mux.Handle("/api/v1/todos/", todoHandler)

	mux.Handle("/api/v1/events", handler.NewEventsHandler(ctl))

	return mux
}
