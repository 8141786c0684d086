package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	todohttp "github.com/jaekwang-park/todo-local/internal/http"
	"github.com/jaekwang-park/todo-local/internal/repository"
	"github.com/jaekwang-park/todo-local/internal/service"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestController(t *testing.T) (*service.ListController, *repository.SQLTodoRepository) {
	t.Helper()
	repo, err := repository.NewSQLiteTodo(filepath.Join(t.TempDir(), "todo.db"))
	if err != nil {
		t.Fatalf("NewSQLiteTodo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctl := service.NewListController(repo, discard)
	t.Cleanup(ctl.Close)
	if err := ctl.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return ctl, repo
}

func TestRouter_HealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		check      func(ctx context.Context) error
		wantStatus int
		wantBody   string
	}{
		{"healthy", func(ctx context.Context) error { return nil }, http.StatusOK, "ok"},
		{"storage down", func(ctx context.Context) error { return errors.New("gone") }, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl, _ := newTestController(t)
			router := todohttp.NewRouter(ctl, tt.check)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var result map[string]string
			if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if result["status"] != tt.wantBody {
				t.Errorf("expected status=%s, got %s", tt.wantBody, result["status"])
			}
		})
	}
}

func TestRouter_TodoEndpointsRegistered(t *testing.T) {
	ctl, repo := newTestController(t)
	router := todohttp.NewRouter(ctl, repo.Ping)

	tests := []struct {
		method     string
		target     string
		wantStatus int
	}{
		{http.MethodGet, "/api/v1/todos", http.StatusOK},
		{http.MethodGet, "/api/v1/todos/1", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/todos/1", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d (body: %s)", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	ctl, repo := newTestController(t)
	router := todohttp.NewRouter(ctl, repo.Ping)

	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}
