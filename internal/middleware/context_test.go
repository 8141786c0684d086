package middleware_test

import (
	"net/http/httptest"
	"testing"

	"github.com/jaekwang-park/todo-local/internal/middleware"
)

func TestSetAndGetSubject(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	if got := middleware.GetSubject(req); got != "" {
		t.Errorf("expected empty, got %q", got)
	}

	req = req.WithContext(middleware.SetSubject(req.Context(), "desktop-ui"))

	if got := middleware.GetSubject(req); got != "desktop-ui" {
		t.Errorf("expected desktop-ui, got %q", got)
	}
}

func TestSetAndGetRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	if got := middleware.RequestIDFromContext(req.Context()); got != "" {
		t.Errorf("expected empty, got %q", got)
	}

	ctx := middleware.SetRequestID(req.Context(), "req-1")
	if got := middleware.RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("expected req-1, got %q", got)
	}
}
