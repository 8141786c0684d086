package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	todohttp "github.com/jaekwang-park/todo-local/internal/http"
	"github.com/jaekwang-park/todo-local/internal/middleware"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	defer l.Close()
	return l.Addr().String()
}

func startServer(t *testing.T, auth *middleware.Auth) (*todohttp.Server, string) {
	t.Helper()
	ctl, repo := newTestController(t)
	addr := freeAddr(t)
	srv := todohttp.NewServer(addr, discard, ctl, auth, repo.Ping)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Errorf("unexpected server error: %v", err)
		}
	}()

	base := "http://" + addr
	for i := 0; i < 50; i++ {
		resp, err := http.Get(base + "/health")
		if err == nil {
			resp.Body.Close()
			return srv, base
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start in time")
	return nil, ""
}

func shutdown(t *testing.T, srv *todohttp.Server) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv, base := startServer(t, middleware.NewAuth(middleware.AuthConfig{}))

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}

	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %s", result["status"])
	}

	shutdown(t, srv)
}

func TestServer_ShutdownEndsEventStreams(t *testing.T) {
	srv, base := startServer(t, middleware.NewAuth(middleware.AuthConfig{}))

	resp, err := http.Get(base + "/api/v1/events")
	if err != nil {
		t.Fatalf("GET /api/v1/events: %v", err)
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	if !sc.Scan() || sc.Text() != "event: reset" {
		t.Fatalf("expected reset event first, got %q", sc.Text())
	}

	start := time.Now()
	shutdown(t, srv)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("shutdown waited %v for the open stream", elapsed)
	}
}

func TestServer_AuthGuardsAPI(t *testing.T) {
	const secret = "test-secret"
	srv, base := startServer(t, middleware.NewAuth(middleware.AuthConfig{Secret: secret}))
	defer shutdown(t, srv)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "local-user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{"health is open", http.MethodGet, "/health", "", "", http.StatusOK},
		{"list without token", http.MethodGet, "/api/v1/todos", "", "", http.StatusUnauthorized},
		{"list with token", http.MethodGet, "/api/v1/todos", "", token, http.StatusOK},
		{"create with token", http.MethodPost, "/api/v1/todos", `{"title":"Buy milk"}`, token, http.StatusCreated},
		{"create with bad token", http.MethodPost, "/api/v1/todos", `{"title":"Buy milk"}`, token + "x", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, base+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			if tt.token != "" {
				req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", tt.token))
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("%s %s: %v", tt.method, tt.path, err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}
