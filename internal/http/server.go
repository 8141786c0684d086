package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jaekwang-park/todo-local/internal/http/handler"
	"github.com/jaekwang-park/todo-local/internal/middleware"
	"github.com/jaekwang-park/todo-local/internal/service"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(addr string, logger *slog.Logger, ctl *service.ListController, auth *middleware.Auth, check handler.HealthCheck) *Server {
	router := NewRouter(ctl, check)

	// recovery -> request id -> logging -> auth -> router
	var chain http.Handler = auth.Middleware(router)
	chain = middleware.Logging(logger)(chain)
	chain = middleware.RequestID(chain)
	chain = middleware.Recovery(logger)(chain)

	// Request contexts end on shutdown so open event streams let go.
	baseCtx, cancel := context.WithCancel(context.Background())

	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancel)

	return &Server{httpServer: srv, logger: logger}
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
