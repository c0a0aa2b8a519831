package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/minerva/core/config"
	"github.com/m3rciful/minerva/core/logger"
)

// Server runs the HTTP API until its context ends.
type Server struct {
	srv      *http.Server
	shutdown time.Duration
}

// NewServer binds h to the configured listen address.
func NewServer(cfg config.HTTPConfig, h *Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Listen,
			Handler:           h.Routes(cfg.CORSOrigins),
			ReadTimeout:       time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		shutdown: time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger.Info(ctx, "http", "http.listen",
		slog.String("status", "ok"),
		slog.String("listen", ln.Addr().String()),
	)

	s.srv.BaseContext = func(net.Listener) context.Context { return context.WithoutCancel(ctx) }
	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("httpapi: serve: %w", err)
	case <-ctx.Done():
	}

	timeout := s.shutdown
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	err := s.srv.Shutdown(shutdownCtx)
	logger.Info(ctx, "http", "http.shutdown", slog.String("status", logger.Status(err)))
	if err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	<-errc
	return nil
}
