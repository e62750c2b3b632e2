// Package server is the HTTP surface: room displays, the leaderboard,
// the operator console API and live change streams.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/playperu/escaperoom/internal/game"
	"github.com/playperu/escaperoom/internal/store"
)

// Deps are the services the routes call into.
type Deps struct {
	Logger    *slog.Logger
	Store     game.AdminStore
	Feed      *store.Feed
	Machine   *game.Machine
	Admin     *game.Admin
	Ranker    *game.Ranker
	PublicURL string
	SPADir    string
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the router. mounts run before the API routes so callers can
// attach infrastructure endpoints such as /healthz.
func New(addr string, logger *slog.Logger, mounts ...func(chi.Router)) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	for _, mount := range mounts {
		mount(r)
	}

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Routes mounts the full API.
func Routes(d Deps) func(chi.Router) {
	return func(r chi.Router) { addRoutes(r, d) }
}

func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
