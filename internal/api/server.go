// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package api mounts the auth, admin and public portal handlers behind the
// shared middleware chain and owns the [http.Server] lifecycle.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/bcbbs/internal/platform/config"
	"github.com/taibuivan/bcbbs/internal/platform/constants"
	"github.com/taibuivan/bcbbs/internal/platform/middleware"
	"github.com/taibuivan/bcbbs/internal/portal/lines"
	"github.com/taibuivan/bcbbs/internal/portal/search"
	"github.com/taibuivan/bcbbs/internal/users/auth"
)

type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// Handlers are built in cmd/api and handed to [NewServer].
type Handlers struct {
	Liveness  http.HandlerFunc
	Readiness http.HandlerFunc

	// Auth serves /auth (logins, captcha, password changes) and /admin.
	Auth *auth.Handler

	Lines  *lines.Handler
	Search *search.Handler
}

// NewServer builds the router. Route layout:
//
//	GET  /health, /ready
//	     /api/v1/auth/...      login, role-login, captcha, password changes
//	     /api/v1/admin/...     account provisioning (ADMIN)
//	GET  /api/v1/public/...    captcha, lines, search (anonymous)
//
// The global limiter stops its eviction loop when context is cancelled.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	router := chi.NewRouter()

	router.Use(
		middleware.TrustedProxies(cfg.TrustedProxyRanges()),
		middleware.RequestID(),
		middleware.StructuredLogger(log),
		middleware.PanicRecovery(log),
		middleware.CORS(cfg),
		chimw.Timeout(constants.GlobalRequestTimeout),
		middleware.RateLimit(context, cfg.RateLimitRPS, cfg.RateLimitBurst),
		middleware.Authenticate(verifier),
		chimw.CleanPath,
	)

	router.Get("/health", h.Liveness)
	router.Get("/ready", h.Readiness)

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Mount("/auth", h.Auth.Routes())
		v1.Mount("/admin", h.Auth.AdminRoutes())
		v1.Route("/public", func(public chi.Router) {
			h.Auth.RegisterCaptchaRoutes(public)
			h.Lines.RegisterRoutes(public)
			h.Search.RegisterRoutes(public)
		})
	})

	return &Server{
		router: router,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
		},
	}
}

// Handler is the router with every middleware applied; tests drive it directly.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until Shutdown; it then returns [http.ErrServerClosed].
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests for at most timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
