// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bodytrack/coachd/internal/api/middleware"
	"github.com/bodytrack/coachd/internal/coaching/session"
	"github.com/bodytrack/coachd/internal/coaching/summary"
	"github.com/bodytrack/coachd/internal/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the HTTP-layer settings read from the admin/listen
// sections of the configuration file.
type Config struct {
	AllowedOrigins     []string
	TrustedProxies     []*net.IPNet
	CSP                string
	RateLimitEnabled   bool
	RateLimitGlobalRPS int
	RateLimitBurst     int
	RateLimitWhitelist []string

	AdminTerminatePassword string
	Summary                summary.Config
}

// Reloader exposes the one operation /refresh/configurations needs.
type Reloader interface {
	Reload() error
}

// Server wires the session manager into the HTTP routes of spec.md §6.
type Server struct {
	cfg           Config
	sessions      *session.Manager
	reloader      Reloader
	summaryConfig summary.Config

	startedAt time.Time

	mu         sync.RWMutex
	shutdownFn func(context.Context) error
}

// New constructs a Server bound to a running session manager.
func New(cfg Config, sessions *session.Manager, reloader Reloader) *Server {
	return &Server{
		cfg:           cfg,
		sessions:      sessions,
		reloader:      reloader,
		summaryConfig: cfg.Summary,
		startedAt:     time.Now(),
	}
}

// SetShutdownFunc wires a graceful shutdown trigger invoked by
// /terminate/server after the response is written.
func (s *Server) SetShutdownFunc(fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownFn = fn
}

func (s *Server) requestShutdown(ctx context.Context) {
	s.mu.RLock()
	fn := s.shutdownFn
	s.mu.RUnlock()
	if fn == nil {
		return
	}
	if err := fn(ctx); err != nil {
		log.WithComponent("api").Error().Err(err).Msg("shutdown hook failed")
	}
}

// Handler returns the fully assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:           len(s.cfg.AllowedOrigins) > 0,
		AllowedOrigins:       s.cfg.AllowedOrigins,
		CORSAllowCredentials: false,

		EnableSecurityHeaders: true,
		CSP:                   s.cfg.CSP,
		TrustedProxies:        s.cfg.TrustedProxies,

		EnableMetrics:  true,
		TracingService: "coachd-api",
		EnableLogging:  true,

		EnableRateLimit:    true,
		RateLimitEnabled:   s.cfg.RateLimitEnabled,
		RateLimitGlobalRPS: s.cfg.RateLimitGlobalRPS,
		RateLimitBurst:     s.cfg.RateLimitBurst,
		RateLimitWhitelist: s.cfg.RateLimitWhitelist,
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ping", s.handlePing)

	r.Post("/register/new/session", s.handleRegister)
	r.Post("/unregister/session", s.handleUnregister)
	r.Post("/start/session", s.handleStart)
	r.Post("/pause/session", s.handlePause)
	r.Post("/resume/session", s.handleResume)
	r.Post("/end/session", s.handleEnd)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/session/status", s.handleStatus)
	r.Post("/session/summary", s.handleSummary)

	r.Get("/internal/telemetry", s.handleTelemetry)
	r.Get("/refresh/configurations", s.handleRefreshConfigurations)
	r.Post("/terminate/server", s.handleTerminate)

	return r
}
