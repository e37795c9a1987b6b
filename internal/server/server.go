// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yasser8111/HUAI/internal/assistant"
	"github.com/yasser8111/HUAI/internal/model"
	"github.com/yasser8111/HUAI/internal/session"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8787"

	// DefaultMaxBodyBytes bounds request bodies.
	DefaultMaxBodyBytes = 64 * 1024

	// DefaultSweepInterval is the janitor period.
	DefaultSweepInterval = time.Minute

	// MaxSessionIDLength bounds client-supplied session ids.
	MaxSessionIDLength = 128

	// Version is the API version reported by /health.
	Version = "1.0.0"

	shutdownTimeout = 10 * time.Second
	limiterIdle     = 10 * time.Minute
)

// Asker is the part of the assistant the server needs.
type Asker interface {
	AskDetailed(ctx context.Context, sessionID, prompt string, opts assistant.Options) (*assistant.Reply, error)
	Stats() assistant.Stats
}

// Sweeper drops expired sessions. *session.Store implements it.
type Sweeper interface {
	Sweep() int
}

// Options configures a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	AuthToken      string
	SweepInterval  time.Duration
	MaxBodyBytes   int64
	Registry       model.Registry
	Configured     bool
	Logger         *slog.Logger
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the HTTP API server.
type Server struct {
	opts    Options
	asker   Asker
	sweeper Sweeper
	limiter *RateLimiter
	logger  *slog.Logger
	handler http.Handler
	started time.Time

	requests atomic.Int64
}

// New creates a server. sweeper may be nil to disable the janitor.
func New(asker Asker, sweeper Sweeper, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		opts:    opts,
		asker:   asker,
		sweeper: sweeper,
		limiter: NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		logger:  opts.Logger,
		started: time.Now(),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// routes configures all HTTP routes and middleware.
func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/ask", s.handleAsk)
	api.HandleFunc("GET /api/models", s.handleModels)

	protected := Chain(
		RateLimitMiddleware(s.limiter, s.logger),
		AuthMiddleware(s.opts.AuthToken, s.logger),
	)(api)

	mux := http.NewServeMux()
	mux.Handle("/api/", protected)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)

	return Chain(
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		CORSMiddleware(DefaultCORSConfig(s.opts.AllowedOrigins)),
	)(mux)
}

// ============================================================================
// ASK HANDLER
// ============================================================================

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	SessionID   string   `json:"session_id,omitempty"`
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// AskResponse is a successful POST /api/ask answer.
type AskResponse struct {
	SessionID   string  `json:"session_id"`
	Reply       string  `json:"reply"`
	Model       string  `json:"model"`
	ModelName   string  `json:"model_name,omitempty"`
	Temperature float64 `json:"temperature"`
	Route       string  `json:"route"`
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	var req AskRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, assistant.KindValidation.String(), "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, assistant.KindValidation.String(), "Invalid JSON body")
		return
	}
	if _, err := dec.Token(); err != io.EOF {
		writeError(w, http.StatusBadRequest, assistant.KindValidation.String(), "Request body must hold a single JSON object")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if len(sessionID) > MaxSessionIDLength {
		writeError(w, http.StatusBadRequest, assistant.KindValidation.String(), "session_id is too long")
		return
	}

	reply, err := s.asker.AskDetailed(r.Context(), sessionID, req.Prompt, assistant.Options{
		Model:       req.Model,
		Temperature: req.Temperature,
	})
	if err != nil {
		s.writeAskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{
		SessionID:   sessionID,
		Reply:       reply.Text,
		Model:       reply.Model,
		ModelName:   reply.ModelName,
		Temperature: reply.Temperature,
		Route:       reply.Route,
	})
}

// statusForKind maps error kinds to HTTP status codes.
func statusForKind(kind assistant.Kind) int {
	switch kind {
	case assistant.KindValidation:
		return http.StatusBadRequest
	case assistant.KindConfiguration:
		return http.StatusServiceUnavailable
	case assistant.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeAskError(w http.ResponseWriter, err error) {
	var aerr *assistant.Error
	if !errors.As(err, &aerr) {
		s.logger.Error("unexpected ask error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "Internal Server Error")
		return
	}
	writeError(w, statusForKind(aerr.Kind), aerr.Kind.String(), aerr.Message)
}

// ============================================================================
// MODELS, HEALTH, STATS
// ============================================================================

// ModelsResponse lists the registry.
type ModelsResponse struct {
	Models []model.Descriptor `json:"models"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{Models: s.opts.Registry.All()})
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Inference string `json:"inference"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{Status: "ok", Version: Version, Inference: "configured"}
	if !s.opts.Configured {
		health.Status = "degraded"
		health.Inference = "not_configured"
	}
	writeJSON(w, http.StatusOK, health)
}

// StatsResponse represents the usage statistics response.
type StatsResponse struct {
	AskCalls         int64              `json:"ask_calls"`
	Requests         int64              `json:"requests"`
	Successes        int64              `json:"successes"`
	Failures         map[string]int64   `json:"failures"`
	PerModel         map[string]int64   `json:"per_model"`
	Sessions         session.StoreStats `json:"sessions"`
	RateLimitClients int                `json:"rate_limit_clients"`
	UptimeSeconds    int64              `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.asker.Stats()
	writeJSON(w, http.StatusOK, StatsResponse{
		AskCalls:         s.requests.Load(),
		Requests:         st.Requests,
		Successes:        st.Successes,
		Failures:         st.Failures,
		PerModel:         st.PerModel,
		Sessions:         st.Store,
		RateLimitClients: s.limiter.Clients(),
		UptimeSeconds:    int64(time.Since(s.started).Seconds()),
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		s.janitor(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server started", "addr", ln.Addr().String(), "version", Version)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		cancel()
		<-janitorDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	shutdownErr := srv.Shutdown(shutdownCtx)
	<-janitorDone
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return shutdownErr
}

// janitor periodically drops expired sessions and idle rate-limit buckets.
func (s *Server) janitor(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.sweeper != nil {
				if n := s.sweeper.Sweep(); n > 0 {
					s.logger.Debug("expired sessions swept", "count", n)
				}
			}
			s.limiter.Prune(limiterIdle)
		}
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: message}})
}
