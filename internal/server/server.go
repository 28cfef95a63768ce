// Package server provides the HTTP REST API for the pipeline visualizer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/devsecops-visualizer/internal/catalog"
	"github.com/jonathan/devsecops-visualizer/internal/chat"
	"github.com/jonathan/devsecops-visualizer/internal/config"
	"github.com/jonathan/devsecops-visualizer/internal/db"
	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
	"github.com/jonathan/devsecops-visualizer/internal/relay"
	"github.com/jonathan/devsecops-visualizer/internal/server/middleware"
	"github.com/jonathan/devsecops-visualizer/internal/server/ratelimit"
	"github.com/jonathan/devsecops-visualizer/internal/sre"
)

const (
	shutdownTimeout = 30 * time.Second
	recordTimeout   = 10 * time.Second
)

// Options are the components a Server is assembled from. Nil Runs, Chats,
// Relay and RateLimit get in-memory or disabled defaults; a nil Auth leaves
// every route open.
type Options struct {
	Addr         string
	Catalog      *catalog.Catalog
	Runner       *pipeline.Runner
	Runs         db.RunStore
	Relay        *relay.Relay
	Chats        *chat.Store
	Auth         *config.AuthConfig
	Passwords    *config.PasswordConfig
	RateLimit    *ratelimit.Config
	AllowOrigins []string
}

// Server represents the HTTP server
type Server struct {
	httpServer   *http.Server
	catalog      *catalog.Catalog
	runner       *pipeline.Runner
	runs         db.RunStore
	relay        *relay.Relay
	sre          *sre.Assistant
	chats        *chat.Store
	auth         *config.AuthConfig
	passwords    *config.PasswordConfig
	jwtService   *JWTService
	rateLimiter  *ratelimit.Limiter
	allowOrigins []string

	// runCtx outlives individual requests; runs started over HTTP are
	// cancelled only when the server shuts down.
	runCtx     context.Context
	cancelRuns context.CancelFunc

	unsubscribe func()
	closers     []func()
}

// New assembles a server from already constructed components.
func New(opts Options) (*Server, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}

	s := &Server{
		catalog:      opts.Catalog,
		runner:       opts.Runner,
		runs:         opts.Runs,
		relay:        opts.Relay,
		chats:        opts.Chats,
		auth:         opts.Auth,
		passwords:    opts.Passwords,
		allowOrigins: opts.AllowOrigins,
	}
	if s.runs == nil {
		s.runs = db.NewMemoryStore(0)
	}
	if s.relay == nil {
		s.relay = relay.NewWithClient(nil)
	}
	if s.chats == nil {
		s.chats = chat.NewStore()
	}
	if len(s.allowOrigins) == 0 {
		s.allowOrigins = []string{"*"}
	}
	if s.auth != nil {
		s.jwtService = NewJWTService(s.auth.JWT)
		if s.passwords == nil {
			passwords, err := config.NewPasswordConfig()
			if err != nil {
				return nil, fmt.Errorf("failed to create password config: %w", err)
			}
			s.passwords = passwords
		}
	}
	rl := opts.RateLimit
	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}
	s.rateLimiter = ratelimit.NewLimiter(rl)
	s.sre = sre.New(s.relay, s.catalog)
	s.runCtx, s.cancelRuns = context.WithCancel(context.Background())
	s.unsubscribe = s.runner.Subscribe(s.recordRun)

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.routes()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // run streams stay open for the whole run
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// NewFromConfig builds every component from cfg and the environment: the
// embedded catalog, the runner, the relay, PostgreSQL run history when a
// database URL is configured and operator auth when JWT_SECRET is set.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	runner, err := pipeline.NewRunner(cfg.PipelineConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var runs db.RunStore = db.NewMemoryStore(0)
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, database.Close)
		if err := database.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to prepare database: %w", err)
		}
		runs = database
	} else {
		log.Printf("[server] DATABASE_URL not set; run history is kept in memory")
	}

	rel, err := relay.New(ctx, cfg.LLMClientConfig(), cfg.APIKey())
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create relay: %w", err)
	}
	closers = append(closers, func() {
		if err := rel.Close(); err != nil {
			log.Printf("[server] relay close: %v", err)
		}
	})

	auth, err := config.LoadAuthConfig()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to load auth config: %w", err)
	}
	passwords, err := config.NewPasswordConfig()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	if auth == nil {
		log.Printf("[server] JWT_SECRET not set; AI and chat routes are open")
	}

	s, err := New(Options{
		Addr:         cfg.Addr(),
		Catalog:      cat,
		Runner:       runner,
		Runs:         runs,
		Relay:        rel,
		Auth:         auth,
		Passwords:    passwords,
		RateLimit:    ratelimit.LoadConfig(),
		AllowOrigins: cfg.AllowOrigins,
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	s.closers = closers
	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /stages", s.handleListStages)
	mux.HandleFunc("GET /stages/{id}", s.handleGetStage)
	mux.HandleFunc("GET /stages/{id}/incidents", s.handleListStageIncidents)
	mux.HandleFunc("GET /categories", s.handleListCategories)

	mux.HandleFunc("GET /incidents", s.handleListIncidents)
	mux.HandleFunc("GET /incidents/{id}", s.handleGetIncident)
	mux.Handle("GET /incidents/{id}/rca", s.protect(s.handleIncidentRCA))
	mux.Handle("POST /incidents/{id}/chat", s.protect(s.handleIncidentChat))

	mux.HandleFunc("POST /pipeline/runs", s.handleStartRun)
	mux.HandleFunc("POST /pipeline/runs/stream", s.handleStreamRun)
	mux.HandleFunc("GET /pipeline/status", s.handlePipelineStatus)
	mux.HandleFunc("GET /pipeline/runs", s.handleListRuns)
	mux.HandleFunc("GET /pipeline/runs/{id}", s.handleGetRun)

	mux.Handle("POST /ai/query", s.protect(s.handleAIQuery))
	mux.Handle("POST /chat/sessions", s.protect(s.handleCreateSession))
	mux.Handle("GET /chat/sessions/{id}", s.protect(s.handleGetSession))
	mux.Handle("DELETE /chat/sessions/{id}", s.protect(s.handleDeleteSession))
	mux.Handle("POST /chat/sessions/{id}/messages", s.protect(s.handlePostMessage))

	mux.HandleFunc("POST /auth/token", s.handleIssueToken)
	return mux
}

// Handler returns the complete handler chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully and releases every component.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[server] shutting down")
		s.cancelRuns()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.Close()
	log.Println("[server] stopped")
	return err
}

// Close cancels in-flight runs and releases the server's components.
func (s *Server) Close() {
	s.cancelRuns()
	s.unsubscribe()
	s.rateLimiter.Stop()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// recordRun stores every finished run in the run history.
func (s *Server) recordRun(ev pipeline.Event) {
	if ev.Kind != pipeline.EventFinished || ev.Result == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.runs.SaveRun(ctx, ev.Result); err != nil {
		log.Printf("[server] failed to record run %s: %v", ev.RunID, err)
	}
}

// protect requires an operator token when auth is configured.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	if s.auth == nil {
		return h
	}
	return middleware.RequireBearer(s.jwtService.AsTokenValidator())(h)
}

// withCORS adds CORS headers for the configured origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	wildcard := slices.Contains(s.allowOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.allowOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients that exhausted their bucket.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.rateLimiter.Allow(clientID(r), r.Method, r.URL.Path)
		setRateLimitHeaders(w, d)
		if !d.Allowed {
			s.rateLimitResponse(w, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %d %s in %v", r.Method, r.URL.Path, rec.status, r.RemoteAddr, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"ai_enabled":  s.relay.Configured(),
		"auth":        s.auth != nil,
		"run_running": s.runner.Running(),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFrom writes err with the status HTTPStatus picks for it.
func (s *Server) errorFrom(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[server] internal error: %v", err)
	}
	s.errorResponse(w, status, err.Error())
}

// clientID returns the client IP from RemoteAddr.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	if d.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// rateLimitResponse writes a 429 with the retry hint.
func (s *Server) rateLimitResponse(w http.ResponseWriter, d ratelimit.Decision) {
	response := map[string]any{
		"error":   "rate_limit_exceeded",
		"message": "Rate limit exceeded. Please try again later.",
		"limit":   d.Limit,
	}
	if d.RetryAfter > 0 {
		seconds := int(d.RetryAfter.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	log.Printf("[rate-limit] limit=%d exceeded, retry in %v", d.Limit, d.RetryAfter)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
