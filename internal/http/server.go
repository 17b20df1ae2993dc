package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

// Options configures optional server behaviour.
type Options struct {
	// Cache stores rendered schedule and series responses. Nil disables it.
	Cache cache.Cache[[]byte]
	// RateLimitPerMinute bounds writes per client IP; 0 disables limiting.
	RateLimitPerMinute int
	// Ready reports backend health for /readyz. Nil always reports ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc      *services.LedgerService
	cache    cache.Cache[[]byte]
	ready    func(ctx context.Context) error
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.LedgerService, opts Options) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:      svc,
		cache:    opts.Cache,
		ready:    opts.Ready,
		detector: security.NewDetector(),
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/obligations", s.handleListObligations)
	mux.HandleFunc("GET /api/obligations/{id}", s.handleGetObligation)
	mux.HandleFunc("POST /api/obligations/{id}/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/obligations/{id}/entries", s.handleAddEntry)
	mux.HandleFunc("GET /api/schedule", s.handleSchedule)
	mux.HandleFunc("GET /api/series", s.handleSeries)

	var handler http.Handler = mux
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		handler = s.limiter.Middleware(s.detector.ExtractClientIP, http.MethodPost)(handler)
	}
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)

	httpLogger := log.New(log.Config{Component: log.ComponentHTTP, Handler: slog.Default().Handler()})
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, log.NewStructuredLogger(httpLogger))
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(httpLogger)(handler)

	s.Handler = handler
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics exposes request counters for the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
