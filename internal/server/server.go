// Package server provides the HTTP REST API for the product catalog and its analysis runs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonathan/catalog-agent/internal/llm"
	"github.com/jonathan/catalog-agent/internal/observability"
	"github.com/jonathan/catalog-agent/internal/orchestrator"
	"github.com/jonathan/catalog-agent/internal/products"
	"github.com/jonathan/catalog-agent/internal/server/middleware"
	"github.com/jonathan/catalog-agent/internal/server/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     chi.Router

	orch     *orchestrator.Orchestrator
	catalog  *products.Service
	registry *llm.Registry

	jwtService  *JWTService
	rateLimiter *ratelimit.Limiter
	metrics     *observability.Metrics
	gatherer    prometheus.Gatherer
	logger      *slog.Logger

	shutdownTimeout time.Duration
	streamInterval  time.Duration
}

// Config holds server configuration
type Config struct {
	Port            int
	ShutdownTimeout time.Duration
	// StreamInterval is how often job event streams poll for new stages
	StreamInterval time.Duration
}

// Deps are the collaborators of the server. Orchestrator and Catalog are required.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Catalog      *products.Service
	// Registry resolves provider names for PUT /config; nil rejects provider changes
	Registry *llm.Registry
	// JWT protects admin routes; nil leaves them open
	JWT         *JWTService
	RateLimiter *ratelimit.Limiter
	Metrics     *observability.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Orchestrator == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("server requires an orchestrator and a catalog service")
	}

	s := &Server{
		orch:            deps.Orchestrator,
		catalog:         deps.Catalog,
		registry:        deps.Registry,
		jwtService:      deps.JWT,
		rateLimiter:     deps.RateLimiter,
		metrics:         deps.Metrics,
		gatherer:        deps.Gatherer,
		logger:          deps.Logger,
		shutdownTimeout: cfg.ShutdownTimeout,
		streamInterval:  cfg.StreamInterval,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 30 * time.Second
	}
	if s.streamInterval <= 0 {
		s.streamInterval = 500 * time.Millisecond
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// Event streams stay open for a whole run
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.withLogging)
	r.Use(s.withCORS)
	r.Use(s.withRateLimit)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Public catalog and job status
	r.Get("/products", s.handleListProducts)
	r.Get("/products/published", s.handleListPublished)
	r.Get("/products/{id}", s.handleGetProduct)
	r.Get("/products/{id}/jobs", s.handleProductJobs)
	r.Get("/jobs/{id}", s.handleJobStatus)
	r.Get("/jobs/{id}/events", s.handleJobEvents)
	r.Get("/config", s.handleGetConfig)

	// Admin routes
	r.Group(func(r chi.Router) {
		if s.jwtService != nil {
			r.Use(middleware.AuthMiddleware(s.jwtService.AsTokenValidator()))
		}
		r.Post("/products", s.handleCreateProduct)
		r.Delete("/products/{id}", s.handleDeleteProduct)
		r.Post("/products/{id}/analyses", s.handleTriggerAnalysis)
		r.Post("/products/{id}/publish", s.handlePublish)
		r.Post("/products/{id}/unpublish", s.handleUnpublish)
		r.Get("/products/{id}/freshness", s.handleFreshness)
		r.Post("/jobs/{id}/cancel", s.handleCancelJob)
		r.Put("/config", s.handleUpdateConfig)
		r.Post("/opportunities", s.handleOpportunities)
	})

	return r
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves requests until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}
	if err := s.orch.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("orchestrator shutdown failed: %w", err))
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.logger.Info("server stopped")
	return errors.Join(errs...)
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			if s.metrics != nil {
				s.metrics.RateLimited.WithLabelValues(r.Method, info.Rule).Inc()
			}
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging logs every request and records HTTP metrics by route pattern
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		logger := s.logger.With("request_id", chimw.GetReqID(r.Context()))
		ctx := observability.WithLogger(r.Context(), logger)

		next.ServeHTTP(ww, r.WithContext(ctx))

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", elapsed.Milliseconds(),
			"remote", r.RemoteAddr,
		)
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			s.metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		}
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.orch.Providers(),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("error encoding JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// handleError maps err to a status code and writes it
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		observability.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	s.errorResponse(w, status, errorMessage(status, err))
}

// decodeJSON reads a JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// clientID extracts the client identifier (IP address) from the request.
func clientID(r *http.Request) string {
	// Get IP from RemoteAddr (format: "IP:port")
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If parsing fails, use the whole RemoteAddr
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("rate limit exceeded", "rule", info.Rule, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
