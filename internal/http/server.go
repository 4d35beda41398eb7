package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"registro/internal/core"
	applog "registro/internal/log"
	"registro/internal/services"
)

// Ledger is the service surface the transport exposes.
type Ledger interface {
	ListLookups(ctx context.Context, kind core.LookupKind) ([]core.Lookup, error)
	EnsureLookup(ctx context.Context, kind core.LookupKind, name string) (int64, error)
	AllLookups(ctx context.Context) (services.Lookups, error)
	RecordTransaction(ctx context.Context, t core.Transaction) (int64, error)
	Query(ctx context.Context, f core.Filter) ([]core.Row, error)
	Dashboard(ctx context.Context, f core.Filter, topN int, fillGaps bool) (core.Dashboard, error)
	Ping(ctx context.Context) error
}

const readyTimeout = 2 * time.Second

type Server struct {
	http.Server
	ledger      Ledger
	logger      *applog.Logger
	access      *applog.StructuredLogger
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	shutdownOnce sync.Once
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the tracing id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Default()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:      ledger,
		logger:      logger,
		access:      applog.NewStructuredLogger(logger),
		rateLimiter: newRateLimiter(defaultWritesPerMinute),
		metrics:     &securityMetrics{},
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/lookups", s.handleAllLookups)
	mux.HandleFunc("GET /api/lookups/{kind}", s.handleListLookups)
	mux.HandleFunc("POST /api/lookups/{kind}", s.handleEnsureLookup)
	mux.HandleFunc("GET /api/transactions", s.handleQueryTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	// Method-less patterns catch what the routes above do not serve.
	for path, allowed := range map[string]string{
		"/api/lookups":        "GET",
		"/api/lookups/{kind}": "GET, POST",
		"/api/transactions":   "GET, POST",
		"/api/dashboard":      "GET",
	} {
		mux.Handle(path, methodNotAllowed(allowed))
	}

	s.Handler = s.withMiddleware(mux)
	return s
}

// withMiddleware adds request ids, a request-scoped logger, security
// headers, write rate limiting and access logging.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	withLogger := applog.Middleware(s.logger, func(r *http.Request) string {
		return RequestID(r.Context())
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.access.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			s.logger.WarnContext(ctx, "Suspicious request",
				applog.FieldRequestID, requestID,
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
		}

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").
				Header("Retry-After", "60").
				Write(rw)
		} else {
			withLogger.ServeHTTP(rw, r)
		}

		s.access.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.logger.Info("HTTP server stopped",
			"rate_limit_hits", atomic.LoadInt64(&s.metrics.rateLimitHits),
			"suspicious_requests", atomic.LoadInt64(&s.metrics.suspiciousRequests))
	})

	return shutdownErr
}

func methodNotAllowed(allowed string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError(allowed).Write(w)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.ledger.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
