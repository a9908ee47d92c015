// Package http serves the JSON API of the ledger viewer: account
// dashboards, breakdown summaries, destination balances, CSV export, and
// scoped refresh triggers.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ledgerview/internal/amqp"
	"ledgerview/internal/cache"
	"ledgerview/internal/core"
	"ledgerview/internal/report"
	"ledgerview/internal/services"
)

// RefreshPublisher publishes a scoped refresh event for the worker.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, scope amqp.RefreshScope, accountID string) error
}

// SummaryAppender pushes a breakdown summary to an external sheet.
type SummaryAppender interface {
	AppendSummary(ctx context.Context, accountName string, summary core.BreakdownSummary) error
}

type Server struct {
	http.Server

	engine      *report.Engine
	directory   services.AccountDirectory
	balances    *services.BalanceService
	publisher   RefreshPublisher // optional
	sheets      SummaryAppender  // optional
	pageSize    int
	rateLimiter *rateLimiter

	// Breakdown summaries are cached per account+dimension+range; a
	// refresh event for an account drops that account's entries only.
	breakdownCache *cache.LRUCache[core.BreakdownSummary]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(addr string, engine *report.Engine, directory services.AccountDirectory, balances *services.BalanceService, publisher RefreshPublisher, sheets SummaryAppender, pageSize int) *Server {
	mux := http.NewServeMux()

	if pageSize <= 0 {
		pageSize = report.DefaultPageSize
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		engine:         engine,
		directory:      directory,
		balances:       balances,
		publisher:      publisher,
		sheets:         sheets,
		pageSize:       pageSize,
		rateLimiter:    newRateLimiter(),
		breakdownCache: cache.NewLRUCache[core.BreakdownSummary](200, 5*time.Minute),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.breakdownCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /api/dashboard", s.withRequestLogging(s.handleDashboard))
	mux.HandleFunc("GET /api/accounts/{id}/breakdown", s.withRequestLogging(s.handleBreakdown))
	mux.HandleFunc("GET /api/accounts/{id}/balance", s.withRequestLogging(s.handleBalance))
	mux.HandleFunc("GET /api/destination-accounts", s.withRequestLogging(s.handleDestinationAccounts))
	mux.HandleFunc("GET /api/reports/export.csv", s.withRequestLogging(s.handleExportCSV))
	mux.HandleFunc("POST /api/reports/export.gsheet", s.withRequestLogging(s.handleExportSheet))
	mux.HandleFunc("POST /api/refresh", s.withRequestLogging(s.handleRefresh))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withRequestLogging adds request logging, tracing, and rate limiting on
// mutating requests.
func (s *Server) withRequestLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.DebugContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
