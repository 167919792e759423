package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/CyberRaas/WealthWise-sub002/internal/auth"
	applog "github.com/CyberRaas/WealthWise-sub002/internal/log"
	"github.com/CyberRaas/WealthWise-sub002/internal/metrics"
	"github.com/CyberRaas/WealthWise-sub002/internal/services"
)

const requestsPerMinute = 60

// Server exposes the settlement ledger as a JSON API.
type Server struct {
	httpServer  *http.Server
	service     *services.SettlementService
	jwtManager  *auth.JWTManager
	logger      *applog.Logger
	rateLimiter *rateLimiter
}

func NewServer(port string, service *services.SettlementService, jwtManager *auth.JWTManager, logger *applog.Logger) *Server {
	s := &Server{
		service:     service,
		jwtManager:  jwtManager,
		logger:      logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: newRateLimiter(requestsPerMinute),
	}

	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string {
		return chimiddleware.GetReqID(r.Context())
	}))
	r.Use(s.rateLimit)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.jwtManager))

		r.Post("/groups", s.handleCreateGroup)
		r.Route("/groups/{groupID}", func(r chi.Router) {
			r.Get("/settlements", s.handleListSettlements)
			r.Post("/settlements", s.handleProposeSettlement)
			r.Get("/balances", s.handleBalances)
			r.Get("/debts", s.handleDebts)
			r.Post("/expenses", s.handleAddExpense)
			r.Delete("/expenses/{expenseID}", s.handleRemoveExpense)
		})
		r.Post("/settlements/{settlementID}/respond", s.handleRespondSettlement)
	})

	return r
}

// rateLimit rejects clients that exceed the per-minute budget.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe records request metrics and an access log line per request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(r.Method, route, ww.Status(), elapsed)

		s.logger.InfoContext(r.Context(), "HTTP request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, ww.Status(),
			applog.FieldDuration, elapsed.Milliseconds())
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
