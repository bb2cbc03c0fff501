// Package api implements the JSON HTTP API.
//
// Routes are registered on a net/http ServeMux with method patterns. All
// application routes sit behind a middleware stack (outermost first):
// recovery, request ID, logging, per-IP rate limiting. Health probes bypass
// the stack so orchestrators are never rate limited.
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnloop/learnloop/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      log.Logger
	Pipeline    Answerer         // Required
	Enrollments EnrollmentSource // Optional: nil skips enrollment context in chat
	Courses     CourseStore      // Required
	Feedback    FeedbackStore    // Required
	Pool        *pgxpool.Pool    // Optional: nil disables pool stats in /ready
	TrustProxy  bool             // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int              // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Courses == nil {
		return nil, errors.New("course store is required")
	}
	if cfg.Feedback == nil {
		return nil, errors.New("feedback store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{pipeline: cfg.Pipeline, enrollments: cfg.Enrollments, logger: logger}
	dh := &documentHandler{pipeline: cfg.Pipeline, logger: logger}
	fh := &feedbackHandler{store: cfg.Feedback, logger: logger}
	crs := &courseHandler{store: cfg.Courses, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/documents", dh.upload)
	mux.HandleFunc("POST /api/v1/feedback", fh.submit)
	mux.HandleFunc("GET /api/v1/feedback", fh.history)
	mux.HandleFunc("GET /api/v1/courses", crs.list)
	mux.HandleFunc("POST /api/v1/courses/{id}/enroll", crs.enroll)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux separates health probes from the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
