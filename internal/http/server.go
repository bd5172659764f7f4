package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"tutordesk/internal/core"
	"tutordesk/internal/format"
	applog "tutordesk/internal/log"
	"tutordesk/internal/receipt"
	appweb "tutordesk/web"
)

// Ledger is the service the handlers drive. Every mutation returns the
// snapshot fetched after the write.
type Ledger interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
	AddStudent(ctx context.Context, s core.Student) (string, core.Snapshot, error)
	UpdateStudent(ctx context.Context, id string, s core.Student) (core.Snapshot, error)
	DeleteStudent(ctx context.Context, id string) (core.Snapshot, error)
	AddPayment(ctx context.Context, p core.Payment) (string, core.Snapshot, error)
	UpdatePayment(ctx context.Context, id string, p core.Payment) (core.Snapshot, error)
	DeletePayment(ctx context.Context, id string) (core.Snapshot, error)
	PaymentDetail(ctx context.Context, paymentID string) (core.Payment, core.Student, error)
	Ping(ctx context.Context) error
}

// Server is the web front of the ledger.
type Server struct {
	http.Server
	templates   *template.Template
	ledger      Ledger
	formatter   *format.Formatter
	renderer    *receipt.Renderer
	logger      *applog.Logger
	reqLog      *applog.StructuredLogger
	rateLimiter *rateLimiter
	security    *securityMetrics
	started     time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for requests and handler errors.
func WithLogger(l *applog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRenderer sets the PDF renderer used for receipt downloads.
func WithRenderer(r *receipt.Renderer) Option {
	return func(s *Server) { s.renderer = r }
}

// WithRateLimit overrides the number of writes a client may send per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimiter.limit = perMinute }
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, formatter *format.Formatter, opts ...Option) (*Server, error) {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:      ledger,
		formatter:   formatter,
		rateLimiter: newRateLimiter(defaultWritesPerMinute),
		security:    &securityMetrics{},
		started:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.Wrap(slog.Default(), applog.ComponentHTTP)
	}
	if s.renderer == nil {
		s.renderer = receipt.NewRenderer()
	}
	s.reqLog = applog.NewStructuredLogger(s.logger)

	t, err := template.New("").Funcs(s.funcMap()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static files: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		static.ServeHTTP(w, r)
	}))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleDashboard)

	mux.HandleFunc("GET /students", s.handleStudents)
	mux.HandleFunc("POST /students", s.handleCreateStudent)
	mux.HandleFunc("POST /students/{id}", s.handleUpdateStudent)
	mux.HandleFunc("POST /students/{id}/delete", s.handleDeleteStudent)

	mux.HandleFunc("GET /payments", s.handlePayments)
	mux.HandleFunc("POST /payments", s.handleCreatePayment)
	mux.HandleFunc("POST /payments/{id}", s.handleUpdatePayment)
	mux.HandleFunc("POST /payments/{id}/delete", s.handleDeletePayment)

	mux.HandleFunc("GET /tracking", s.handleTracking)

	mux.HandleFunc("GET /receipts/{id}", s.handleReceipt)
	mux.HandleFunc("GET /receipts/{id}/pdf", s.handleReceiptPDF)

	s.Handler = withRequestID(
		applog.Middleware(s.logger)(
			applog.RequestIDMiddleware(requestIDOf)(
				s.withSecurityHeaders(mux))))
	return s, nil
}

// Shutdown stops the rate limiter sweeper and drains open connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}

// withRequestID stamps every request with a fresh ID, replacing any ID the
// client sent, and echoes it in the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := generateRequestID()
		r.Header.Set("X-Request-ID", id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func requestIDOf(r *http.Request) string { return r.Header.Get("X-Request-ID") }

// withSecurityHeaders adds security headers, write rate limiting and
// request logging.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		ctx := r.Context()
		logger := applog.FromContext(ctx)

		s.reqLog.LogHTTPStart(ctx, r, clientIP)
		if detectSuspiciousRequest(r, s.security) {
			logger.WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Trop de requêtes, réessayez dans une minute.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.reqLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
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

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the storage backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"templates": "ok",
		"rate_limiter": map[string]any{
			"active_clients": s.rateLimiter.activeClients(),
			"rejected":       s.rateLimiter.rejected(),
		},
		"suspicious_requests": s.security.suspicious(),
	}
	if err := s.ledger.Ping(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldError, err.Error())
		checks["storage"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// render executes a template into a buffer so a failure still yields a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.reqLog.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, name, applog.NewFields())
		http.Error(w, "Erreur interne", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderFragment executes a partial for an HTMX response body.
func (s *Server) renderFragment(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
