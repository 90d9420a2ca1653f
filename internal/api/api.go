// Package api exposes the engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/aggregate"
	"github.com/sells-group/recon-cli/internal/engine"
	"github.com/sells-group/recon-cli/internal/pricechange"
	"github.com/sells-group/recon-cli/internal/store"
)

// Service is the engine surface the API needs.
type Service interface {
	Profiles() []string
	Files(ctx context.Context, q engine.FileQuery) ([]string, error)
	Scan(ctx context.Context, req engine.ScanRequest, progress aggregate.ProgressFunc) (*engine.ScanResult, error)
	PriceModel(ctx context.Context) (*engine.Snapshot, error)
	Submit(ctx context.Context, req engine.SubmitRequest) (*engine.SubmitResult, error)
	Reports(ctx context.Context, filter store.ReportFilter) ([]store.Record, error)
	Report(ctx context.Context, id string) (*store.Record, error)
	ReportCSV(ctx context.Context, id string) (string, error)
	SetStatus(ctx context.Context, id string, to pricechange.Status) (*store.StatusEvent, error)
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	// Now is the clock used to resolve date presets.
	Now func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	svc Service
	now func() time.Time
}

// NewRouter builds the chi router for svc.
func NewRouter(svc Service, opts Options) http.Handler {
	s := &Server{svc: svc, now: opts.Now}
	if s.now == nil {
		s.now = time.Now
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/profiles", s.profiles)
		r.Get("/files", s.files)
		r.Post("/scans", s.scan)
		r.Get("/prices", s.prices)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.listReports)
			r.Post("/", s.submit)
			r.Get("/{id}", s.getReport)
			r.Get("/{id}/csv", s.reportCSV)
			r.Patch("/{id}/status", s.setStatus)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("component", "api"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.String("component", "api"), zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
