// Package api exposes the dues engine over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/dues"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 1 << 20

// ServerOptions contains optional dependencies for the API server.
type ServerOptions struct {
	// Gatherer backs /metrics. Nil leaves the route unregistered.
	Gatherer     prometheus.Gatherer
	MaxBodyBytes int64
}

// Server is the HTTP API server.
type Server struct {
	dues         *dues.Dues
	logger       *slog.Logger
	mux          *chi.Mux
	maxBodyBytes int64
}

// NewServer creates a new API server.
func NewServer(d *dues.Dues, opts ServerOptions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = d.Logger()
	}
	srv := &Server{
		dues:         d,
		logger:       logger.With("component", "api"),
		maxBodyBytes: opts.MaxBodyBytes,
	}
	if srv.maxBodyBytes <= 0 {
		srv.maxBodyBytes = DefaultMaxBodyBytes
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(srv.logRequests)

	mux.Get("/healthz", srv.handleHealthz)
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.Route("/v1", func(r chi.Router) {
		r.Get("/config", srv.handleGetConfig)
		r.Put("/config", srv.handlePutConfig)

		r.Post("/generate", srv.handleGenerateRange)
		r.Post("/periods/{period}/generate", srv.handleGeneratePeriod)
		r.Post("/periods/{period}/close", srv.handleClosePeriod)

		r.Get("/charges", srv.handleListCharges)
		r.Get("/charges/{chargeID}", srv.handleGetCharge)
		r.Get("/charges/{chargeID}/due", srv.handleAmountDue)
		r.Post("/charges/{chargeID}/payments", srv.handleRecordPayment)

		r.Get("/members/{memberID}/summary", srv.handleMemberSummary)
		r.Get("/overview", srv.handleOverview)
		r.Get("/overview/export", srv.handleOverviewExport)
	})

	srv.mux = mux
	return srv
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.dues.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
