package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"nanotrade/internal/observability"
	"nanotrade/internal/query"
)

// HTTPServer serves the read-only JSON API over the persisted alert
// history, plus liveness and readiness probes. The engine itself is
// never touched from request handlers.
type HTTPServer struct {
	addr    string
	queries *query.QueryService
	health  *observability.HealthChecker
	logger  zerolog.Logger
}

func NewHTTPServer(addr string, queries *query.QueryService, health *observability.HealthChecker) *HTTPServer {
	return &HTTPServer{
		addr:    addr,
		queries: queries,
		health:  health,
		logger:  observability.NewLogger("server"),
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/alerts", s.handleAlerts)
	mux.HandleFunc("GET /v1/interventions", s.handleInterventions)
	mux.HandleFunc("GET /v1/summary", s.handleSummary)
	mux.HandleFunc("/healthz", s.health.LivenessHandler)
	mux.HandleFunc("/readyz", s.health.ReadinessHandler)

	srv := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	s.logger.Info().Str("addr", s.addr).Msg("http server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alertType := r.URL.Query().Get("type")
	limit := queryInt(r, "limit", 100)

	alerts, err := s.queries.RecentAlerts(r.Context(), alertType, limit)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"alerts": alerts})
}

func (s *HTTPServer) handleInterventions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)

	interventions, err := s.queries.RecentInterventions(r.Context(), limit)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"interventions": interventions})
}

func (s *HTTPServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.queries.Summary(r.Context())
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.writeJSON(w, summary)
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

func (s *HTTPServer) serverError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("query failed")
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
