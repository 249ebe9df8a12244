package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/therealdaud/HealthShield/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// StateReader looks up the current alert state for a (user, location) key.
type StateReader interface {
	Get(ctx context.Context, key domain.Key) (domain.AlertState, bool, error)
}

// Server exposes health, readiness, metrics, and current-risk HTTP endpoints.
type Server struct {
	httpServer *http.Server
	states     StateReader
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /risk/now routes.
func NewServer(addr string, ready ReadinessChecker, states StateReader, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		states: states,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /risk/now", s.handleRiskNow)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// riskResponse is the /risk/now payload: the stored alert state plus the
// personalized index behind it.
type riskResponse struct {
	UserID     string              `json:"user_id"`
	LocationID string              `json:"location_id"`
	Phase      domain.MachinePhase `json:"phase"`
	Level      domain.RiskLevel    `json:"risk_level"`
	IndexC     float64             `json:"personalized_index_c"`
	AsOf       time.Time           `json:"as_of"`
}

func (s *Server) handleRiskNow(w http.ResponseWriter, r *http.Request) {
	key := domain.Key{
		UserID:     r.URL.Query().Get("user_id"),
		LocationID: r.URL.Query().Get("location_id"),
	}
	if key.UserID == "" || key.LocationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "user_id and location_id are required",
		})
		return
	}

	state, found, err := s.states.Get(r.Context(), key)
	if err != nil {
		s.logger.Error("risk lookup failed", "error", err,
			"user_id", key.UserID, "location_id", key.LocationID)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "state store unavailable",
		})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no observations processed for this user and location",
		})
		return
	}

	writeJSON(w, http.StatusOK, riskResponse{
		UserID:     key.UserID,
		LocationID: key.LocationID,
		Phase:      state.Phase,
		Level:      state.Level,
		IndexC:     state.LastIndexC,
		AsOf:       state.LastObservation,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
