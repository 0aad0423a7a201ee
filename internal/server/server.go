package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/hackathon-platform/internal/connection"
	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/internal/storage"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// Messages returned in {"error": ...} bodies
const (
	msgFetchHackathons = "Failed to fetch hackathons"
	msgFetchHackathon  = "Failed to fetch hackathon"
	msgFetchProject    = "Failed to fetch project"
	msgFetchWinner     = "Failed to fetch winner"
	msgInternal        = "Internal server error"
	msgNotFound        = "Not found"
)

// QueryService is the read side served over HTTP
type QueryService interface {
	ListHackathons(ctx context.Context) ([]*models.Hackathon, error)
	GetHackathon(ctx context.Context, id string) (*models.HackathonDetail, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetWinner(ctx context.Context, hackathonID string) (*models.Winner, error)
	Health() models.Health
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
	// DistinctErrors answers unknown ids with 404 and bad ids with 400
	// instead of the generic 500.
	DistinctErrors bool `json:"distinct_errors"`
}

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config         *ServerConfig
	server         *http.Server
	router         *mux.Router
	query          QueryService
	ledger         connection.Manager
	storage        storage.Storage
	metricsManager *metrics.Manager
	logger         *logrus.Entry

	stopOnce sync.Once
	stop     chan struct{}
}

// NewHTTPServer creates a new HTTP server. metricsManager may be nil.
func NewHTTPServer(config *ServerConfig, query QueryService, metricsManager *metrics.Manager) *HTTPServer {
	s := &HTTPServer{
		config:         config,
		query:          query,
		metricsManager: metricsManager,
		logger:         utils.GetLogger().WithField("component", "http_server"),
		stop:           make(chan struct{}),
	}

	s.setupRouter()

	s.server = &http.Server{
		Addr:         net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port)),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// SetLedger attaches the ledger connection reported by the detailed health check
func (s *HTTPServer) SetLedger(ledger connection.Manager) {
	s.ledger = ledger
}

// SetStorage attaches the storage reported by the detailed health check
func (s *HTTPServer) SetStorage(store storage.Storage) {
	s.storage = store
}

// Handler returns the router, for tests and embedding
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	// Routes sit on the root router so method mismatches reach MethodNotAllowedHandler
	s.router.HandleFunc("/api/health", s.healthHandler).Methods(http.MethodGet)
	if s.config.EnableHealth {
		s.router.HandleFunc("/api/health/detailed", s.detailedHealthHandler).Methods(http.MethodGet)
	}

	s.router.HandleFunc("/api/hackathons", s.listHackathonsHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/hackathons/{id}", s.getHackathonHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/hackathons/{id}/winner", s.getWinnerHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/projects/{id}", s.getProjectHandler).Methods(http.MethodGet)

	if s.config.EnableMetrics && s.metricsManager != nil {
		s.router.Handle("/metrics", s.metricsManager.Handler())
		s.router.HandleFunc("/api/stats", s.statsHandler).Methods(http.MethodGet)
	}

	// Unknown paths get no preflight answer, only the CORS headers
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: msgNotFound})
	})
	s.router.MethodNotAllowedHandler = s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
	}))
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
		"distinct_errors": s.config.DistinctErrors,
	}).Info("Starting HTTP server")

	if s.metricsManager != nil {
		s.updateComponentMetrics()
		go s.systemMetricsUpdater()
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Surface immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop gracefully stops the HTTP server
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	s.stopOnce.Do(func() { close(s.stop) })
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateComponentMetrics()
		case <-s.stop:
			return
		}
	}
}

func (s *HTTPServer) updateComponentMetrics() {
	s.metricsManager.UpdateSystemMetrics()

	prom := s.metricsManager.GetPrometheusMetrics()
	if s.storage != nil {
		prom.UpdateComponentHealth("storage", s.storage.GetHealth().Healthy)
	}
	if s.ledger != nil {
		prom.UpdateComponentHealth("ledger", s.ledger.IsConnected())
	}
}

// healthHandler returns the liveness payload
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.query.Health())
}

// detailedHealthHandler reports the ledger connection and storage
func (s *HTTPServer) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.query.Health()
	components := map[string]interface{}{}
	status := health.Status

	if s.ledger != nil {
		stats := s.ledger.Stats()
		components["ledger"] = map[string]interface{}{
			"healthy":      s.ledger.IsConnected(),
			"url":          stats.CurrentURL,
			"chain_id":     stats.ChainID,
			"latest_block": stats.LatestBlock,
			"reconnects":   stats.Reconnects,
		}
		if !s.ledger.IsConnected() {
			status = "DEGRADED"
		}
	}
	if s.storage != nil {
		storageHealth := s.storage.GetHealth()
		components["storage"] = storageHealth
		if !storageHealth.Healthy {
			status = "DEGRADED"
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"timestamp":  health.Timestamp,
		"components": components,
	})
}

// statsHandler returns ledger connection and storage statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(models.DeadlineLayout),
	}
	if s.ledger != nil {
		stats["ledger"] = s.ledger.Stats()
	}
	if s.storage != nil {
		storageStats, err := s.storage.GetStats()
		if err != nil {
			s.writeError(w, "Failed to retrieve storage stats", err)
			return
		}
		stats["storage"] = storageStats
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// listHackathonsHandler lists all hackathons
func (s *HTTPServer) listHackathonsHandler(w http.ResponseWriter, r *http.Request) {
	hackathons, err := s.query.ListHackathons(r.Context())
	if err != nil {
		s.writeError(w, msgFetchHackathons, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hackathons)
}

// getHackathonHandler returns one hackathon with its projects
func (s *HTTPServer) getHackathonHandler(w http.ResponseWriter, r *http.Request) {
	detail, err := s.query.GetHackathon(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, msgFetchHackathon, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

// getProjectHandler returns one project
func (s *HTTPServer) getProjectHandler(w http.ResponseWriter, r *http.Request) {
	project, err := s.query.GetProject(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, msgFetchProject, err)
		return
	}
	s.writeJSON(w, http.StatusOK, project)
}

// getWinnerHandler returns the winner of a hackathon
func (s *HTTPServer) getWinnerHandler(w http.ResponseWriter, r *http.Request) {
	winner, err := s.query.GetWinner(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, msgFetchWinner, err)
		return
	}
	s.writeJSON(w, http.StatusOK, winner)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError logs err and answers with the generic message only
func (s *HTTPServer) writeError(w http.ResponseWriter, message string, err error) {
	status := s.statusFor(err)

	s.logger.WithFields(logrus.Fields{
		"status":  status,
		"message": message,
		"error":   err,
	}).Error("Request failed")

	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *HTTPServer) statusFor(err error) int {
	if !s.config.DistinctErrors {
		return http.StatusInternalServerError
	}

	switch {
	case errors.Is(err, utils.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
