package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stockroom/internal/config"
	"stockroom/internal/handler"
	"stockroom/internal/model"
	"stockroom/internal/store"
)

// readyTimeout bounds the store ping performed by the readiness probe.
const readyTimeout = 2 * time.Second

// Probe serves liveness and readiness endpoints on a dedicated port so
// orchestrator checks stay off the API listener.
type Probe struct {
	httpServer *http.Server
	config     *config.Config
	logger     *zap.Logger
	pinger     store.Pinger
}

// NewProbe creates a new Probe instance.
func NewProbe(cfg *config.Config, logger *zap.Logger, pinger store.Pinger) *Probe {
	router := mux.NewRouter()

	p := &Probe{
		config: cfg,
		logger: logger,
		pinger: pinger,
	}

	router.HandleFunc("/health", p.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ready", p.handleReady).Methods(http.MethodGet)

	p.httpServer = &http.Server{
		Addr:              cfg.ProbeAddress(),
		Handler:           router,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      5 * time.Second,
	}

	return p
}

// handleHealth handles GET /health requests on the probe port.
func (p *Probe) handleHealth(w http.ResponseWriter, _ *http.Request) {
	response := handler.HealthResponse{
		Status:  "healthy",
		Version: handler.Version,
	}
	p.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// handleReady handles GET /ready requests. Readiness requires the store
// to answer a ping within the probe budget.
func (p *Probe) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := p.pinger.Ping(ctx); err != nil {
		p.logger.Warn("readiness check failed", zap.Error(err))
		p.writeJSON(w, http.StatusServiceUnavailable, model.ErrorResponse{
			Code:    http.StatusServiceUnavailable,
			Message: "store unreachable",
		})
		return
	}

	p.writeJSON(w, http.StatusOK, model.NewSuccessResponse(handler.ReadyResponse{Status: "ready"}))
}

// writeJSON writes a JSON response with the given status code.
func (p *Probe) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		p.logger.Error("failed to encode response", zap.Error(err))
	}
}

// Start starts the probe server.
func (p *Probe) Start() error {
	p.logger.Info("starting probe server", zap.String("address", p.config.ProbeAddress()))

	if err := p.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("probe listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the probe server.
func (p *Probe) Shutdown(ctx context.Context) error {
	if err := p.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("probe shutdown: %w", err)
	}

	return nil
}

// Router returns the probe's router for testing purposes.
func (p *Probe) Router() http.Handler {
	return p.httpServer.Handler
}
