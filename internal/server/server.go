// Package server exposes the playback debug and control surface over
// HTTP: health, stats, prometheus metrics, pprof, and a small control
// API driving the player.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers the pprof handlers on DefaultServeMux
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zsiec/loopview/internal/config"
	"github.com/zsiec/loopview/internal/health"
	"github.com/zsiec/loopview/internal/logger"
	"github.com/zsiec/loopview/internal/player"
)

// Controller is the slice of the Player the server drives. Satisfied by
// *player.Player.
type Controller interface {
	Play() error
	Pause()
	Stop()
	Seek(seconds float64)
	SetVolume(volume int)
	SetLoop(loop bool)
	Stats() player.Stats
}

// Server is the debug HTTP server.
type Server struct {
	cfg        *config.Config
	router     *mux.Router
	httpServer *http.Server
	logger     logger.Logger
	ctrl       Controller
	healthMgr  *health.Manager
}

func New(cfg *config.Config, log logger.Logger, ctrl Controller) *Server {
	s := &Server{
		cfg:       cfg,
		router:    mux.NewRouter(),
		logger:    log.WithField("component", "server"),
		ctrl:      ctrl,
		healthMgr: health.NewManager(log),
	}
	s.healthMgr.Register(health.NewPipelineChecker(ctrl))
	s.setupRoutes()
	return s
}

// Start serves until ctx ends, then shuts down gracefully. Health checks
// run periodically for the duration.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Debug.Addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go s.healthMgr.StartPeriodicChecks(ctx, 15*time.Second)

	s.logger.WithField("addr", s.cfg.Debug.Addr).Info("starting debug server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("debug server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down debug server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the mux for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router.MethodNotAllowedHandler = notAllowed

	healthHandler := health.NewHandler(s.healthMgr)
	s.router.HandleFunc("/healthz", healthHandler.HandleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/livez", healthHandler.HandleLive).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = notAllowed
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/play", s.handlePlay).Methods(http.MethodPost)
	api.HandleFunc("/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/seek", s.handleSeek).Methods(http.MethodPost)
	api.HandleFunc("/volume", s.handleVolume).Methods(http.MethodPost)
	api.HandleFunc("/loop", s.handleLoop).Methods(http.MethodPost)

	// pprof stays on the default mux.
	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
