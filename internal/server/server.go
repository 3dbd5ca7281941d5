// Package server exposes the anonymization engine over HTTP for
// deployments that want a long-lived service instead of the batch CLI.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/scmtools/textveil/internal/cache"
	"github.com/scmtools/textveil/internal/config"
	"github.com/scmtools/textveil/internal/events"
	"github.com/scmtools/textveil/internal/logger"
	"github.com/scmtools/textveil/internal/store"
)

// Server represents the anonymization HTTP service
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	router   *mux.Router
	server   *http.Server
	hub      *events.Hub
	cache    *cache.ResultCache
	store    *store.Store
	limiters *clientLimiters

	mu        sync.RWMutex
	engineCfg config.EngineConfig

	startTime     time.Time
	totalRequests int64
}

// New creates a new server instance. The Redis cache and the PostgreSQL
// store are only dialed when enabled in the configuration.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	s := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		router:    mux.NewRouter(),
		engineCfg: cfg.Engine,
		startTime: time.Now(),
		limiters:  newClientLimiters(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst),
	}

	if cfg.Events.Enabled {
		s.hub = events.NewHub(log.WithComponent("events").Logger)
	}

	if cfg.Cache.Enabled {
		resultCache, err := cache.NewResultCache(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		s.cache = resultCache
	}

	if cfg.Store.Enabled {
		mappingStore, err := store.NewStore(&store.Config{
			DatabaseURL:     cfg.Store.DatabaseURL,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		}, log.WithComponent("store").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create mapping store: %w", err)
		}
		s.store = mappingStore
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/anonymize", s.handleAnonymize).Methods("POST")
	if s.cache != nil {
		api.HandleFunc("/cache/stats", s.handleCacheStats).Methods("GET")
	}
	if s.store != nil {
		api.HandleFunc("/runs", s.handleRuns).Methods("GET")
		api.HandleFunc("/runs/{run_id}", s.handleRunEntries).Methods("GET")
	}

	if s.hub != nil {
		s.router.HandleFunc(s.config.Events.Path, s.handleWebSocket).Methods("GET")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting textveil server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("cache", s.cache != nil),
		zap.Bool("store", s.store != nil),
		zap.Bool("events", s.hub != nil),
	)

	if s.hub != nil {
		go s.hub.Run()
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping textveil server")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("Failed to close cache", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("Failed to close store", zap.Error(err))
		}
	}
	return nil
}

// UpdateEngineDefaults swaps the engine defaults applied to requests that
// don't override them. Called from the config hot-reload watcher.
func (s *Server) UpdateEngineDefaults(engineCfg config.EngineConfig) {
	s.mu.Lock()
	s.engineCfg = engineCfg
	s.mu.Unlock()

	s.logger.Info("Engine defaults updated",
		zap.Bool("case_insensitive", engineCfg.CaseInsensitive),
		zap.Bool("anonymize_numbers", engineCfg.AnonymizeNumbers),
	)
}

// engineDefaults returns the current engine defaults.
func (s *Server) engineDefaults() config.EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engineCfg
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// handleWebSocket hands the connection to the event hub
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.HandleWebSocket(w, r)
}
