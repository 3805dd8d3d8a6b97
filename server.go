package mtapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/internal/logger"
)

// Server exposes an Engine over HTTP
type Server struct {
	engine *Engine
	cfg    config.ServerConfig
	log    logger.Logger
	server *http.Server
}

// NewServer creates a server for the engine; it does not listen until Start
func NewServer(engine *Engine, cfg config.ServerConfig, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{engine: engine, cfg: cfg, log: log}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoutes)
	mux.HandleFunc("GET /routes", s.cors(s.handleRoutes))
	mux.HandleFunc("GET /by-route/{route}", s.handleByRoute)
	mux.HandleFunc("GET /by-id/{ids}", s.cors(s.handleByID))
	mux.HandleFunc("GET /by-location", s.cors(s.handleByLocation))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}

// Start listens in the background
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Fatal("Server error", "error", err)
		}
	}()
	s.log.Info("Server listening", "addr", s.server.Addr)
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// HandleGracefulShutdown blocks until SIGINT or SIGTERM (or ctx is done),
// then shuts the server down and stops the engine's scheduler.
func HandleGracefulShutdown(ctx context.Context, s *Server, e *Engine) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		s.log.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", "error", err)
	} else {
		s.log.Info("Server shut down successfully")
	}
	if e != nil {
		e.Stop()
	}
}
