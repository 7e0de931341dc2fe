// Package api exposes the reconciled pipeline output to the rendering
// layer: widget CRUD, snapshots, a search proxy and a WebSocket snapshot
// stream.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chart-back/internal/pipeline"
	"github.com/chart-back/pkg/config"
	"github.com/chart-back/pkg/models"
)

// Searcher proxies autocomplete queries to the upstream service.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SymbolMatch, error)
}

// Server represents the HTTP API server
type Server struct {
	cfg        *config.Config
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server

	widgets *pipeline.Manager
	search  Searcher
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, logger *logrus.Logger, widgets *pipeline.Manager, search Searcher) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		widgets: widgets,
		search:  search,
	}

	s.setupRoutes()

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	if s.cfg.Security.CORSEnabled {
		s.router.Use(s.corsMiddleware)
	}

	apiV1 := s.router.PathPrefix("/api/v1").Subrouter()

	apiV1.HandleFunc("/health", s.handleHealth).Methods("GET")
	apiV1.HandleFunc("/search", s.handleSearch).Methods("GET")

	apiV1.HandleFunc("/widgets", s.handleListWidgets).Methods("GET")
	apiV1.HandleFunc("/widgets", s.handleAddWidget).Methods("POST")
	apiV1.HandleFunc("/widgets/{id:[0-9]+}", s.handleGetWidget).Methods("GET")
	apiV1.HandleFunc("/widgets/{id:[0-9]+}", s.handleDeleteWidget).Methods("DELETE")
	apiV1.HandleFunc("/widgets/{id:[0-9]+}/range", s.handleSetRange).Methods("PUT")
	apiV1.HandleFunc("/widgets/{id:[0-9]+}/symbol", s.handleSetSymbol).Methods("PUT")
	apiV1.HandleFunc("/widgets/{id:[0-9]+}/stream", s.handleStream).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.cfg.GetServerAddr()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.WithField("address", addr).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the configured router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Middleware functions

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Debug("HTTP request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.WithFields(logrus.Fields{
					"error": err,
					"path":  r.URL.Path,
				}).Error("Panic recovered")

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(s.cfg.Security.CORSOrigins),
		handlers.AllowedMethods(s.cfg.Security.CORSMethods),
		handlers.AllowedHeaders(s.cfg.Security.CORSHeaders),
	)(next)
}

// handleHealth reports service health and the widget count
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"widgets":   s.widgets.Count(),
		"timestamp": time.Now().Unix(),
	})
}

// handleSearch proxies autocomplete queries upstream
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	matches, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.logger.WithError(err).Error("Search failed")
		writeError(w, http.StatusBadGateway, "search unavailable")
		return
	}

	writeJSON(w, http.StatusOK, matches)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements the http.Hijacker interface to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("ResponseWriter does not implement http.Hijacker")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{
		Error: msg,
		Code:  status,
	})
}
