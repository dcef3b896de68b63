// Package server provides the HTTP server for the Chikitsa rehabilitation coach.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/chikitsa/internal/app"
	"github.com/ayusman/chikitsa/internal/capture"
	"github.com/ayusman/chikitsa/internal/server/api"
	"github.com/ayusman/chikitsa/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Coach     *app.App
	Camera    capture.Camera
}

// Server represents the HTTP server for the Chikitsa application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Register the exercise catalog if Store is configured
	if s.config.Store != nil {
		exerciseHandler := api.NewExerciseHandler(s.config.Store)
		s.mux.Handle("/api/exercises", exerciseHandler)
		s.mux.Handle("/api/exercises/", exerciseHandler)
	}

	// Register the session API if Store and Coach are configured
	if s.config.Store != nil && s.config.Coach != nil {
		sessionHandler := api.NewSessionHandler(s.config.Store, s.config.Coach)
		s.mux.Handle("/api/sessions", sessionHandler)
		s.mux.Handle("/api/sessions/", sessionHandler)
	}

	// Register the live feed WebSocket if Coach is configured
	if s.config.Coach != nil {
		s.mux.Handle("/api/live", NewLiveHandler(s.config.Coach))
	}

	// Register camera stream endpoint if Camera is configured
	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
