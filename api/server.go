package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/metrics"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/scanner"
	"github.com/sirupsen/logrus"
)

// StatusSource is the read side of the scanner.
type StatusSource interface {
	Snapshot() scanner.StatusSnapshot
	Events() []models.Event
	Subscribe() (<-chan models.Event, func())
}

type Server struct {
	status     StatusSource
	auth       *Authenticator
	logger     *logrus.Logger
	port       string
	httpServer *http.Server
}

// NewServer builds the API server. A nil auth leaves every route open.
func NewServer(status StatusSource, auth *Authenticator, logger *logrus.Logger, port string) *Server {
	s := &Server{
		status: status,
		auth:   auth,
		logger: logger,
		port:   port,
	}
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/api/status", s.protect(http.HandlerFunc(s.handleStatus)))
	mux.Handle("/api/events", s.protect(http.HandlerFunc(s.handleEvents)))
	mux.Handle("/api/events/ws", s.protect(http.HandlerFunc(s.handleEventStream)))

	return corsMiddleware(mux)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Infof("Starting API server on port %s", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) protect(h http.Handler) http.Handler {
	if s.auth == nil {
		return h
	}
	return s.auth.Middleware(h)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.status.Snapshot()
	response := map[string]interface{}{
		"status":    "healthy",
		"running":   snap.Running,
		"timestamp": time.Now().UTC(),
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.status.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events := s.status.Events()
	if t := models.EventType(r.URL.Query().Get("type")); t != "" {
		filtered := make([]models.Event, 0, len(events))
		for _, ev := range events {
			if ev.Type == t {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}
