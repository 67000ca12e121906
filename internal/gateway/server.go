// Package gateway exposes the dialogue orchestrator over HTTP and
// WebSocket for presentation clients.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dstessier/accord/internal/capture"
	"github.com/dstessier/accord/internal/dialogue"
	"github.com/dstessier/accord/internal/events"
	"github.com/dstessier/accord/internal/gateway/ws"
	"github.com/dstessier/accord/internal/phases"
)

// Server is the accord gateway HTTP server.
type Server struct {
	httpServer  *http.Server
	hub         *ws.Hub
	bus         *events.Bus
	orch        *dialogue.Orchestrator
	transcriber capture.TranscriptionProvider
	host        string
	port        int
}

// NewServer creates a new gateway server.
func NewServer(orch *dialogue.Orchestrator, bus *events.Bus, host string, port int) *Server {
	hub := ws.NewHub(orch, bus)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	s := &Server{
		hub:  hub,
		bus:  bus,
		orch: orch,
		host: host,
		port: port,
	}

	// Routes
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ws", hub.ServeWS)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/session", s.handleGetSession)
	r.Post("/api/session", s.handleBeginSession)
	r.Delete("/api/session", s.handleResetSession)
	r.Get("/api/phases", s.handlePhases)
	r.Get("/api/topics", s.handleTopics)
	r.Post("/api/transcribe", s.handleTranscribe)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}

	return s
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("accord gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit := 50
	if limitStr != "" {
		fmt.Sscanf(limitStr, "%d", &limit)
	}

	history := s.bus.History(limit)

	w.Header().Set("Content-Type", "application/json")

	// Format timestamps nicely
	type eventJSON struct {
		ID        string             `json:"id"`
		SessionID string             `json:"session_id,omitempty"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}

	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			SessionID: e.SessionID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}

	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.orch.Snapshot())
}

func (s *Server) handleBeginSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	snap, err := s.orch.BeginSession(body.Topic)
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, dialogue.ErrUnknownTopic) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Reset(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.orch.Snapshot())
}

func (s *Server) handlePhases(w http.ResponseWriter, r *http.Request) {
	type phaseJSON struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		Goal  string `json:"goal"`
	}

	all := phases.All()
	result := make([]phaseJSON, len(all))
	for i, p := range all {
		result[i] = phaseJSON{ID: p.ID, Title: p.Title, Goal: p.Goal}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dialogue.Topics())
}
