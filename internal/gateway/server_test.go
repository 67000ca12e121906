package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/dstessier/accord/internal/dialogue"
	"github.com/dstessier/accord/internal/events"
	"github.com/dstessier/accord/internal/guide"
	"github.com/dstessier/accord/internal/moderation"
	"github.com/dstessier/accord/internal/phases"
)

type approveAll struct{}

func (approveAll) Classify(ctx context.Context, utterance string) (moderation.Decision, error) {
	return moderation.Decision{Approved: true}, nil
}

type staticAuthor struct{}

func (staticAuthor) ComposeTransition(ctx context.Context, history []guide.HistoryEntry, from, to phases.Phase, topic string) (string, error) {
	return "Moving on.", nil
}

func (staticAuthor) AnswerQuestion(ctx context.Context, history []guide.HistoryEntry, question, topic string, current phases.Phase) (string, error) {
	return "Answered.", nil
}

// waitForEvents polls the bus history until at least n events are present.
func waitForEvents(bus *events.Bus, n int) {
	for i := 0; i < 200; i++ {
		if len(bus.History(100)) >= n {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	bus := events.NewBus(64)
	t.Cleanup(func() { bus.Close() })

	orch := dialogue.NewOrchestrator(approveAll{}, staticAuthor{}, bus, dialogue.Config{})
	return NewServer(orch, bus, "localhost", 0)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status %q, got %q", "ok", body["status"])
	}
}

func TestHandleEvents_Empty(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body []any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 0 {
		t.Fatalf("expected empty array, got %d items", len(body))
	}
}

func TestHandleEvents_LimitParam(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	for i := 0; i < 10; i++ {
		srv.bus.Publish(events.NewEvent(events.EventUtteranceCaptured, events.SourceWS, map[string]any{"i": i}))
	}

	waitForEvents(srv.bus, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=5", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 5 {
		t.Fatalf("expected 5 events with limit=5, got %d", len(body))
	}
}

func TestHandleGetSession_NoSession(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var snap dialogue.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if snap.Active {
		t.Fatal("expected inactive snapshot before any session")
	}
}

func TestHandleBeginSession(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"topic":"Climate Change"}`))
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var snap dialogue.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !snap.Active {
		t.Fatal("expected active snapshot")
	}
	if snap.Phase != 1 {
		t.Fatalf("expected phase 1, got %d", snap.Phase)
	}
	if len(snap.Transcript) != 1 {
		t.Fatalf("expected opening guide entry, got %d entries", len(snap.Transcript))
	}
}

func TestHandleBeginSession_UnknownTopic(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"topic":"Parking"}`))
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestHandleResetSession(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	begin := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"topic":"Immigration"}`))
	srv.httpServer.Handler.ServeHTTP(httptest.NewRecorder(), begin)

	req := httptest.NewRequest(http.MethodDelete, "/api/session", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var snap dialogue.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if snap.Active {
		t.Fatal("expected inactive snapshot after reset")
	}
}

func TestHandlePhases(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/phases", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != phases.Count {
		t.Fatalf("expected %d phases, got %d", phases.Count, len(body))
	}
	if body[0]["title"] != "Arrival" {
		t.Fatalf("expected first phase Arrival, got %v", body[0]["title"])
	}
}

func TestHandleTopics(t *testing.T) {
	srv := newTestServer(t)
	defer srv.hub.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body []string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != len(dialogue.Topics()) {
		t.Fatalf("expected %d topics, got %d", len(dialogue.Topics()), len(body))
	}
}
