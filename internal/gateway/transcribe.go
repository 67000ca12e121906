package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dstessier/accord/internal/capture"
)

// SetTranscriber enables the audio ingest route. Without a provider the
// route answers 503 and clients fall back to sending text directly.
func (s *Server) SetTranscriber(provider capture.TranscriptionProvider) {
	s.transcriber = provider
}

// handleTranscribe streams the request body (raw audio) to the
// transcription provider and captures the finalized text into the
// pending buffer of the live session.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		http.Error(w, "transcription not available", http.StatusServiceUnavailable)
		return
	}

	streamCfg := capture.StreamingConfig{InterimResults: true}
	fmt.Sscanf(r.URL.Query().Get("sample_rate"), "%d", &streamCfg.SampleRate)
	fmt.Sscanf(r.URL.Query().Get("channels"), "%d", &streamCfg.Channels)

	if _, err := s.orch.BeginRecording(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	session, err := s.transcriber.StartStreaming(r.Context(), streamCfg)
	if err != nil {
		// Nothing was captured; return the session to the awaiting state.
		s.orch.DiscardUtterance()
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	agg := capture.NewAggregator(streamCfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range session.Events() {
			agg.Add(event)
		}
	}()

	buf := make([]byte, 32*1024)
	for {
		n, readErr := r.Body.Read(buf)
		if n > 0 {
			if err := session.SendAudio(buf[:n]); err != nil {
				break
			}
			agg.AddAudio(n)
		}
		if readErr != nil {
			break
		}
	}
	session.CloseSend()
	<-done

	if err := session.Wait(); err != nil && agg.Text() == "" {
		s.orch.DiscardUtterance()
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	snap, err := s.orch.CaptureUtterance(agg.Text(), agg.Duration())
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}
