package capture

import (
	"strings"
	"sync"
	"time"
)

// Aggregator accumulates transcript events and audio accounting for one
// recording. It joins finalized segments and falls back to the last
// spoken partial when the provider never finalizes.
type Aggregator struct {
	mu         sync.Mutex
	finals     []string
	lastSpoken string

	audioBytes    int64
	bytesPerSecond int64
}

// NewAggregator creates an aggregator. The stream config is used to
// convert raw audio byte counts into a duration (linear16 assumed when
// the encoding is unknown).
func NewAggregator(cfg StreamingConfig) *Aggregator {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	// 2 bytes per sample for linear16.
	return &Aggregator{bytesPerSecond: int64(sampleRate) * int64(channels) * 2}
}

// Add records a transcript event.
func (a *Aggregator) Add(event TranscriptEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	a.lastSpoken = text
	if event.Kind == TranscriptKindFinal {
		a.finals = append(a.finals, text)
	}
}

// AddAudio accounts for raw audio bytes sent to the provider.
func (a *Aggregator) AddAudio(n int) {
	a.mu.Lock()
	a.audioBytes += int64(n)
	a.mu.Unlock()
}

// Text returns the accumulated transcript. Finalized segments win; the
// last partial covers the tail the provider never finalized.
func (a *Aggregator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	joined := strings.TrimSpace(strings.Join(a.finals, " "))
	if joined == "" {
		return a.lastSpoken
	}

	if a.lastSpoken == "" {
		return joined
	}

	if strings.HasSuffix(joined, a.lastSpoken) {
		return joined
	}

	if len(a.lastSpoken) > len(joined) {
		return strings.TrimSpace(joined + " " + a.lastSpoken)
	}

	return joined
}

// Duration returns the captured audio duration derived from the bytes
// sent so far.
func (a *Aggregator) Duration() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(a.audioBytes) * time.Second / time.Duration(a.bytesPerSecond)
}
