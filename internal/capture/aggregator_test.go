package capture

import (
	"testing"
	"time"
)

func TestAggregatorUsesFinalsAndLastSpokenFallback(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(StreamingConfig{})
	agg.Add(TranscriptEvent{Kind: TranscriptKindPartial, Text: "hello"})
	agg.Add(TranscriptEvent{Kind: TranscriptKindFinal, Text: "hello world"})
	agg.Add(TranscriptEvent{Kind: TranscriptKindPartial, Text: "hello world again"})

	got := agg.Text()
	if got != "hello world hello world again" {
		t.Fatalf("unexpected transcript: %q", got)
	}
}

func TestAggregatorIgnoresEmpty(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(StreamingConfig{})
	agg.Add(TranscriptEvent{Kind: TranscriptKindPartial, Text: "   "})
	if got := agg.Text(); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestAggregatorPrefersJoinedFinals(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(StreamingConfig{})
	agg.Add(TranscriptEvent{Kind: TranscriptKindFinal, Text: "the first part"})
	agg.Add(TranscriptEvent{Kind: TranscriptKindFinal, Text: "and the second"})
	agg.Add(TranscriptEvent{Kind: TranscriptKindPartial, Text: "and"})

	got := agg.Text()
	if got != "the first part and the second" {
		t.Fatalf("unexpected transcript: %q", got)
	}
}

func TestAggregatorDurationFromBytes(t *testing.T) {
	t.Parallel()

	// 16 kHz mono linear16 = 32000 bytes per second.
	agg := NewAggregator(StreamingConfig{SampleRate: 16000, Channels: 1})
	agg.AddAudio(32000)
	agg.AddAudio(16000)

	if got := agg.Duration(); got != 1500*time.Millisecond {
		t.Fatalf("duration: got %v, want 1.5s", got)
	}
}
