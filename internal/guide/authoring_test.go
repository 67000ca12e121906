package guide

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dstessier/accord/internal/phases"
)

type fakeLLM struct {
	resp   string
	err    error
	prompt string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.resp, f.err
}

func TestComposeTransition(t *testing.T) {
	llm := &fakeLLM{resp: "Thank you both. What shaped your views?"}
	g := NewGateway(llm)

	from, _ := phases.Get(1)
	to, _ := phases.Get(2)
	history := []HistoryEntry{
		{Speaker: "Guide", Text: "Welcome."},
		{Speaker: "A", Text: "I grew up near a coastline."},
		{Speaker: "B", Text: "My family are farmers."},
	}

	out, err := g.ComposeTransition(context.Background(), history, from, to, "Climate Change")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Thank you both. What shaped your views?" {
		t.Errorf("unexpected output: %q", out)
	}

	if !strings.Contains(llm.prompt, "A: I grew up near a coastline.") {
		t.Error("prompt should include transcript history")
	}
	if !strings.Contains(llm.prompt, to.Goal) {
		t.Error("prompt should include the target goal")
	}
	if !strings.Contains(llm.prompt, "Never mention phases") {
		t.Error("prompt should carry the no-internal-labels constraint")
	}
}

func TestComposeTransitionError(t *testing.T) {
	g := NewGateway(&fakeLLM{err: errors.New("timeout")})
	from, _ := phases.Get(1)
	to, _ := phases.Get(2)

	if _, err := g.ComposeTransition(context.Background(), nil, from, to, "Policing and Justice"); err == nil {
		t.Error("expected error on backend failure")
	}
}

func TestComposeTransitionEmptyResponse(t *testing.T) {
	g := NewGateway(&fakeLLM{resp: "   \n"})
	from, _ := phases.Get(2)
	to, _ := phases.Get(3)

	if _, err := g.ComposeTransition(context.Background(), nil, from, to, "Immigration"); err == nil {
		t.Error("expected error on empty response")
	}
}

func TestAnswerQuestion(t *testing.T) {
	llm := &fakeLLM{resp: "Just share what feels true for you."}
	g := NewGateway(llm)
	current, _ := phases.Get(3)

	out, err := g.AnswerQuestion(context.Background(), nil, "What do you mean by values?", "Immigration", current)
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Error("expected answer text")
	}
	if !strings.Contains(llm.prompt, "What do you mean by values?") {
		t.Error("prompt should include the question")
	}
	if !strings.Contains(llm.prompt, current.Goal) {
		t.Error("prompt should include the current goal")
	}
}

func TestHistoryTruncation(t *testing.T) {
	llm := &fakeLLM{resp: "ok"}
	g := NewGateway(llm)
	current, _ := phases.Get(1)

	history := make([]HistoryEntry, maxHistoryEntries+10)
	for i := range history {
		history[i] = HistoryEntry{Speaker: "A", Text: "line"}
	}
	history[0].Text = "the very first line"

	if _, err := g.AnswerQuestion(context.Background(), history, "q", "Religion in Public Life", current); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(llm.prompt, "the very first line") {
		t.Error("oldest history beyond the window should be dropped")
	}
}

func TestTransitionFallbackUsesGoalPrompt(t *testing.T) {
	to, _ := phases.Get(4)
	out := TransitionFallback(to, "Wealth Inequality")
	if !strings.Contains(out, "Wealth Inequality") {
		t.Errorf("fallback should carry the topic: %q", out)
	}
}

func TestAnswerFallbackNonEmpty(t *testing.T) {
	if AnswerFallback() == "" {
		t.Error("answer fallback must be non-empty")
	}
}
