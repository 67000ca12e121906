package moderation

import (
	"context"
	"errors"
	"testing"
)

type fakeLLM struct {
	resp string
	err  error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return f.resp, f.err
}

func TestClassifyApproved(t *testing.T) {
	g := NewGateway(&fakeLLM{resp: `{"status": "approved"}`})
	d, err := g.Classify(context.Background(), "I grew up near a coastline")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Approved {
		t.Error("expected approved")
	}
}

func TestClassifyRejected(t *testing.T) {
	g := NewGateway(&fakeLLM{resp: `{"status": "rejected", "title": "Tone", "message": "Contains insult"}`})
	d, err := g.Classify(context.Background(), "you people are idiots")
	if err != nil {
		t.Fatal(err)
	}
	if d.Approved {
		t.Fatal("expected rejected")
	}
	if d.Title != "Tone" {
		t.Errorf("expected title Tone, got %q", d.Title)
	}
	if d.Message != "Contains insult" {
		t.Errorf("unexpected message: %q", d.Message)
	}
}

func TestClassifyRejectedFillsDefaults(t *testing.T) {
	g := NewGateway(&fakeLLM{resp: `{"status": "rejected"}`})
	d, _ := g.Classify(context.Background(), "x")
	if d.Approved {
		t.Fatal("expected rejected")
	}
	if d.Title == "" || d.Message == "" {
		t.Error("expected default title and message")
	}
}

func TestClassifyFailsOpenOnTransportError(t *testing.T) {
	g := NewGateway(&fakeLLM{err: errors.New("connection refused")})
	d, err := g.Classify(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Approved {
		t.Error("transport failure must fail open to approved")
	}
}

func TestClassifyFailsOpenOnGarbage(t *testing.T) {
	cases := []string{
		"",
		"I cannot classify this.",
		`{"status": "maybe"}`,
		"{broken json",
	}
	for _, resp := range cases {
		g := NewGateway(&fakeLLM{resp: resp})
		d, _ := g.Classify(context.Background(), "hello")
		if !d.Approved {
			t.Errorf("response %q must fail open to approved", resp)
		}
	}
}

func TestClassifyToleratesCodeFences(t *testing.T) {
	g := NewGateway(&fakeLLM{resp: "```json\n{\"status\": \"rejected\", \"title\": \"Tone\", \"message\": \"m\"}\n```"})
	d, _ := g.Classify(context.Background(), "x")
	if d.Approved {
		t.Error("fenced rejection should parse as rejected")
	}
}

func TestClassifyToleratesSurroundingProse(t *testing.T) {
	g := NewGateway(&fakeLLM{resp: "Here is my verdict:\n{\"status\": \"approved\"}\nLet me know if you need more."})
	d, _ := g.Classify(context.Background(), "x")
	if !d.Approved {
		t.Error("prose-wrapped approval should parse as approved")
	}
}
