package mcp

import (
	"context"
	"encoding/json"
	"testing"

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

func newTestOrchestrator(t *testing.T) *dialogue.Orchestrator {
	t.Helper()
	bus := events.NewBus(16)
	t.Cleanup(func() { bus.Close() })
	return dialogue.NewOrchestrator(approveAll{}, staticAuthor{}, bus, dialogue.Config{})
}

func TestNewMCPServer(t *testing.T) {
	server := NewMCPServer(newTestOrchestrator(t))
	if server == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestObjectSchema(t *testing.T) {
	schema := objectSchema(map[string]any{
		"topic": map[string]any{
			"type":        "string",
			"description": "The conversation topic.",
		},
	}, "topic")

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}

	if decoded["type"] != "object" {
		t.Errorf("schema type = %v, want %q", decoded["type"], "object")
	}

	props, ok := decoded["properties"].(map[string]any)
	if !ok {
		t.Fatal("schema properties not a map")
	}
	if len(props) != 1 {
		t.Errorf("schema properties len = %d, want 1", len(props))
	}

	req, ok := decoded["required"].([]any)
	if !ok {
		t.Fatal("schema required not an array")
	}
	if len(req) != 1 || req[0] != "topic" {
		t.Errorf("schema required = %v, want [topic]", req)
	}
}

func TestObjectSchema_NoParams(t *testing.T) {
	schema := objectSchema(nil)

	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want %q", schema["type"], "object")
	}
	if _, ok := schema["required"]; ok {
		t.Error("schema should not have required field when no params are required")
	}
}

func TestTopicNames(t *testing.T) {
	names := topicNames()
	if len(names) != len(dialogue.Topics()) {
		t.Fatalf("expected %d topics, got %d", len(dialogue.Topics()), len(names))
	}
	for _, n := range names {
		if n == "" {
			t.Fatal("empty topic name")
		}
	}
}
