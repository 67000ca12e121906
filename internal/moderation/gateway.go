// Package moderation screens partner utterances for hostility before
// they are admitted to the shared transcript.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Decision is the outcome of classifying a single utterance.
type Decision struct {
	Approved bool   `json:"-"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message,omitempty"`
}

// TextGenerator performs a non-streaming LLM call.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gateway classifies utterances with an LLM. The classifier is a
// non-critical safety net: any transport or parse failure fails open to
// Approved so a flaky backend can never block the dialogue.
type Gateway struct {
	llm TextGenerator
}

// NewGateway creates a moderation gateway over a text generator.
func NewGateway(llm TextGenerator) *Gateway {
	return &Gateway{llm: llm}
}

const classifyPrompt = `You are moderating a facilitated dialogue between two people on a sensitive topic.
Classify the following contribution. Reject it ONLY if it contains insults, slurs, threats, or open hostility toward the other participant. Disagreement, strong opinions, and emotional language are all acceptable.

Contribution:
%s

Respond with a single JSON object and nothing else:
{"status": "approved"}
or
{"status": "rejected", "title": "short label", "message": "one sentence telling the speaker what to change"}`

// Classify returns a Decision for the utterance. It never returns an
// error for backend failures; those are logged and approved.
func (g *Gateway) Classify(ctx context.Context, utterance string) (Decision, error) {
	prompt := fmt.Sprintf(classifyPrompt, utterance)

	resp, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("moderation: classifier unavailable, failing open", "error", err)
		return Decision{Approved: true}, nil
	}

	return parseDecision(resp), nil
}

type decisionJSON struct {
	Status  string `json:"status"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// parseDecision extracts the classification from an LLM response,
// handling raw JSON and markdown fences. Unparsable responses default
// to approved.
func parseDecision(resp string) Decision {
	content := stripFences(resp)

	var d decisionJSON
	if err := json.Unmarshal([]byte(content), &d); err != nil {
		slog.Warn("moderation: failed to parse classifier response, failing open", "error", err)
		return Decision{Approved: true}
	}

	switch strings.ToLower(strings.TrimSpace(d.Status)) {
	case "rejected":
		title := d.Title
		if title == "" {
			title = "Let's rephrase"
		}
		msg := d.Message
		if msg == "" {
			msg = "That phrasing may land as hostile. Try saying it another way."
		}
		return Decision{Approved: false, Title: title, Message: msg}
	case "approved":
		return Decision{Approved: true}
	default:
		slog.Warn("moderation: unknown classifier status, failing open", "status", d.Status)
		return Decision{Approved: true}
	}
}

// stripFences removes surrounding markdown code fences and keeps the
// JSON object between the first '{' and the last '}'.
func stripFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
				lines = lines[:len(lines)-1]
			}
			s = strings.Join(lines, "\n")
		}
	}

	// Tolerate prose around the object.
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	return strings.TrimSpace(s)
}
