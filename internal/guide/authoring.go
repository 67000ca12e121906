// Package guide authors the facilitator's messages: phase transitions
// grounded in the transcript, and answers to clarifying questions.
package guide

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dstessier/accord/internal/phases"
)

// HistoryEntry is one transcript line as fed to the authoring prompts.
// Speaker is "A", "B", or "Guide".
type HistoryEntry struct {
	Speaker string
	Text    string
}

// TextGenerator performs a non-streaming LLM call.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gateway authors Guide messages with an LLM. Callers apply the
// deterministic fallbacks on any error so the dialogue never stalls.
type Gateway struct {
	llm TextGenerator
}

// NewGateway creates an authoring gateway over a text generator.
func NewGateway(llm TextGenerator) *Gateway {
	return &Gateway{llm: llm}
}

const maxHistoryEntries = 40

// ComposeTransition produces a short acknowledgement of the completed
// round, a natural bridge, and the next phase's question.
func (g *Gateway) ComposeTransition(ctx context.Context, history []HistoryEntry, from, to phases.Phase, topic string) (string, error) {
	var sb strings.Builder

	sb.WriteString("You are the Guide, a warm and neutral facilitator of a two-person dialogue")
	fmt.Fprintf(&sb, " about %s.\n\n", topic)
	sb.WriteString("Conversation so far:\n")
	writeHistory(&sb, history)
	sb.WriteString("\nBoth participants have just finished an exchange. Write the Guide's next message:\n")
	sb.WriteString("1. Briefly acknowledge something concrete each of them said.\n")
	fmt.Fprintf(&sb, "2. Move the conversation toward this goal: %s\n", to.Goal)
	fmt.Fprintf(&sb, "3. End with a question in the spirit of: %q\n\n", to.OpeningPrompt(topic))
	sb.WriteString("Keep it to 3-4 sentences. Speak directly to both participants. ")
	sb.WriteString("Never mention phases, stages, steps, or any internal structure of the conversation.")

	out, err := g.llm.Complete(ctx, sb.String())
	if err != nil {
		return "", fmt.Errorf("compose transition: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("compose transition: empty response")
	}
	return out, nil
}

// AnswerQuestion produces a brief, neutral answer to a participant's
// question about the conversation.
func (g *Gateway) AnswerQuestion(ctx context.Context, history []HistoryEntry, question, topic string, current phases.Phase) (string, error) {
	var sb strings.Builder

	sb.WriteString("You are the Guide, a warm and neutral facilitator of a two-person dialogue")
	fmt.Fprintf(&sb, " about %s.\n\n", topic)
	sb.WriteString("Conversation so far:\n")
	writeHistory(&sb, history)
	fmt.Fprintf(&sb, "\nThe current aim of the conversation is: %s\n", current.Goal)
	fmt.Fprintf(&sb, "A participant asks you: %q\n\n", question)
	sb.WriteString("Answer in 1-3 sentences. Be encouraging and strictly neutral on the topic itself. ")
	sb.WriteString("Never mention phases, stages, steps, or any internal structure of the conversation.")

	out, err := g.llm.Complete(ctx, sb.String())
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("answer question: empty response")
	}
	return out, nil
}

func writeHistory(sb *strings.Builder, history []HistoryEntry) {
	if len(history) > maxHistoryEntries {
		history = history[len(history)-maxHistoryEntries:]
	}
	for _, h := range history {
		fmt.Fprintf(sb, "%s: %s\n", h.Speaker, h.Text)
	}
}

// TransitionFallback is the deterministic transition used when the
// authoring backend is unavailable, built from the target phase.
func TransitionFallback(to phases.Phase, topic string) string {
	return fmt.Sprintf("Thank you both for sharing. %s", to.OpeningPrompt(topic))
}

// AnswerFallback is the static hint used when the authoring backend
// is unavailable.
func AnswerFallback() string {
	return "There's no wrong way to answer. Speak from your own experience, and take your time."
}

// LogFallback records that a generated message was replaced by its
// deterministic fallback.
func LogFallback(kind string, err error) {
	slog.Warn("guide: authoring unavailable, using fallback", "kind", kind, "error", err)
}
