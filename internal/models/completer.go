package models

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dstessier/accord/internal/events"
)

// Completer adapts a chat model to single-prompt text completion.
// The dialogue gateways only ever send one user message and read back
// plain text, so this is the whole surface they need.
type Completer struct {
	chatModel model.ToolCallingChatModel
	modelName string
	purpose   string
	bus       *events.Bus
}

// NewCompleter wraps a chat model. The purpose tags internal.llm.call
// events ("moderation", "transition", "answer"). The bus may be nil.
func NewCompleter(chatModel model.ToolCallingChatModel, modelName, purpose string, bus *events.Bus) *Completer {
	return &Completer{
		chatModel: chatModel,
		modelName: modelName,
		purpose:   purpose,
		bus:       bus,
	}
}

// Complete sends the prompt as a single user message and returns the
// model's text response.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	msgs := []*schema.Message{
		{Role: schema.User, Content: prompt},
	}

	start := time.Now()
	result, err := c.chatModel.Generate(ctx, msgs)
	c.trace(time.Since(start), err)
	if err != nil {
		return "", HandleError(err)
	}

	return result.Content, nil
}

func (c *Completer) trace(elapsed time.Duration, err error) {
	if c.bus == nil {
		return
	}
	payload := events.LLMCallPayload{
		Purpose:  c.purpose,
		Model:    c.modelName,
		Duration: elapsed,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	c.bus.Publish(events.NewTypedEvent(events.SourceOrchestrator, payload))
}
