// Package mcp exposes the dialogue orchestrator as MCP tools so agent
// clients can drive a facilitated session.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dstessier/accord/internal/dialogue"
	"github.com/dstessier/accord/internal/phases"
)

// NewMCPServer creates an MCP server exposing the session operations.
func NewMCPServer(orch *dialogue.Orchestrator) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "accord",
		Version: "0.1.0",
	}, nil)

	addTool(server, "begin_session",
		"Start a new dialogue session on one of the fixed topics. Replaces any live session.",
		objectSchema(map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "The conversation topic.",
				"enum":        topicNames(),
			},
		}, "topic"),
		func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error) {
			var p struct {
				Topic string `json:"topic"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return dialogue.Snapshot{}, err
			}
			return orch.BeginSession(p.Topic)
		})

	addTool(server, "reset_session",
		"Discard the live session.",
		objectSchema(nil),
		func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error) {
			if err := orch.Reset(); err != nil {
				return dialogue.Snapshot{}, err
			}
			return orch.Snapshot(), nil
		})

	addTool(server, "set_mode",
		"Choose how the next utterance is routed: to the partner, to the Guide publicly, or to the Guide privately.",
		objectSchema(map[string]any{
			"mode": map[string]any{
				"type":        "string",
				"description": "The interaction mode.",
				"enum":        []string{string(dialogue.ModePartner), string(dialogue.ModePublicGuide), string(dialogue.ModePrivateGuide)},
			},
		}, "mode"),
		func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error) {
			var p struct {
				Mode string `json:"mode"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return dialogue.Snapshot{}, err
			}
			mode, ok := dialogue.ParseMode(p.Mode)
			if !ok {
				return orch.Snapshot(), dialogue.ErrInvalidTransition
			}
			return orch.SetInteractionMode(mode)
		})

	addTool(server, "begin_recording",
		"Mark speech capture as active for the current speaker.",
		objectSchema(nil),
		func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error) {
			return orch.BeginRecording()
		})

	addTool(server, "capture_utterance",
		"Store finalized transcription text in the pending buffer for review.",
		objectSchema(map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "The transcribed utterance.",
			},
			"audio_duration_ms": map[string]any{
				"type":        "integer",
				"description": "Captured audio duration in milliseconds.",
			},
		}, "text"),
		func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error) {
			var p struct {
				Text            string `json:"text"`
				AudioDurationMS int64  `json:"audio_duration_ms"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return dialogue.Snapshot{}, err
			}
			return orch.CaptureUtterance(p.Text, time.Duration(p.AudioDurationMS)*time.Millisecond)
		})

	addTool(server, "discard_utterance",
		"Drop the pending utterance without sending it.",
		objectSchema(nil),
		func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error) {
			return orch.DiscardUtterance()
		})

	addTool(server, "dispatch",
		"Send the pending utterance through the pipeline selected by the interaction mode.",
		objectSchema(nil),
		func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error) {
			return orch.Dispatch(ctx)
		})

	addTool(server, "dismiss_moderation_error",
		"Clear the moderation rejection notice. The pending utterance is kept for editing.",
		objectSchema(nil),
		func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error) {
			return orch.DismissModerationError()
		})

	addTool(server, "dismiss_private_hint",
		"Clear the private Guide answer.",
		objectSchema(nil),
		func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error) {
			return orch.DismissPrivateHint()
		})

	addTool(server, "get_snapshot",
		"Read the current session state without changing it.",
		objectSchema(nil),
		func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error) {
			return orch.Snapshot(), nil
		})

	server.AddTool(&mcpsdk.Tool{
		Name:        "list_phases",
		Description: "List the six phases of the facilitation script.",
		InputSchema: objectSchema(nil),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		type phaseJSON struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
			Goal  string `json:"goal"`
		}
		all := phases.All()
		out := make([]phaseJSON, len(all))
		for i, p := range all {
			out[i] = phaseJSON{ID: p.ID, Title: p.Title, Goal: p.Goal}
		}
		return textResult(out)
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "list_topics",
		Description: "List the fixed conversation topics a session can be opened on.",
		InputSchema: objectSchema(nil),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return textResult(dialogue.Topics())
	})

	return server
}

// addTool registers a session operation whose result is a snapshot.
func addTool(server *mcpsdk.Server, name, description string, schema map[string]any, fn func(ctx context.Context, args json.RawMessage) (dialogue.Snapshot, error)) {
	server.AddTool(&mcpsdk.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		snap, err := fn(ctx, json.RawMessage(req.Params.Arguments))
		if err != nil {
			slog.Debug("mcp tool error", "tool", name, "error", err)
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
			}, nil
		}
		return textResult(snap)
	})

	slog.Debug("mcp tool registered", "tool", name)
}

func textResult(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil
}

// objectSchema builds a JSON Schema object with the given properties.
func objectSchema(props map[string]any, required ...string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func topicNames() []string {
	topics := dialogue.Topics()
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = string(t)
	}
	return out
}
