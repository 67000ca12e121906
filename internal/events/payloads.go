package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

type SessionStartedPayload struct {
	Topic string `json:"topic"`
	Phase int    `json:"phase"`
}

func (SessionStartedPayload) EventType() EventType { return EventSessionStarted }

type SessionCompletedPayload struct {
	Topic   string `json:"topic"`
	Entries int    `json:"entries"`
}

func (SessionCompletedPayload) EventType() EventType { return EventSessionCompleted }

type SessionResetPayload struct {
	Topic string `json:"topic,omitempty"`
}

func (SessionResetPayload) EventType() EventType { return EventSessionReset }

// =============================================================================
// DIALOGUE PROGRESSION
// =============================================================================

type ModeChangedPayload struct {
	Mode string `json:"mode"`
}

func (ModeChangedPayload) EventType() EventType { return EventModeChanged }

type UtteranceCapturedPayload struct {
	Chars         int           `json:"chars"`
	AudioDuration time.Duration `json:"audio_duration,omitempty"`
}

func (UtteranceCapturedPayload) EventType() EventType { return EventUtteranceCaptured }

type EntryAppendedPayload struct {
	Kind    string `json:"kind"`
	Speaker string `json:"speaker,omitempty"`
	Phase   int    `json:"phase"`
	Text    string `json:"text"`
}

func (EntryAppendedPayload) EventType() EventType { return EventEntryAppended }

type PhaseAdvancedPayload struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (PhaseAdvancedPayload) EventType() EventType { return EventPhaseAdvanced }

type ModerationRejectedPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (ModerationRejectedPayload) EventType() EventType { return EventModerationRejected }

type PrivateHintPayload struct {
	Speaker string `json:"speaker"`
}

func (PrivateHintPayload) EventType() EventType { return EventPrivateHint }

type SignalDismissedPayload struct {
	Signal string `json:"signal"` // "moderation_error" or "private_hint"
}

func (SignalDismissedPayload) EventType() EventType { return EventSignalDismissed }

// =============================================================================
// INTERNAL EVENTS
// =============================================================================

type LLMCallPayload struct {
	Purpose  string        `json:"purpose"` // "moderation" or "authoring"
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

func (LLMCallPayload) EventType() EventType { return EventLLMCall }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func NewTypedEventWithSession(source EventSource, payload EventPayload, sessionID string) Event {
	return Event{
		ID:        generateEventID(),
		SessionID: sessionID,
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetSessionStartedPayload(e Event) (SessionStartedPayload, bool) {
	return ExtractPayload[SessionStartedPayload](e)
}

func GetEntryAppendedPayload(e Event) (EntryAppendedPayload, bool) {
	return ExtractPayload[EntryAppendedPayload](e)
}

func GetPhaseAdvancedPayload(e Event) (PhaseAdvancedPayload, bool) {
	return ExtractPayload[PhaseAdvancedPayload](e)
}

func GetModerationRejectedPayload(e Event) (ModerationRejectedPayload, bool) {
	return ExtractPayload[ModerationRejectedPayload](e)
}

func GetSessionCompletedPayload(e Event) (SessionCompletedPayload, bool) {
	return ExtractPayload[SessionCompletedPayload](e)
}
