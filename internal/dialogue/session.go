// Package dialogue owns the session state machine that drives a
// six-phase facilitated conversation between two participants.
package dialogue

import (
	"time"

	"github.com/dstessier/accord/internal/guide"
)

// Speaker identifies one of the two participants.
type Speaker string

const (
	SpeakerA Speaker = "A"
	SpeakerB Speaker = "B"
)

// Other returns the opposite participant.
func (s Speaker) Other() Speaker {
	if s == SpeakerA {
		return SpeakerB
	}
	return SpeakerA
}

// InteractionMode governs how the next captured utterance is routed.
type InteractionMode string

const (
	// ModePartner attributes the utterance to the current speaker and
	// screens it before admitting it to the shared transcript.
	ModePartner InteractionMode = "partner"
	// ModePublicGuide asks the Guide a question in front of both
	// participants; the exchange joins the transcript.
	ModePublicGuide InteractionMode = "public_guide"
	// ModePrivateGuide asks the Guide a question whose answer is shown
	// only to the asker and never recorded.
	ModePrivateGuide InteractionMode = "private_guide"
)

// ParseMode validates a raw interaction mode string.
func ParseMode(s string) (InteractionMode, bool) {
	switch InteractionMode(s) {
	case ModePartner, ModePublicGuide, ModePrivateGuide:
		return InteractionMode(s), true
	}
	return "", false
}

// SessionState is the interactive state of the session.
type SessionState string

const (
	// StateAwaiting solicits the current speaker's utterance.
	StateAwaiting SessionState = "awaiting"
	// StateRecording is active speech capture.
	StateRecording SessionState = "recording"
	// StateReviewing holds a captured utterance pending send or discard.
	StateReviewing SessionState = "reviewing"
	// StateDispatching is a non-interactive in-flight pipeline.
	StateDispatching SessionState = "dispatching"
	// StateTerminal is entered when the final phase's round completes.
	StateTerminal SessionState = "terminal"
)

// EntryKind distinguishes transcript entry variants.
type EntryKind string

const (
	// EntryPartner is a moderated contribution from A or B.
	EntryPartner EntryKind = "partner"
	// EntryClarification is a participant's public question to the Guide.
	// It never counts toward turn completion.
	EntryClarification EntryKind = "clarification"
	// EntryGuide is a Guide message: a phase opening, a transition, or a
	// public answer. Attributed to neither participant.
	EntryGuide EntryKind = "guide"
)

// Entry is one element of the append-only transcript.
type Entry struct {
	Kind          EntryKind     `json:"kind"`
	Speaker       Speaker       `json:"speaker,omitempty"` // partner and clarification entries only
	Text          string        `json:"text"`
	Phase         int           `json:"phase"`
	AudioDuration time.Duration `json:"audio_duration,omitempty"` // partner entries only
	At            time.Time     `json:"at"`
}

// ModerationError is the transient signal set after a rejected
// classification. Dismissible; the pending utterance survives it.
type ModerationError struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// session is the single live dialogue instance, owned and mutated only
// by the Orchestrator under its lock.
type session struct {
	id              string
	topic           Topic
	phase           int
	turn            Speaker
	state           SessionState
	mode            InteractionMode
	transcript      []Entry
	pending         string
	pendingDuration time.Duration
	moderationError *ModerationError
	privateHint     string
	createdAt       time.Time
}

// history renders the shared transcript for the authoring prompts.
// Private hints never appear here by construction.
func (s *session) history() []guide.HistoryEntry {
	out := make([]guide.HistoryEntry, 0, len(s.transcript))
	for _, e := range s.transcript {
		speaker := "Guide"
		if e.Kind != EntryGuide {
			speaker = string(e.Speaker)
		}
		out = append(out, guide.HistoryEntry{Speaker: speaker, Text: e.Text})
	}
	return out
}

// append adds an entry to the transcript, stamping the time.
func (s *session) append(e Entry) {
	e.At = time.Now()
	s.transcript = append(s.transcript, e)
}

// Snapshot is an immutable view of session state for the presentation
// layer, produced after every operation.
type Snapshot struct {
	Active          bool             `json:"active"`
	SessionID       string           `json:"session_id,omitempty"`
	Topic           Topic            `json:"topic,omitempty"`
	Phase           int              `json:"phase,omitempty"`
	PhaseTitle      string           `json:"phase_title,omitempty"`
	Turn            Speaker          `json:"turn,omitempty"`
	State           SessionState     `json:"state,omitempty"`
	Mode            InteractionMode  `json:"mode,omitempty"`
	Transcript      []Entry          `json:"transcript,omitempty"`
	Pending         string           `json:"pending,omitempty"`
	ModerationError *ModerationError `json:"moderation_error,omitempty"`
	PrivateHint     string           `json:"private_hint,omitempty"`
	TerminalDelay   time.Duration    `json:"terminal_delay,omitempty"`
	CreatedAt       time.Time        `json:"created_at,omitempty"`
}
