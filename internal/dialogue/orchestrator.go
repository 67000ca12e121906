package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dstessier/accord/internal/events"
	"github.com/dstessier/accord/internal/guide"
	"github.com/dstessier/accord/internal/moderation"
	"github.com/dstessier/accord/internal/phases"
)

// Moderator classifies a partner utterance before it is admitted to
// the shared transcript.
type Moderator interface {
	Classify(ctx context.Context, utterance string) (moderation.Decision, error)
}

// Author generates the Guide's messages.
type Author interface {
	ComposeTransition(ctx context.Context, history []guide.HistoryEntry, from, to phases.Phase, topic string) (string, error)
	AnswerQuestion(ctx context.Context, history []guide.HistoryEntry, question, topic string, current phases.Phase) (string, error)
}

// Config controls orchestrator behavior.
type Config struct {
	// GatewayTimeout bounds each moderation/authoring call. On expiry the
	// documented fallback applies and the dialogue proceeds.
	GatewayTimeout time.Duration
	// TerminalDelay is how long the presentation layer should hold the
	// final view before showing the summary. Surfaced in the snapshot,
	// never acted on here.
	TerminalDelay time.Duration
}

// Orchestrator owns the single live session and sequences the three
// dispatch pipelines. At most one dispatch is in flight at a time; all
// other mutating operations are rejected while one is outstanding.
type Orchestrator struct {
	moderator Moderator
	author    Author
	bus       *events.Bus
	cfg       Config

	mu          sync.Mutex
	current     *session
	dispatching bool
}

// NewOrchestrator creates an orchestrator. The bus may be nil for
// callers that do not observe events.
func NewOrchestrator(moderator Moderator, author Author, bus *events.Bus, cfg Config) *Orchestrator {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 20 * time.Second
	}
	return &Orchestrator{
		moderator: moderator,
		author:    author,
		bus:       bus,
		cfg:       cfg,
	}
}

// BeginSession creates a fresh session on the given topic and seeds the
// transcript with the opening Guide message. A live non-dispatching
// session is replaced (user restart).
func (o *Orchestrator) BeginSession(rawTopic string) (Snapshot, error) {
	topic, err := ParseTopic(rawTopic)
	if err != nil {
		return Snapshot{}, err
	}

	o.mu.Lock()
	if o.dispatching {
		o.mu.Unlock()
		return Snapshot{}, ErrDispatchInFlight
	}

	opening := phases.First()
	s := &session{
		id:        uuid.New().String(),
		topic:     topic,
		phase:     opening.ID,
		turn:      SpeakerA,
		state:     StateAwaiting,
		mode:      ModePartner,
		createdAt: time.Now(),
	}
	s.append(Entry{Kind: EntryGuide, Text: opening.OpeningPrompt(string(topic)), Phase: opening.ID})
	o.current = s
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(events.SessionStartedPayload{Topic: string(topic), Phase: opening.ID}, s.id)
	slog.Info("dialogue: session started", "session_id", s.id, "topic", topic)
	return snap, nil
}

// Reset discards the live session.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	if o.dispatching {
		o.mu.Unlock()
		return ErrDispatchInFlight
	}
	s := o.current
	o.current = nil
	o.mu.Unlock()

	if s != nil {
		o.publish(events.SessionResetPayload{Topic: string(s.topic)}, s.id)
	}
	return nil
}

// SetInteractionMode routes the next captured utterance. Invalid while
// a dispatch is in flight or after the session has ended.
func (o *Orchestrator) SetInteractionMode(mode InteractionMode) (Snapshot, error) {
	if _, ok := ParseMode(string(mode)); !ok {
		return Snapshot{}, fmt.Errorf("%w: unknown interaction mode %q", ErrInvalidTransition, mode)
	}

	o.mu.Lock()
	s := o.current
	if s == nil {
		o.mu.Unlock()
		return Snapshot{}, ErrNoSession
	}
	if o.dispatching {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrDispatchInFlight
	}
	if s.state == StateTerminal {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrSessionTerminal
	}
	s.mode = mode
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(events.ModeChangedPayload{Mode: string(mode)}, s.id)
	return snap, nil
}

// BeginRecording marks active speech capture. Recording and dispatch
// are mutually exclusive.
func (o *Orchestrator) BeginRecording() (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.current
	if s == nil {
		return Snapshot{}, ErrNoSession
	}
	if o.dispatching {
		return o.snapshotLocked(), ErrDispatchInFlight
	}
	if s.state == StateTerminal {
		return o.snapshotLocked(), ErrSessionTerminal
	}
	s.state = StateRecording
	return o.snapshotLocked(), nil
}

// CaptureUtterance stores the transcription collaborator's final text
// into the pending buffer. Empty text is accepted here by contract;
// Dispatch rejects it.
func (o *Orchestrator) CaptureUtterance(text string, audioDuration time.Duration) (Snapshot, error) {
	o.mu.Lock()
	s := o.current
	if s == nil {
		o.mu.Unlock()
		return Snapshot{}, ErrNoSession
	}
	if o.dispatching {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrDispatchInFlight
	}
	if s.state == StateTerminal {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrSessionTerminal
	}
	s.pending = text
	s.pendingDuration = audioDuration
	s.state = StateReviewing
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(events.UtteranceCapturedPayload{Chars: len(text), AudioDuration: audioDuration}, s.id)
	return snap, nil
}

// DiscardUtterance drops the pending buffer without dispatching.
func (o *Orchestrator) DiscardUtterance() (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.current
	if s == nil {
		return Snapshot{}, ErrNoSession
	}
	if o.dispatching {
		return o.snapshotLocked(), ErrDispatchInFlight
	}
	if s.state == StateTerminal {
		return o.snapshotLocked(), ErrSessionTerminal
	}
	s.pending = ""
	s.pendingDuration = 0
	s.state = StateAwaiting
	return o.snapshotLocked(), nil
}

// Dispatch routes the pending utterance through the pipeline selected
// by the interaction mode. Exactly one dispatch may be in flight.
func (o *Orchestrator) Dispatch(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	s := o.current
	if s == nil {
		o.mu.Unlock()
		return Snapshot{}, ErrNoSession
	}
	if s.state == StateTerminal {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrSessionTerminal
	}
	if o.dispatching {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrDispatchInFlight
	}
	if s.state == StateRecording {
		// Recording must fully stop, finalizing the transcribed text,
		// before dispatch may begin.
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, fmt.Errorf("%w: recording in progress", ErrInvalidTransition)
	}
	text := strings.TrimSpace(s.pending)
	if text == "" {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrEmptyUtterance
	}

	// A new send attempt clears a prior rejection.
	s.moderationError = nil
	o.dispatching = true
	s.state = StateDispatching
	mode := s.mode
	duration := s.pendingDuration
	o.mu.Unlock()

	switch mode {
	case ModePublicGuide:
		return o.dispatchPublic(ctx, text)
	case ModePrivateGuide:
		return o.dispatchPrivate(ctx, text)
	default:
		return o.dispatchPartner(ctx, text, duration)
	}
}

// dispatchPartner screens the utterance, admits it on approval, and on
// a completed round authors the transition into the next phase.
func (o *Orchestrator) dispatchPartner(ctx context.Context, text string, duration time.Duration) (Snapshot, error) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.GatewayTimeout)
	decision, err := o.moderator.Classify(cctx, text)
	cancel()
	if err != nil {
		// The gateway contract is fail-open; treat a surfaced error
		// the same way.
		slog.Warn("dialogue: moderation unavailable, failing open", "error", err)
		decision = moderation.Decision{Approved: true}
	}

	o.mu.Lock()
	s := o.current
	if s == nil {
		o.dispatching = false
		o.mu.Unlock()
		return Snapshot{}, ErrNoSession
	}

	if !decision.Approved {
		// Non-destructive halt: pending, turn, and phase are untouched
		// so the speaker can edit and resend.
		s.moderationError = &ModerationError{Title: decision.Title, Message: decision.Message}
		s.privateHint = ""
		s.state = StateReviewing
		snap := o.finishLocked()
		o.mu.Unlock()

		o.publish(events.ModerationRejectedPayload{Title: decision.Title, Message: decision.Message}, s.id)
		return snap, nil
	}

	speaker := s.turn
	phase := s.phase
	s.append(Entry{Kind: EntryPartner, Speaker: speaker, Text: text, Phase: phase, AudioDuration: duration})
	s.pending = ""
	s.pendingDuration = 0
	s.privateHint = ""

	if speaker == SpeakerA {
		// First half of the round; solicit B in the same phase.
		s.turn = SpeakerB
		s.state = StateAwaiting
		snap := o.finishLocked()
		o.mu.Unlock()

		o.publish(events.EntryAppendedPayload{Kind: string(EntryPartner), Speaker: string(speaker), Phase: phase, Text: text}, s.id)
		return snap, nil
	}

	// Round complete.
	if phases.IsLast(phase) {
		s.state = StateTerminal
		entries := len(s.transcript)
		snap := o.finishLocked()
		o.mu.Unlock()

		o.publish(events.EntryAppendedPayload{Kind: string(EntryPartner), Speaker: string(speaker), Phase: phase, Text: text}, s.id)
		o.publish(events.SessionCompletedPayload{Topic: string(s.topic), Entries: entries}, s.id)
		slog.Info("dialogue: session completed", "session_id", s.id)
		return snap, nil
	}

	// The round-completing utterance is committed before the transition
	// is composed, so the prompt sees only durable transcript state.
	history := s.history()
	from, _ := phases.Get(phase)
	to, _ := phases.Get(phase + 1)
	topic := string(s.topic)
	o.mu.Unlock()

	o.publish(events.EntryAppendedPayload{Kind: string(EntryPartner), Speaker: string(speaker), Phase: phase, Text: text}, s.id)

	transition := o.composeTransition(ctx, history, from, to, topic)

	o.mu.Lock()
	s.append(Entry{Kind: EntryGuide, Text: transition, Phase: to.ID})
	s.phase = to.ID
	s.turn = SpeakerA
	s.state = StateAwaiting
	snap := o.finishLocked()
	o.mu.Unlock()

	o.publish(events.EntryAppendedPayload{Kind: string(EntryGuide), Phase: to.ID, Text: transition}, s.id)
	o.publish(events.PhaseAdvancedPayload{From: from.ID, To: to.ID}, s.id)
	return snap, nil
}

// dispatchPublic records the clarification, asks the Guide, and
// records the answer. Turn and phase never move.
func (o *Orchestrator) dispatchPublic(ctx context.Context, question string) (Snapshot, error) {
	o.mu.Lock()
	s := o.current
	if s == nil {
		o.dispatching = false
		o.mu.Unlock()
		return Snapshot{}, ErrNoSession
	}

	speaker := s.turn
	phase := s.phase
	// Clarification questions to the facilitator are not screened.
	s.append(Entry{Kind: EntryClarification, Speaker: speaker, Text: question, Phase: phase})
	s.pending = ""
	s.pendingDuration = 0
	history := s.history()
	topic := string(s.topic)
	current, _ := phases.Get(phase)
	o.mu.Unlock()

	o.publish(events.EntryAppendedPayload{Kind: string(EntryClarification), Speaker: string(speaker), Phase: phase, Text: question}, s.id)

	answer := o.answerQuestion(ctx, history, question, topic, current)

	o.mu.Lock()
	s.append(Entry{Kind: EntryGuide, Text: answer, Phase: phase})
	s.mode = ModePartner
	s.state = StateAwaiting
	snap := o.finishLocked()
	o.mu.Unlock()

	o.publish(events.EntryAppendedPayload{Kind: string(EntryGuide), Phase: phase, Text: answer}, s.id)
	return snap, nil
}

// dispatchPrivate answers the question off the record: nothing joins
// the transcript and the hint is visible only to the asker.
func (o *Orchestrator) dispatchPrivate(ctx context.Context, question string) (Snapshot, error) {
	o.mu.Lock()
	s := o.current
	if s == nil {
		o.dispatching = false
		o.mu.Unlock()
		return Snapshot{}, ErrNoSession
	}

	speaker := s.turn
	history := s.history()
	topic := string(s.topic)
	current, _ := phases.Get(s.phase)
	o.mu.Unlock()

	answer := o.answerQuestion(ctx, history, question, topic, current)

	o.mu.Lock()
	s.privateHint = answer
	s.moderationError = nil
	s.pending = ""
	s.pendingDuration = 0
	s.mode = ModePartner
	s.state = StateAwaiting
	snap := o.finishLocked()
	o.mu.Unlock()

	o.publish(events.PrivateHintPayload{Speaker: string(speaker)}, s.id)
	return snap, nil
}

// DismissModerationError clears the rejection signal. The pending
// utterance is untouched.
func (o *Orchestrator) DismissModerationError() (Snapshot, error) {
	return o.dismiss("moderation_error")
}

// DismissPrivateHint clears the private hint.
func (o *Orchestrator) DismissPrivateHint() (Snapshot, error) {
	return o.dismiss("private_hint")
}

func (o *Orchestrator) dismiss(signal string) (Snapshot, error) {
	o.mu.Lock()
	s := o.current
	if s == nil {
		o.mu.Unlock()
		return Snapshot{}, ErrNoSession
	}
	if o.dispatching {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrDispatchInFlight
	}
	switch signal {
	case "moderation_error":
		s.moderationError = nil
	case "private_hint":
		s.privateHint = ""
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(events.SignalDismissedPayload{Signal: signal}, s.id)
	return snap, nil
}

// Snapshot returns an immutable view of the current session state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// composeTransition calls the authoring gateway with a bounded wait and
// applies the deterministic fallback on any failure.
func (o *Orchestrator) composeTransition(ctx context.Context, history []guide.HistoryEntry, from, to phases.Phase, topic string) string {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.GatewayTimeout)
	defer cancel()

	text, err := o.author.ComposeTransition(cctx, history, from, to, topic)
	if err != nil {
		guide.LogFallback("transition", err)
		return guide.TransitionFallback(to, topic)
	}
	return text
}

// answerQuestion calls the authoring gateway with a bounded wait and
// applies the static fallback on any failure.
func (o *Orchestrator) answerQuestion(ctx context.Context, history []guide.HistoryEntry, question, topic string, current phases.Phase) string {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.GatewayTimeout)
	defer cancel()

	answer, err := o.author.AnswerQuestion(cctx, history, question, topic, current)
	if err != nil {
		guide.LogFallback("answer", err)
		return guide.AnswerFallback()
	}
	return answer
}

// finishLocked closes out a dispatch while the lock is held.
func (o *Orchestrator) finishLocked() Snapshot {
	o.dispatching = false
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := o.current
	if s == nil {
		return Snapshot{}
	}

	transcript := make([]Entry, len(s.transcript))
	copy(transcript, s.transcript)

	var modErr *ModerationError
	if s.moderationError != nil {
		c := *s.moderationError
		modErr = &c
	}

	title := ""
	if p, err := phases.Get(s.phase); err == nil {
		title = p.Title
	}

	return Snapshot{
		Active:          true,
		SessionID:       s.id,
		Topic:           s.topic,
		Phase:           s.phase,
		PhaseTitle:      title,
		Turn:            s.turn,
		State:           s.state,
		Mode:            s.mode,
		Transcript:      transcript,
		Pending:         s.pending,
		ModerationError: modErr,
		PrivateHint:     s.privateHint,
		TerminalDelay:   o.cfg.TerminalDelay,
		CreatedAt:       s.createdAt,
	}
}

func (o *Orchestrator) publish(payload events.EventPayload, sessionID string) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.NewTypedEventWithSession(events.SourceOrchestrator, payload, sessionID))
}
