package dialogue

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTopic is returned when a session is begun on a topic
	// outside the catalog.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrNoSession is returned when an operation requires a live session.
	ErrNoSession = errors.New("no active session")

	// ErrInvalidTransition is the base error for operations invoked in a
	// state that forbids them. Specific cases wrap it.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrDispatchInFlight is returned when a second dispatch is attempted
	// while one is outstanding.
	ErrDispatchInFlight = fmt.Errorf("%w: dispatch already in flight", ErrInvalidTransition)

	// ErrEmptyUtterance is returned when dispatch is attempted with an
	// empty or whitespace-only pending buffer.
	ErrEmptyUtterance = fmt.Errorf("%w: pending utterance is empty", ErrInvalidTransition)

	// ErrSessionTerminal is returned when an operation is attempted after
	// the final phase's round has completed.
	ErrSessionTerminal = fmt.Errorf("%w: session is terminal", ErrInvalidTransition)
)
