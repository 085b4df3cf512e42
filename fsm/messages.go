package fsm

import (
	"fmt"
	"time"
)

// ErrorMessages overrides the text of the errors the machine produces. Every
// field is optional; a nil field falls back to the built-in message.
type ErrorMessages struct {
	AlreadyStarted         func() string
	RestartNotAllowed      func() string
	AlreadyStopped         func() string
	NotStarted             func() string
	Stopped                func() string
	UnsupportedTransitions func(state string) string
	InvalidEventType       func(state, event string) string
	NoTransitionObject     func(state, event string) string
	JobTimeLimitExceeded   func(state string, limit time.Duration) string
}

func (m ErrorMessages) alreadyStarted() string {
	if m.AlreadyStarted != nil {
		return m.AlreadyStarted()
	}

	return "FSM is already started"
}

func (m ErrorMessages) restartNotAllowed() string {
	if m.RestartNotAllowed != nil {
		return m.RestartNotAllowed()
	}

	return "Cannot restart a stopped FSM"
}

func (m ErrorMessages) alreadyStopped() string {
	if m.AlreadyStopped != nil {
		return m.AlreadyStopped()
	}

	return "FSM is already stopped"
}

func (m ErrorMessages) notStarted() string {
	if m.NotStarted != nil {
		return m.NotStarted()
	}

	return "Cannot send events to an FSM that is not started"
}

func (m ErrorMessages) stopped() string {
	if m.Stopped != nil {
		return m.Stopped()
	}

	return "Cannot send events to a stopped FSM"
}

func (m ErrorMessages) unsupportedTransitions(state string) string {
	if m.UnsupportedTransitions != nil {
		return m.UnsupportedTransitions(state)
	}

	return fmt.Sprintf("State %q does not support any transitions", state)
}

func (m ErrorMessages) invalidEventType(state, event string) string {
	if m.InvalidEventType != nil {
		return m.InvalidEventType(state, event)
	}

	return fmt.Sprintf("Event type %q is not valid for the current state %q", event, state)
}

func (m ErrorMessages) noTransitionObject(state, event string) string {
	if m.NoTransitionObject != nil {
		return m.NoTransitionObject(state, event)
	}

	return fmt.Sprintf("No transition object found for event type %q in state %q", event, state)
}

func (m ErrorMessages) jobTimeLimitExceeded(state string, limit time.Duration) string {
	if m.JobTimeLimitExceeded != nil {
		return m.JobTimeLimitExceeded(state, limit)
	}

	if limit <= 0 {
		return fmt.Sprintf("The job function in state %q has exceeded the allowed time limit", state)
	}

	return fmt.Sprintf("The job function in state %q has exceeded the allowed time limit of %s", state, limit)
}
