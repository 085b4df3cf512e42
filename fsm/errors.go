package fsm

import (
	"errors"
	"fmt"
)

// Code classifies a contained error.
type Code int

const (
	// CodeUnsupportedTransitions means the current state accepts no events at all.
	CodeUnsupportedTransitions Code = 10
	// CodeInvalidEventType means the current state does not know the event.
	CodeInvalidEventType Code = 20
	// CodeNoTransitionObject means every candidate for the event was rejected by its guard.
	CodeNoTransitionObject Code = 30
	// CodeJobTimeLimitExceeded means a state's job outlived its time limit.
	CodeJobTimeLimitExceeded Code = 40
	// CodeRuntimeError covers everything else, lifecycle misuse included.
	CodeRuntimeError Code = 50
)

func (c Code) String() string {
	switch c {
	case CodeUnsupportedTransitions:
		return "unsupported_transitions"
	case CodeInvalidEventType:
		return "invalid_event_type"
	case CodeNoTransitionObject:
		return "no_transition_object"
	case CodeJobTimeLimitExceeded:
		return "job_time_limit_exceeded"
	case CodeRuntimeError:
		return "runtime_error"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

func (c Code) sentinel() error {
	switch c {
	case CodeUnsupportedTransitions:
		return ErrUnsupportedTransitions
	case CodeInvalidEventType:
		return ErrInvalidEventType
	case CodeNoTransitionObject:
		return ErrNoTransitionObject
	case CodeJobTimeLimitExceeded:
		return ErrJobTimeLimitExceeded
	default:
		return ErrRuntime
	}
}

var (
	// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
	ErrInvalidConfig = errors.New("invalid configuration")

	ErrUnsupportedTransitions = errors.New("unsupported transitions")
	ErrInvalidEventType       = errors.New("invalid event type")
	ErrNoTransitionObject     = errors.New("no transition object found")
	ErrJobTimeLimitExceeded   = errors.New("job time limit exceeded")
	ErrRuntime                = errors.New("runtime error")

	// ErrEmitLoop is wrapped by the runtime error raised when states without a
	// job keep emitting into each other.
	ErrEmitLoop = errors.New("emit loop")

	// Lifecycle misuse. These are returned to the caller and never notified.
	ErrAlreadyStarted    = errors.New("machine already started")
	ErrRestartNotAllowed = errors.New("machine cannot be restarted")
	ErrAlreadyStopped    = errors.New("machine already stopped")
	ErrNotStarted        = errors.New("machine not started")
	ErrStopped           = errors.New("machine stopped")

	errUnknown = errors.New("unknown error")
)

// Error is the typed error produced by the machine. It always unwraps to the
// sentinel of its Code and, when present, to Err.
type Error struct {
	Code    Code
	State   string
	Event   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code.sentinel()}
	}

	return []error{e.Code.sentinel(), e.Err}
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var fsmErr *Error
	if errors.As(err, &fsmErr) {
		return fsmErr, true
	}

	return nil, false
}

func newError(code Code, state, event, message string, cause error) *Error {
	return &Error{
		Code:    code,
		State:   state,
		Event:   event,
		Message: message,
		Err:     cause,
	}
}

// normalize turns anything that was returned, failed with or panicked into
// an *Error. An *Error found in v keeps its fields but is copied, since the
// machine annotates the result and v belongs to the caller. The copy unwraps
// to v.
func normalize(v any, state string) *Error {
	switch val := v.(type) {
	case *Error:
		if val != nil {
			return adopt(val, val, state)
		}
	case error:
		if fsmErr, ok := AsError(val); ok {
			return adopt(fsmErr, val, state)
		}

		return newError(CodeRuntimeError, state, "", val.Error(), val)
	case string:
		return newError(CodeRuntimeError, state, "", val, nil)
	case fmt.Stringer:
		return newError(CodeRuntimeError, state, "", val.String(), nil)
	}

	return newError(CodeRuntimeError, state, "", errUnknown.Error(), errUnknown)
}

func adopt(fsmErr *Error, cause error, state string) *Error {
	adopted := *fsmErr
	adopted.Err = cause

	if adopted.State == "" {
		adopted.State = state
	}

	return &adopted
}
