package fsmtest

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/assert"
)

// Matcher errors.
var (
	ErrKindNotEmitted     = errors.New("notification was not emitted")
	ErrKindEmitted        = errors.New("notification was emitted")
	ErrOrderMismatch      = errors.New("notifications out of order")
	ErrStateNotVisited    = errors.New("state was not visited")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrErrorNotRaised     = errors.New("error was not raised")
)

// Matcher checks a property of a recorded run.
type Matcher[C any] interface {
	Match(r *Recorder[C]) error
	Description() string
}

type matcherFunc[C any] struct {
	description string
	match       func(r *Recorder[C]) error
}

func (m matcherFunc[C]) Match(r *Recorder[C]) error { return m.match(r) }
func (m matcherFunc[C]) Description() string        { return m.description }

// Emitted matches if at least one notification of kind was recorded.
func Emitted[C any](kind fsm.Kind) Matcher[C] { //nolint:ireturn
	return matcherFunc[C]{
		description: fmt.Sprintf("%q should be emitted", kind),
		match: func(r *Recorder[C]) error {
			if r.Count(kind) == 0 {
				return fmt.Errorf("%w: %q", ErrKindNotEmitted, kind)
			}

			return nil
		},
	}
}

// NotEmitted matches if no notification of kind was recorded.
func NotEmitted[C any](kind fsm.Kind) Matcher[C] { //nolint:ireturn
	return matcherFunc[C]{
		description: fmt.Sprintf("%q should not be emitted", kind),
		match: func(r *Recorder[C]) error {
			if n := r.Count(kind); n > 0 {
				return fmt.Errorf("%w: %q %d times", ErrKindEmitted, kind, n)
			}

			return nil
		},
	}
}

// InOrder matches if kinds appear in the recording in this relative order.
// Other notifications may appear in between.
func InOrder[C any](kinds ...fsm.Kind) Matcher[C] { //nolint:ireturn
	return matcherFunc[C]{
		description: fmt.Sprintf("notifications %v should appear in order", kinds),
		match: func(r *Recorder[C]) error {
			recorded := r.Kinds()
			next := 0

			for _, kind := range recorded {
				if next < len(kinds) && kind == kinds[next] {
					next++
				}
			}

			if next < len(kinds) {
				return fmt.Errorf("%w: wanted %v, got %v", ErrOrderMismatch, kinds, recorded)
			}

			return nil
		},
	}
}

// StateVisited matches if state was entered.
func StateVisited[C any](state string) Matcher[C] { //nolint:ireturn
	return matcherFunc[C]{
		description: fmt.Sprintf("state %q should be entered", state),
		match: func(r *Recorder[C]) error {
			if !slices.Contains(r.Entered(), state) {
				return fmt.Errorf("%w: %q", ErrStateNotVisited, state)
			}

			return nil
		},
	}
}

// TransitionTaken matches if the machine moved from one state to another.
func TransitionTaken[C any](from, to string) Matcher[C] { //nolint:ireturn
	return matcherFunc[C]{
		description: fmt.Sprintf("transition from %q to %q should be taken", from, to),
		match: func(r *Recorder[C]) error {
			for _, tr := range r.Transitions() {
				if tr.From == from && tr.To == to {
					return nil
				}
			}

			return fmt.Errorf("%w: from %q to %q", ErrTransitionNotTaken, from, to)
		},
	}
}

// ErrorRaised matches if an error notification with code was recorded.
func ErrorRaised[C any](code fsm.Code) Matcher[C] { //nolint:ireturn
	return matcherFunc[C]{
		description: fmt.Sprintf("error %s should be raised", code),
		match: func(r *Recorder[C]) error {
			for _, err := range r.Errors() {
				if err != nil && err.Code == code {
					return nil
				}
			}

			return fmt.Errorf("%w: %s", ErrErrorNotRaised, code)
		},
	}
}

// AssertAll reports every matcher that fails against r.
func AssertAll[C any](t testing.TB, r *Recorder[C], matchers ...Matcher[C]) bool {
	t.Helper()

	ok := true

	for _, m := range matchers {
		if err := m.Match(r); err != nil {
			ok = assert.Fail(t, m.Description(), err.Error()) && ok
		}
	}

	return ok
}
