// Package fsmtest provides helpers for testing state machines: a notification
// recorder, a timer that fires on demand and matchers over recorded runs.
package fsmtest

import (
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/require"
)

// DefaultWait bounds the Wait helpers when no timeout is given.
const DefaultWait = 2 * time.Second

// Recorder keeps every notification a machine emits. It is safe for
// concurrent use.
type Recorder[C any] struct {
	mu            sync.Mutex
	notifications []fsm.Notification[C]
	changed       chan struct{}
}

// Record subscribes a new recorder to every notification of m. Subscribe
// before Start to capture the whole run.
func Record[C any](m *fsm.Machine[C]) *Recorder[C] {
	r := &Recorder[C]{changed: make(chan struct{})}
	m.OnAny(r.add)

	return r
}

func (r *Recorder[C]) add(n fsm.Notification[C]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications = append(r.notifications, n)

	close(r.changed)
	r.changed = make(chan struct{})
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder[C]) Notifications() []fsm.Notification[C] {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]fsm.Notification[C], len(r.notifications))
	copy(out, r.notifications)

	return out
}

// Kinds returns the recorded notification kinds in order.
func (r *Recorder[C]) Kinds() []fsm.Kind {
	notifications := r.Notifications()
	kinds := make([]fsm.Kind, 0, len(notifications))

	for _, n := range notifications {
		kinds = append(kinds, n.Kind)
	}

	return kinds
}

// Entered returns the states entered, in order.
func (r *Recorder[C]) Entered() []string {
	var states []string

	for _, n := range r.Notifications() {
		if n.Kind == fsm.KindEntry {
			states = append(states, n.State)
		}
	}

	return states
}

// Transitions returns the payloads of the recorded transition notifications.
func (r *Recorder[C]) Transitions() []fsm.TransitionInfo {
	var out []fsm.TransitionInfo

	for _, n := range r.Notifications() {
		if n.Kind == fsm.KindTransition && n.Transition != nil {
			out = append(out, *n.Transition)
		}
	}

	return out
}

// Errors returns the errors carried by recorded error notifications.
func (r *Recorder[C]) Errors() []*fsm.Error {
	var out []*fsm.Error

	for _, n := range r.Notifications() {
		if n.Kind == fsm.KindError {
			out = append(out, n.Err)
		}
	}

	return out
}

// Count returns how many notifications of kind were recorded.
func (r *Recorder[C]) Count(kind fsm.Kind) int {
	count := 0

	for _, n := range r.Notifications() {
		if n.Kind == kind {
			count++
		}
	}

	return count
}

// WaitFor blocks until a notification of kind has been recorded and returns
// the first one. It fails the test after timeout (DefaultWait if zero).
func (r *Recorder[C]) WaitFor(t testing.TB, kind fsm.Kind, timeout time.Duration) fsm.Notification[C] {
	t.Helper()

	if timeout <= 0 {
		timeout = DefaultWait
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		r.mu.Lock()

		for _, n := range r.notifications {
			if n.Kind == kind {
				r.mu.Unlock()

				return n
			}
		}

		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-deadline.C:
			require.FailNowf(t, "notification not recorded", "no %q notification within %s, got %v",
				kind, timeout, r.Kinds())

			return fsm.Notification[C]{}
		}
	}
}

// WaitForState waits until m is in state.
func WaitForState[C any](t testing.TB, m *fsm.Machine[C], state string, timeout time.Duration) {
	t.Helper()

	if timeout <= 0 {
		timeout = DefaultWait
	}

	require.Eventuallyf(t, func() bool {
		return m.StateName() == state
	}, timeout, time.Millisecond, "machine did not reach state %q (currently %q)", state, m.StateName())
}

// WaitForStop waits until m has stopped.
func WaitForStop[C any](t testing.TB, m *fsm.Machine[C], timeout time.Duration) {
	t.Helper()

	if timeout <= 0 {
		timeout = DefaultWait
	}

	select {
	case <-m.Done():
	case <-time.After(timeout):
		require.FailNowf(t, "machine did not stop", "still %s in state %q after %s",
			m.Status(), m.StateName(), timeout)
	}
}
