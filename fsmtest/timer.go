package fsmtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ManualTimer is an fsm.Timer that only fires when told to.
type ManualTimer struct {
	mu      sync.Mutex
	waiters map[uint64]chan struct{}
	next    uint64
}

func NewManualTimer() *ManualTimer {
	return &ManualTimer{waiters: make(map[uint64]chan struct{})}
}

func (m *ManualTimer) Wait(ctx context.Context) error {
	m.mu.Lock()
	m.next++
	id := m.next
	fired := make(chan struct{})
	m.waiters[id] = fired
	m.mu.Unlock()

	select {
	case <-fired:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		delete(m.waiters, id)
		m.mu.Unlock()

		return ctx.Err()
	}
}

// Fire releases every pending Wait and reports how many there were.
func (m *ManualTimer) Fire() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.waiters)

	for id, fired := range m.waiters {
		close(fired)
		delete(m.waiters, id)
	}

	return count
}

// Waiting returns the number of pending Wait calls.
func (m *ManualTimer) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.waiters)
}

// AwaitWaiting waits until exactly n Wait calls are pending.
func (m *ManualTimer) AwaitWaiting(t testing.TB, n int) {
	t.Helper()

	require.Eventuallyf(t, func() bool {
		return m.Waiting() == n
	}, DefaultWait, time.Millisecond, "expected %d pending timer waits", n)
}
