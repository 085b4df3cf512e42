package fsmtest

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/neilotoole/slogt"
)

// Logger returns a logger that writes to t.Log until the test's cleanup runs
// and drops records afterwards. Jobs may still be settling when a test ends,
// and t.Log panics once the test has completed.
func Logger(t testing.TB) *slog.Logger {
	t.Helper()

	gate := &logGate{}
	t.Cleanup(gate.close)

	return slog.New(&gatedHandler{inner: slogt.New(t).Handler(), gate: gate})
}

type logGate struct {
	mu     sync.RWMutex
	closed bool
}

func (g *logGate) close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
}

type gatedHandler struct {
	inner slog.Handler
	gate  *logGate
}

func (h *gatedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *gatedHandler) Handle(ctx context.Context, record slog.Record) error {
	h.gate.mu.RLock()
	defer h.gate.mu.RUnlock()

	if h.gate.closed {
		return nil
	}

	return h.inner.Handle(ctx, record)
}

func (h *gatedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &gatedHandler{inner: h.inner.WithAttrs(attrs), gate: h.gate}
}

func (h *gatedHandler) WithGroup(name string) slog.Handler {
	return &gatedHandler{inner: h.inner.WithGroup(name), gate: h.gate}
}
