// Package emitter is a small typed publish/subscribe hub.
//
// Listeners are keyed by K and receive a payload of type P. Delivery is
// synchronous and happens in subscription order. Listeners may subscribe or
// unsubscribe while an emission is in progress; such changes take effect on
// the next Emit.
package emitter

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/amp-labs/amp-fsm/logger"
)

// Listener receives the payload of a single key.
type Listener[P any] func(payload P)

// WildcardListener receives every emission along with its key.
type WildcardListener[K comparable, P any] func(key K, payload P)

type entry[K comparable, P any] struct {
	id   uint64
	once bool
	fn   Listener[P]
	all  WildcardListener[K, P]
}

// Emitter dispatches payloads to the listeners registered for a key.
// The zero value is not usable; call New.
type Emitter[K comparable, P any] struct {
	mu       sync.Mutex
	nextID   uint64
	byKey    map[K][]entry[K, P]
	wildcard []entry[K, P]
	logger   *slog.Logger
}

// Option configures an Emitter.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report listener panics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates an empty emitter.
func New[K comparable, P any](opts ...Option) *Emitter[K, P] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = logger.Get()
	}

	return &Emitter[K, P]{
		byKey:  make(map[K][]entry[K, P]),
		logger: o.logger,
	}
}

// On registers fn for key. The returned function removes exactly this
// registration and is safe to call more than once.
func (e *Emitter[K, P]) On(key K, fn Listener[P]) func() {
	return e.add(key, entry[K, P]{fn: fn})
}

// Once is like On, but the listener is removed before its first delivery.
func (e *Emitter[K, P]) Once(key K, fn Listener[P]) func() {
	return e.add(key, entry[K, P]{fn: fn, once: true})
}

// OnAll registers a listener for every key. Wildcard listeners run after the
// listeners of the emitted key.
func (e *Emitter[K, P]) OnAll(fn WildcardListener[K, P]) func() {
	if fn == nil {
		return func() {}
	}

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.wildcard = append(e.wildcard, entry[K, P]{id: id, all: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.wildcard = without(e.wildcard, id)
	}
}

func (e *Emitter[K, P]) add(key K, ent entry[K, P]) func() {
	if ent.fn == nil {
		return func() {}
	}

	e.mu.Lock()
	e.nextID++
	ent.id = e.nextID
	e.byKey[key] = append(e.byKey[key], ent)
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.removeLocked(key, ent.id)
	}
}

func (e *Emitter[K, P]) removeLocked(key K, id uint64) {
	remaining := without(e.byKey[key], id)
	if len(remaining) == 0 {
		delete(e.byKey, key)

		return
	}

	e.byKey[key] = remaining
}

func without[K comparable, P any](entries []entry[K, P], id uint64) []entry[K, P] {
	out := make([]entry[K, P], 0, len(entries))

	for _, ent := range entries {
		if ent.id != id {
			out = append(out, ent)
		}
	}

	return out
}

// Off removes every listener registered for key. Wildcard listeners stay.
func (e *Emitter[K, P]) Off(key K) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.byKey, key)
}

// RemoveAll removes every listener, wildcard listeners included.
func (e *Emitter[K, P]) RemoveAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.byKey = make(map[K][]entry[K, P])
	e.wildcard = nil
}

// ListenerCount returns the number of listeners registered for key, not
// counting wildcard listeners.
func (e *Emitter[K, P]) ListenerCount(key K) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.byKey[key])
}

// Emit delivers payload to the listeners of key and then to the wildcard
// listeners. It returns how many listeners were invoked. A panicking listener
// is logged and does not prevent delivery to the rest.
func (e *Emitter[K, P]) Emit(key K, payload P) int {
	e.mu.Lock()

	keyed := e.byKey[key]
	snapshot := make([]entry[K, P], 0, len(keyed)+len(e.wildcard))
	snapshot = append(snapshot, keyed...)
	snapshot = append(snapshot, e.wildcard...)

	for _, ent := range keyed {
		if ent.once {
			e.removeLocked(key, ent.id)
		}
	}

	e.mu.Unlock()

	for _, ent := range snapshot {
		e.deliver(key, ent, payload)
	}

	return len(snapshot)
}

func (e *Emitter[K, P]) deliver(key K, ent entry[K, P], payload P) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic in event listener",
				"key", fmt.Sprint(key),
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	if ent.all != nil {
		ent.all(key, payload)

		return
	}

	ent.fn(payload)
}
