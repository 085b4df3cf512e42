// Package fsm drives a finite state machine whose states may run background
// jobs.
//
// A machine is described by a Config: an initial state, a user owned context
// value and a table of states. Each state may declare entry and exit actions,
// guarded transition candidates per event, a job and a list of events to emit
// once the job has completed. Every change of the machine happens inside a
// step; steps never overlap, and listeners or actions that call back into the
// machine have their call queued until the current step is over.
//
// Jobs run concurrently with the machine. Each state entry mints a new
// generation and a job only ever affects the machine while the generation that
// started it is still current; results of superseded jobs are dropped.
package fsm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/amp-labs/amp-fsm/emitter"
	"github.com/amp-labs/amp-fsm/future"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Status is the lifecycle of a machine. It only moves forward.
type Status int32

const (
	StatusNotStarted Status = iota
	StatusActive
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusActive:
		return "active"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Machine is a running instance of a Config. All methods are safe for
// concurrent use.
type Machine[C any] struct {
	id     string
	name   string
	config Config[C]
	opts   *options
	log    *slog.Logger
	events *emitter.Emitter[Kind, Notification[C]]
	runner jobRunner
	jobs   *jobSet
	serial serializer

	status     atomic.Int32
	state      atomic.String
	generation atomic.Uint64

	lifetime     context.Context //nolint:containedctx
	stopLifetime context.CancelFunc
	done         chan struct{}

	// Only touched from inside a step.
	scope       context.Context //nolint:containedctx
	cancelScope context.CancelFunc
	emitDepth   int
}

// maxEmitDepth bounds how many emits may chain through states without a job
// inside one step.
const maxEmitDepth = 256

// New validates cfg and returns a machine in StatusNotStarted.
func New[C any](cfg Config[C], opts ...Option) (*Machine[C], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.jobTimeout < 0 {
		return nil, fmt.Errorf("%w: negative job timeout %s", ErrInvalidConfig, o.jobTimeout)
	}

	if o.id == "" {
		o.id = uuid.NewString()
	}

	if o.logger == nil {
		o.logger = logger.Get()
	}

	log := o.logger.With("machine", sanitizeMachine(cfg.Name), "machine_id", o.id)
	lifetime, stopLifetime := context.WithCancel(context.Background())

	m := &Machine[C]{
		id:           o.id,
		name:         cfg.Name,
		config:       cfg,
		opts:         o,
		log:          log,
		events:       emitter.New[Kind, Notification[C]](emitter.WithLogger(log)),
		runner:       jobRunner{pool: o.pool},
		jobs:         newJobSet(),
		lifetime:     lifetime,
		stopLifetime: stopLifetime,
		done:         make(chan struct{}),
	}

	m.state.Store(cfg.Initial)
	m.serial.onPanic = func(r any) {
		m.log.Error("panic in state machine step", "panic", r, "stack", string(debug.Stack()))
	}

	return m, nil
}

func (m *Machine[C]) ID() string { return m.id }

func (m *Machine[C]) Name() string { return m.name }

func (m *Machine[C]) Status() Status { return Status(m.status.Load()) }

// StateName returns the current state.
func (m *Machine[C]) StateName() string { return m.state.Load() }

// Context returns the context value the machine was configured with.
func (m *Machine[C]) Context() C { return m.config.Context } //nolint:ireturn

// Done is closed once the machine stops.
func (m *Machine[C]) Done() <-chan struct{} { return m.done }

// Describe returns the definition of the machine's graph.
func (m *Machine[C]) Describe() Definition { return m.config.Describe() }

// Events returns the events the current state accepts, in natural order.
func (m *Machine[C]) Events() []string {
	state := m.config.States[m.StateName()]
	if state.Terminal() {
		return nil
	}

	return sortedKeys(state.On)
}

// OutstandingJobs returns how many started jobs have not settled yet,
// superseded ones included.
func (m *Machine[C]) OutstandingJobs() int {
	return m.jobs.len()
}

// On subscribes to one kind of notification. The returned function removes
// the subscription. Stopping the machine removes every subscription.
func (m *Machine[C]) On(kind Kind, listener Listener[C]) func() {
	if listener == nil {
		return func() {}
	}

	return m.events.On(kind, emitter.Listener[Notification[C]](listener))
}

// OnAny subscribes to every notification.
func (m *Machine[C]) OnAny(listener Listener[C]) func() {
	if listener == nil {
		return func() {}
	}

	return m.events.OnAll(func(_ Kind, n Notification[C]) {
		listener(n)
	})
}

// RemoveAllListeners drops every subscription.
func (m *Machine[C]) RemoveAllListeners() {
	m.events.RemoveAll()
}

// Start enters the initial state. It fails with ErrAlreadyStarted or
// ErrRestartNotAllowed if the machine was started before. Any error contained
// while entering the initial state is returned as well.
func (m *Machine[C]) Start() error {
	return m.step(m.start)
}

// Stop stops the machine and cancels the context of every running job. A
// machine that was never started may be stopped; stopping twice fails with
// ErrAlreadyStopped.
func (m *Machine[C]) Stop() error {
	return m.step(m.stop)
}

// Transition feeds event to the current state. Lifecycle misuse is reported
// with ErrNotStarted or ErrStopped; resolution failures are contained and
// also returned.
//
// When called while a step is running, from a listener, an action or another
// goroutine, the event is queued behind that step and Transition returns nil.
func (m *Machine[C]) Transition(event string) error {
	return m.step(func() *Error {
		return m.transition(event)
	})
}

// Send is an alias of Transition.
func (m *Machine[C]) Send(event string) error {
	return m.Transition(event)
}

// Shutdown stops the machine and waits until every outstanding job has
// settled or ctx is done. When another goroutine is inside a step the stop is
// queued, and Shutdown waits for it as well. It must not be called from a
// listener or an action.
func (m *Machine[C]) Shutdown(ctx context.Context) error {
	if err := m.Stop(); err != nil && !errors.Is(err, ErrAlreadyStopped) {
		return err
	}

	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return future.WaitSettled(ctx, m.jobs.outstanding()...)
}

func (m *Machine[C]) step(fn func() *Error) error {
	var result *Error

	if !m.serial.do(func() { result = fn() }) {
		return nil
	}

	if result == nil {
		return nil
	}

	return result
}

func (m *Machine[C]) metricName() string {
	return sanitizeMachine(m.name)
}

func (m *Machine[C]) start() *Error {
	switch m.Status() {
	case StatusActive:
		return m.misuse(ErrAlreadyStarted, m.opts.messages.alreadyStarted(), "")
	case StatusStopped:
		return m.misuse(ErrRestartNotAllowed, m.opts.messages.restartNotAllowed(), "")
	case StatusNotStarted:
	}

	m.status.Store(int32(StatusActive))
	machinesActive.WithLabelValues(m.metricName()).Inc()
	m.log.Info("state machine started", "state", m.config.Initial)

	m.notify(KindStart, nil, nil)

	return m.enter(m.config.Initial)
}

func (m *Machine[C]) stop() *Error {
	previous := m.Status()
	if previous == StatusStopped {
		return m.misuse(ErrAlreadyStopped, m.opts.messages.alreadyStopped(), "")
	}

	m.status.Store(int32(StatusStopped))

	if previous == StatusActive {
		machinesActive.WithLabelValues(m.metricName()).Dec()
	}

	m.log.Info("state machine stopped", "state", m.StateName())

	m.notify(KindStop, nil, nil)
	m.events.RemoveAll()
	m.stopLifetime()
	close(m.done)

	return nil
}

func (m *Machine[C]) misuse(cause error, message, event string) *Error {
	m.log.Debug("state machine misuse", "error", message, "status", m.Status().String())

	return newError(CodeRuntimeError, m.StateName(), event, message, cause)
}

func (m *Machine[C]) transition(event string) *Error {
	switch m.Status() {
	case StatusNotStarted:
		return m.misuse(ErrNotStarted, m.opts.messages.notStarted(), event)
	case StatusStopped:
		return m.misuse(ErrStopped, m.opts.messages.stopped(), event)
	case StatusActive:
	}

	from := m.StateName()
	state := m.config.States[from]

	if state.Terminal() {
		return m.contain(newError(CodeUnsupportedTransitions, from, event,
			m.opts.messages.unsupportedTransitions(from), nil))
	}

	candidates, ok := state.On[event]
	if !ok {
		return m.contain(newError(CodeInvalidEventType, from, event,
			m.opts.messages.invalidEventType(from, event), nil))
	}

	candidate, err := m.selectTransition(candidates, from, event)
	if err != nil {
		return m.contain(err)
	}

	if candidate == nil {
		return m.contain(newError(CodeNoTransitionObject, from, event,
			m.opts.messages.noTransitionObject(from, event), nil))
	}

	if candidate.Target == "" {
		m.log.Debug("event handled in place", "state", from, "event", event)

		return m.runActions(candidate.Actions, from, event)
	}

	_, span := startTransitionSpan(m.lifetime, m.name, m.id, from, candidate.Target, event)

	result := m.change(state, from, event, candidate)

	var spanErr error
	if result != nil {
		spanErr = result
	}

	endSpan(span, spanErr)

	return result
}

// change leaves from and enters the candidate's target.
func (m *Machine[C]) change(state State[C], from, event string, candidate *Transition[C]) *Error {
	m.notify(KindExit, nil, nil)

	if err := m.runActions(state.Exit, from, event); err != nil {
		return err
	}

	m.notify(KindTransition, &TransitionInfo{From: from, To: candidate.Target, Event: event}, nil)

	if err := m.runActions(candidate.Actions, from, event); err != nil {
		return err
	}

	transitionsTotal.WithLabelValues(m.metricName(), from, candidate.Target, event).Inc()
	m.log.Debug("state changed", "from", from, "to", candidate.Target, "event", event)

	return m.enter(candidate.Target)
}

func (m *Machine[C]) enter(name string) *Error {
	m.state.Store(name)
	generation := m.mint()

	m.notify(KindEntry, nil, nil)

	state := m.config.States[name]

	if err := m.runActions(state.Entry, name, ""); err != nil {
		return err
	}

	if state.Job == nil {
		return m.complete(name, generation)
	}

	m.runJob(name, generation, state.Job)

	return nil
}

// mint starts a new generation and cancels the job scope of the previous one.
func (m *Machine[C]) mint() uint64 {
	if m.cancelScope != nil {
		m.cancelScope()
	}

	m.scope, m.cancelScope = context.WithCancel(m.lifetime)

	return m.generation.Inc()
}

func (m *Machine[C]) current(generation uint64) bool {
	return m.Status() == StatusActive && m.generation.Load() == generation
}

func (m *Machine[C]) runJob(name string, generation uint64, job *Job[C]) {
	m.notify(KindJob, nil, nil)

	ctx, span := startJobSpan(m.scope, m.name, m.id, name)
	started := time.Now()

	fut := startJob(ctx, m.runner, job, m.config.Context)
	m.jobs.add(generation, fut)

	supervisor, stopSupervisor := context.WithCancel(m.scope)
	m.supervise(supervisor, name, generation, fut)

	fut.OnResult(func(res future.Result[struct{}]) {
		stopSupervisor()
		jobDuration.WithLabelValues(m.metricName(), name).Observe(time.Since(started).Seconds())
		endSpan(span, res.Error)

		m.serial.do(func() {
			m.settle(name, generation, res.Error)
		})
	})
}

// supervise raises a time limit error if fut has not settled when the timer
// fires and its generation is still current.
func (m *Machine[C]) supervise(
	ctx context.Context,
	name string,
	generation uint64,
	fut *future.Future[struct{}],
) {
	timer, limit, ok := m.jobTimer()
	if !ok {
		return
	}

	go func() {
		if err := timer.Wait(ctx); err != nil || fut.IsDone() {
			return
		}

		m.serial.do(func() {
			if fut.IsDone() || !m.current(generation) {
				return
			}

			jobsTotal.WithLabelValues(m.metricName(), name, outcomeTimeout).Inc()
			m.contain(newError(CodeJobTimeLimitExceeded, name, "",
				m.opts.messages.jobTimeLimitExceeded(name, limit), nil))
		})
	}()
}

// jobTimer returns the timer supervising jobs and the limit it stands for,
// zero when an injected timer does not tell. ok is false when jobs are not
// supervised.
func (m *Machine[C]) jobTimer() (timer Timer, limit time.Duration, ok bool) {
	switch t := m.opts.timer.(type) {
	case nil:
		if m.opts.jobTimeout <= 0 {
			return nil, 0, false
		}

		return DurationTimer(m.opts.jobTimeout), m.opts.jobTimeout, true
	case DurationTimer:
		return t, time.Duration(t), true
	default:
		return t, 0, true
	}
}

func (m *Machine[C]) settle(name string, generation uint64, jobErr error) {
	if !m.current(generation) {
		jobsTotal.WithLabelValues(m.metricName(), name, outcomeStale).Inc()
		m.log.Debug("discarding stale job result", "state", name, "generation", generation, "error", jobErr)

		return
	}

	if jobErr != nil {
		jobsTotal.WithLabelValues(m.metricName(), name, outcomeError).Inc()
		m.contain(normalize(jobErr, name))

		return
	}

	jobsTotal.WithLabelValues(m.metricName(), name, outcomeSuccess).Inc()
	m.complete(name, generation)
}

// complete decides what happens once the work of a state is done: emit the
// next event, wait for one, or finish.
func (m *Machine[C]) complete(name string, generation uint64) *Error {
	state := m.config.States[name]

	emit, err := m.selectEmit(state.Emit, name)
	if err != nil {
		return m.contain(err)
	}

	if emit != nil {
		return m.emit(name, emit.Event)
	}

	if !state.Terminal() {
		m.notify(KindPending, nil, nil)

		return nil
	}

	pending := m.jobs.outstanding()
	if len(pending) == 0 {
		return m.finish()
	}

	m.log.Debug("waiting for outstanding jobs", "state", name, "jobs", len(pending))
	m.drain(name, generation, pending)

	return nil
}

// emit feeds an event synthesized by state. States without a job emit within
// the step that entered them, so a cycle of them is cut off after
// maxEmitDepth hops.
func (m *Machine[C]) emit(state, event string) *Error {
	if m.emitDepth >= maxEmitDepth {
		return m.contain(newError(CodeRuntimeError, state, event,
			fmt.Sprintf("State %q emitted %q after %d chained emits", state, event, m.emitDepth), ErrEmitLoop))
	}

	m.log.Debug("emitting event", "state", state, "event", event)

	m.emitDepth++
	defer func() { m.emitDepth-- }()

	return m.transition(event)
}

// drain finishes the machine once pending settles. The wait is bounded by the
// job timer: when it fires first a time limit error is raised and the machine
// finishes without the stragglers.
func (m *Machine[C]) drain(name string, generation uint64, pending []*future.Future[struct{}]) {
	ctx, cancel := context.WithCancel(m.lifetime)

	go func() {
		defer cancel()

		if err := future.WaitSettled(ctx, pending...); err != nil {
			return
		}

		m.serial.do(func() {
			if m.current(generation) {
				m.finish()
			}
		})
	}()

	timer, limit, ok := m.jobTimer()
	if !ok {
		return
	}

	go func() {
		if err := timer.Wait(ctx); err != nil {
			return
		}

		m.serial.do(func() {
			if !m.current(generation) || settled(pending) {
				return
			}

			m.contain(newError(CodeJobTimeLimitExceeded, name, "",
				m.opts.messages.jobTimeLimitExceeded(name, limit), nil))

			if m.current(generation) {
				m.finish()
			}
		})
	}()
}

func settled(futures []*future.Future[struct{}]) bool {
	for _, fut := range futures {
		if !fut.IsDone() {
			return false
		}
	}

	return true
}

func (m *Machine[C]) finish() *Error {
	m.log.Info("state machine finished", "state", m.StateName())
	m.notify(KindFinish, nil, nil)

	return m.stop()
}

// contain reports err and, unless disabled, stops the machine. Errors raised
// after the machine stopped are only logged.
func (m *Machine[C]) contain(err *Error) *Error {
	if m.Status() == StatusStopped {
		m.log.Debug("suppressing error of stopped machine", "error", err)

		return err
	}

	errorsTotal.WithLabelValues(m.metricName(), err.Code.String()).Inc()
	m.log.Warn("state machine error", "error", logger.AnnotateError(err,
		"code", err.Code.String(),
		"state", err.State,
		"event", err.Event))

	m.notify(KindError, nil, err)

	if m.opts.stopOnError {
		m.stop()
	}

	return err
}

func (m *Machine[C]) notify(kind Kind, info *TransitionInfo, err *Error) {
	m.events.Emit(kind, Notification[C]{
		Kind:       kind,
		MachineID:  m.id,
		State:      m.StateName(),
		Context:    m.config.Context,
		Transition: info,
		Err:        err,
	})
}

func (m *Machine[C]) selectTransition(candidates []Transition[C], state, event string) (*Transition[C], *Error) {
	for i := range candidates {
		passed, err := m.check(candidates[i].Guard, state)
		if err != nil {
			if err.Event == "" {
				err.Event = event
			}

			return nil, err
		}

		if passed {
			return &candidates[i], nil
		}
	}

	return nil, nil
}

func (m *Machine[C]) selectEmit(candidates []Emit[C], state string) (*Emit[C], *Error) {
	for i := range candidates {
		passed, err := m.check(candidates[i].Guard, state)
		if err != nil {
			return nil, err
		}

		if passed {
			return &candidates[i], nil
		}
	}

	return nil, nil
}

func (m *Machine[C]) check(guard Guard[C], state string) (passed bool, err *Error) {
	if guard == nil {
		return true, nil
	}

	defer func() {
		if r := recover(); r != nil {
			passed, err = false, normalize(r, state)
		}
	}()

	return guard(m.config.Context, state), nil
}

// runActions runs actions in order. The first panic is contained and aborts
// the rest.
func (m *Machine[C]) runActions(actions []Action[C], state, event string) *Error {
	for _, action := range actions {
		if err := m.call(action, state); err != nil {
			if err.Event == "" {
				err.Event = event
			}

			return m.contain(err)
		}
	}

	return nil
}

func (m *Machine[C]) call(action Action[C], state string) (err *Error) {
	if action == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = normalize(r, state)
		}
	}()

	action(m.config.Context, state)

	return nil
}
