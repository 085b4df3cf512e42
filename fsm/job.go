package fsm

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-fsm/future"
)

// CompletionMode declares which channel completes a job.
type CompletionMode int

const (
	// CompleteOnReturn completes the job when Run returns nil.
	CompleteOnReturn CompletionMode = iota
	// CompleteOnSignal completes the job only when Signal.Done is called.
	// Run returning nil is not completion; returning an error still fails the job.
	CompleteOnSignal
)

func (m CompletionMode) String() string {
	switch m {
	case CompleteOnReturn:
		return "on_return"
	case CompleteOnSignal:
		return "on_signal"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m CompletionMode) valid() bool {
	return m == CompleteOnReturn || m == CompleteOnSignal
}

// Job is the background work of a state.
//
// The ctx handed to Run is cancelled once the state that started the job is
// left or the machine stops. Honoring it is up to the job; the machine never
// waits for a cancelled job.
type Job[C any] struct {
	Mode CompletionMode
	Run  func(ctx context.Context, c C, sig *Signal) error
}

// JobFunc builds a job that completes when fn returns.
func JobFunc[C any](fn func(ctx context.Context, c C) error) *Job[C] {
	return &Job[C]{
		Mode: CompleteOnReturn,
		Run: func(ctx context.Context, c C, _ *Signal) error {
			return fn(ctx, c)
		},
	}
}

// SignalJob builds a job that completes when it calls sig.Done. The job may
// hand sig to other goroutines and return early.
func SignalJob[C any](fn func(ctx context.Context, c C, sig *Signal) error) *Job[C] {
	return &Job[C]{
		Mode: CompleteOnSignal,
		Run:  fn,
	}
}

// Signal settles a running job. Only the first call to Done or Fail counts.
type Signal struct {
	promise *future.Promise[struct{}]
}

// Done completes the job successfully.
func (s *Signal) Done() {
	s.promise.Success(struct{}{})
}

// Fail completes the job with err.
func (s *Signal) Fail(err error) {
	if err == nil {
		err = errJobFailed
	}

	s.promise.Failure(err)
}

var errJobFailed = errors.New("job failed")

// jobRunner starts jobs on their own goroutine or on a pool.
type jobRunner struct {
	pool pond.Pool
}

// startJob runs job and returns a future that settles according to its mode.
func startJob[C any](ctx context.Context, r jobRunner, job *Job[C], c C) *future.Future[struct{}] {
	fut, promise := future.New[struct{}]()
	sig := &Signal{promise: promise}

	task := func() {
		defer func() {
			if p := recover(); p != nil {
				promise.Failure(fmt.Errorf("job panicked: %v\n%s", p, debug.Stack()))
			}
		}()

		err := job.Run(ctx, c, sig)

		switch {
		case err != nil:
			promise.Failure(err)
		case job.Mode == CompleteOnReturn:
			promise.Success(struct{}{})
		}
	}

	if r.pool == nil {
		go task()

		return fut
	}

	if err := r.pool.Go(task); err != nil {
		promise.Failure(fmt.Errorf("submitting job: %w", err))
	}

	return fut
}
