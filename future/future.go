// Package future provides a single-shot Future/Promise pair.
//
// A Future is the read side of an asynchronous computation and a Promise is the
// write side. The state machine uses them as the completion signal of a state's
// job: whichever channel settles the promise first wins, later attempts are ignored.
package future

import (
	"context"
	"runtime/debug"
	"sync"
)

// Future represents the read-only side of an asynchronous computation.
//
// Key guarantees:
//   - A future settles exactly once (success or failure)
//   - Any number of goroutines may wait on it concurrently
//   - Callbacks registered after settlement are still invoked
type Future[T any] struct {
	once        sync.Once
	mu          sync.Mutex
	result      Result[T]
	resultReady chan struct{}
	callbacks   []func(Result[T])
}

// New creates an unsettled future and the promise that settles it.
//
// Example:
//
//	fut, promise := future.New[string]()
//	go func() {
//	    promise.Success("done")
//	}()
//	value, err := fut.Await()
func New[T any]() (*Future[T], *Promise[T]) {
	fut := &Future[T]{
		resultReady: make(chan struct{}),
	}

	return fut, &Promise[T]{future: fut}
}

// Go runs f on a new goroutine and returns a future for its result.
// A panic inside f is recovered and turned into a failure.
func Go[T any](f func() (T, error)) *Future[T] {
	fut, promise := New[T]()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				promise.Failure(recoveredError(r, debug.Stack()))
			}
		}()

		promise.Complete(f())
	}()

	return fut
}

// GoContext is Go with a context handed to f.
func GoContext[T any](ctx context.Context, f func(ctx context.Context) (T, error)) *Future[T] {
	return Go(func() (T, error) {
		return f(ctx)
	})
}

// Await blocks until the future settles and returns its value and error.
func (f *Future[T]) Await() (T, error) { //nolint:ireturn
	<-f.resultReady

	return f.result.Get()
}

// AwaitContext blocks until the future settles or ctx is done, whichever comes
// first. When ctx wins, the zero value and ctx.Err() are returned and the future
// keeps running.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) { //nolint:ireturn
	select {
	case <-f.resultReady:
		return f.result.Get()
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// Done returns a channel that is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.resultReady
}

// IsDone reports whether the future has settled.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.resultReady:
		return true
	default:
		return false
	}
}

// Result returns the settled result. It returns false if the future is still pending.
func (f *Future[T]) Result() (Result[T], bool) {
	if !f.IsDone() {
		return Result[T]{}, false
	}

	return f.result, true
}

// OnResult registers a callback that receives the result once the future settles.
// Callbacks run on their own goroutine; a panicking callback is recovered and logged.
func (f *Future[T]) OnResult(callback func(Result[T])) {
	if callback == nil {
		return
	}

	f.mu.Lock()

	if !f.IsDone() {
		f.callbacks = append(f.callbacks, callback)
		f.mu.Unlock()

		return
	}

	f.mu.Unlock()

	invokeCallback("OnResult", callback, f.result)
}

// OnSuccess registers a callback that only runs when the future succeeds.
func (f *Future[T]) OnSuccess(callback func(T)) {
	if callback == nil {
		return
	}

	f.OnResult(func(r Result[T]) {
		if r.IsSuccess() {
			callback(r.Value)
		}
	})
}

// OnError registers a callback that only runs when the future fails.
func (f *Future[T]) OnError(callback func(error)) {
	if callback == nil {
		return
	}

	f.OnResult(func(r Result[T]) {
		if r.IsFailure() {
			callback(r.Error)
		}
	})
}
