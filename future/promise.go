package future

import "go.uber.org/atomic"

// Promise represents the write-only side of an asynchronous computation.
//
// A promise can only be fulfilled once. Later calls to Success, Failure or
// Complete are ignored, which makes it safe to race several completion paths
// against each other. Fulfillment is safe from any goroutine.
type Promise[T any] struct {
	future  *Future[T]
	settled atomic.Bool
}

// fulfill stores the result, wakes every waiter and fires the registered callbacks.
func (p *Promise[T]) fulfill(result Result[T]) bool {
	fulfilled := false

	p.future.once.Do(func() {
		fulfilled = true

		p.future.mu.Lock()
		p.future.result = result
		close(p.future.resultReady)

		callbacks := p.future.callbacks
		p.future.callbacks = nil
		p.future.mu.Unlock()

		p.settled.Store(true)

		for _, callback := range callbacks {
			invokeCallback("OnResult", callback, result)
		}
	})

	return fulfilled
}

// Success fulfills the promise with a value. It reports whether this call settled the promise.
func (p *Promise[T]) Success(value T) bool {
	return p.fulfill(Result[T]{Value: value})
}

// Failure fulfills the promise with an error. It reports whether this call settled the promise.
func (p *Promise[T]) Failure(err error) bool {
	var zero T

	return p.fulfill(Result[T]{Value: zero, Error: err})
}

// Complete fulfills the promise from a (value, error) pair.
func (p *Promise[T]) Complete(value T, err error) bool {
	if err != nil {
		return p.Failure(err)
	}

	return p.Success(value)
}

// IsSettled reports whether the promise has already been fulfilled.
func (p *Promise[T]) IsSettled() bool {
	return p.settled.Load()
}

// Future returns the read side of this promise.
func (p *Promise[T]) Future() *Future[T] {
	return p.future
}
