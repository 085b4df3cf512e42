package fsm

import (
	"context"
	"time"
)

// Timer supervises a running job. Wait returns nil once the time limit is
// reached, or ctx.Err() if ctx is cancelled first. The machine cancels ctx
// when the job settles, its state is left or the machine stops.
type Timer interface {
	Wait(ctx context.Context) error
}

// TimerFunc adapts a function to Timer.
type TimerFunc func(ctx context.Context) error

func (f TimerFunc) Wait(ctx context.Context) error {
	return f(ctx)
}

// DurationTimer fires after a fixed duration.
type DurationTimer time.Duration

func (d DurationTimer) Wait(ctx context.Context) error {
	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
