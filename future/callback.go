package future

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/amp-labs/amp-fsm/logger"
)

// ErrPanicRecovery marks errors that were produced from a recovered panic.
var ErrPanicRecovery = errors.New("panic recovered")

// invokeCallback runs a callback on its own goroutine, recovering and logging panics
// so a misbehaving callback can never take down the fulfilling goroutine.
func invokeCallback[T any](kind string, callback func(T), value T) {
	if callback == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Get().Error("panic encountered in future."+kind+" callback",
					"error", recoveredError(r, debug.Stack()))
			}
		}()

		callback(value)
	}()
}

// recoveredError converts a recovered panic value and stack trace into an error
// wrapping ErrPanicRecovery.
func recoveredError(r any, stack []byte) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w\nstack trace:\n%s", ErrPanicRecovery, err, string(stack))
	}

	return fmt.Errorf("%w: %v\nstack trace:\n%s", ErrPanicRecovery, r, string(stack))
}
