package fsm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringer struct{}

func (stringer) String() string { return "from stringer" }

func TestNormalize(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	existing := newError(CodeInvalidEventType, "idle", "KNOCK", "bad event", nil)

	tests := []struct {
		name    string
		value   any
		code    Code
		message string
		adopted *Error
		cause   error
	}{
		{name: "fsm error", value: existing, code: CodeInvalidEventType, adopted: existing},
		{name: "wrapped fsm error", value: fmt.Errorf("wrapped: %w", existing), code: CodeInvalidEventType, adopted: existing},
		{name: "error", value: cause, code: CodeRuntimeError, message: "disk full", cause: cause},
		{name: "string", value: "plain text", code: CodeRuntimeError, message: "plain text"},
		{name: "stringer", value: stringer{}, code: CodeRuntimeError, message: "from stringer"},
		{name: "unknown", value: 42, code: CodeRuntimeError, message: "unknown error"},
		{name: "nil fsm error", value: (*Error)(nil), code: CodeRuntimeError, message: "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := normalize(tt.value, "loading")
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)

			if tt.adopted != nil {
				assert.NotSame(t, tt.adopted, got)
				assert.Equal(t, tt.adopted.Message, got.Message)
				assert.Equal(t, tt.adopted.State, got.State)
				assert.Equal(t, tt.adopted.Event, got.Event)
				require.ErrorIs(t, got, tt.value.(error)) //nolint:forcetypeassert
				require.ErrorIs(t, got, ErrInvalidEventType)

				return
			}

			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, "loading", got.State)
			require.ErrorIs(t, got, ErrRuntime)

			if tt.cause != nil {
				require.ErrorIs(t, got, tt.cause)
			}
		})
	}
}

func TestNormalize_FillsMissingState(t *testing.T) {
	t.Parallel()

	owned := &Error{Code: CodeRuntimeError, Message: "owned"}

	got := normalize(owned, "loading")
	got.Event = "GO"

	assert.Equal(t, "loading", got.State)
	assert.Empty(t, owned.State)
	assert.Empty(t, owned.Event)
}

func TestError_UnwrapsToSentinel(t *testing.T) {
	t.Parallel()

	sentinels := map[Code]error{
		CodeUnsupportedTransitions: ErrUnsupportedTransitions,
		CodeInvalidEventType:       ErrInvalidEventType,
		CodeNoTransitionObject:     ErrNoTransitionObject,
		CodeJobTimeLimitExceeded:   ErrJobTimeLimitExceeded,
		CodeRuntimeError:           ErrRuntime,
	}

	for code, sentinel := range sentinels {
		err := error(newError(code, "s", "e", "message", nil))

		require.ErrorIs(t, err, sentinel, code.String())
		assert.Equal(t, "message", err.Error())

		fsmErr, ok := AsError(fmt.Errorf("context: %w", err))
		require.True(t, ok)
		assert.Equal(t, code, fsmErr.Code)
	}

	_, ok := AsError(errors.New("other"))
	assert.False(t, ok)
}

func TestCodeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unsupported_transitions", CodeUnsupportedTransitions.String())
	assert.Equal(t, "invalid_event_type", CodeInvalidEventType.String())
	assert.Equal(t, "no_transition_object", CodeNoTransitionObject.String())
	assert.Equal(t, "job_time_limit_exceeded", CodeJobTimeLimitExceeded.String())
	assert.Equal(t, "runtime_error", CodeRuntimeError.String())
	assert.Equal(t, "code(99)", Code(99).String())

	assert.Equal(t, 10, int(CodeUnsupportedTransitions))
	assert.Equal(t, 20, int(CodeInvalidEventType))
	assert.Equal(t, 40, int(CodeJobTimeLimitExceeded))
	assert.Equal(t, 50, int(CodeRuntimeError))
}
