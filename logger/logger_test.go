package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))

		out = append(out, rec)
	}

	return out
}

func TestGet(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "test",
		JSON:      true,
		MinLevel:  slog.LevelDebug,
		Output:    &buf,
	})

	Get().Info("default subsystem")

	ctx := WithSubsystem(t.Context(), "overridden")
	ctx = With(ctx, "machine", "door")
	Get(ctx).Info("with values")

	Get(WithMuted(ctx, true)).Error("never written")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)

	assert.Equal(t, "test", records[0]["subsystem"])
	assert.Equal(t, "overridden", records[1]["subsystem"])
	assert.Equal(t, "door", records[1]["machine"])
}

func TestWith_DoesNotAliasParent(t *testing.T) { //nolint:paralleltest
	base := With(t.Context(), "a", 1)
	left := With(base, "b", 2)
	right := With(base, "c", 3)

	assert.Equal(t, []any{"a", 1, "b", 2}, getValues(left))
	assert.Equal(t, []any{"a", 1, "c", 3}, getValues(right))
	assert.Same(t, base, With(base))
}

func TestAnnotateError(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "test",
		JSON:      true,
		Output:    &buf,
	})

	cause := errors.New("boom")
	err := AnnotateError(cause, "state", "loading")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "boom", err.Error())
	require.NoError(t, AnnotateError(nil, "state", "loading"))

	Get().Warn("job failed", "error", err)

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "loading", records[0]["state"])
	assert.Equal(t, "boom", records[0]["error"])
}

func TestAnnotateError_NestedAndJoined(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "test",
		JSON:      true,
		Output:    &buf,
	})

	inner := AnnotateError(errors.New("boom"), "state", "loading", "attempt", 2)
	outer := AnnotateError(fmt.Errorf("retrying: %w", inner), "state", "retrying")
	joined := errors.Join(outer, AnnotateError(errors.New("other"), "machine", "door"))

	Get().Warn("job failed", "error", joined)

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "retrying", records[0]["state"])
	assert.InDelta(t, 2, records[0]["attempt"], 0)
	assert.Equal(t, "door", records[0]["machine"])
	assert.Equal(t, "retrying: boom\nother", records[0]["error"])
}

func TestConfigureLogging_InvalidOutput(t *testing.T) {
	t.Setenv("LOG_OUTPUT", "printer")

	_, err := ConfigureLogging("test")
	require.ErrorIs(t, err, ErrInvalidLogOutput)
}

func TestConfigureLogging_Level(t *testing.T) {
	var buf bytes.Buffer

	t.Setenv("LOG_JSON", "true")
	t.Setenv("LOG_LEVEL", "warn")

	logger, err := ConfigureLogging("test", WithOutput(&buf))
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0]["msg"])
}
