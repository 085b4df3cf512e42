package fsm

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestMetrics_JobOutcomes(t *testing.T) {
	t.Parallel()

	const name = "metrics-job-outcomes"

	release := make(chan struct{})

	cfg := Config[*counter]{
		Name:    name,
		Initial: "working",
		Context: &counter{},
		States: map[string]State[*counter]{
			"working": {
				Job: JobFunc(func(context.Context, *counter) error {
					<-release

					return errors.New("broken")
				}),
				On: map[string][]Transition[*counter]{"RESET": {{Target: "working"}}},
			},
		},
	}

	m, err := New(cfg, WithLogger(quietLogger()), WithJobTimeout(0), WithStopOnError(false))
	require.NoError(t, err)

	require.NoError(t, m.Start())
	assert.InDelta(t, 1, testutil.ToFloat64(machinesActive.WithLabelValues(name)), 0)

	require.NoError(t, m.Transition("RESET"))
	assert.InDelta(t, 1, testutil.ToFloat64(transitionsTotal.WithLabelValues(name, "working", "working", "RESET")), 0)

	close(release)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(jobsTotal.WithLabelValues(name, "working", outcomeStale)) == 1 &&
			testutil.ToFloat64(jobsTotal.WithLabelValues(name, "working", outcomeError)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(errorsTotal.WithLabelValues(name, "runtime_error")), 0)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(jobDuration, "fsm_job_duration_seconds"), 1)

	require.NoError(t, m.Stop())
	assert.InDelta(t, 0, testutil.ToFloat64(machinesActive.WithLabelValues(name)), 0)
}

func TestMetrics_Timeout(t *testing.T) {
	t.Parallel()

	const name = "metrics-timeout"

	cfg := Config[*counter]{
		Name:    name,
		Initial: "slow",
		Context: &counter{},
		States: map[string]State[*counter]{
			"slow": {
				Job: JobFunc(func(ctx context.Context, _ *counter) error {
					<-ctx.Done()

					return ctx.Err()
				}),
				On: map[string][]Transition[*counter]{"NEXT": {{}}},
			},
		},
	}

	m, err := New(cfg, WithLogger(quietLogger()), WithJobTimeout(5*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, m.Start())

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("machine did not stop after the time limit")
	}

	assert.InDelta(t, 1, testutil.ToFloat64(jobsTotal.WithLabelValues(name, "slow", outcomeTimeout)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(errorsTotal.WithLabelValues(name, "job_time_limit_exceeded")), 0)
}

func TestSanitizeMachine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unnamed", sanitizeMachine(""))
	assert.Equal(t, "door", sanitizeMachine("door"))
}
