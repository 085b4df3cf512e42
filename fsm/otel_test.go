package fsm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))

	oldProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(oldProvider)
		_ = tp.Shutdown(context.Background())
	})

	return exporter
}

func spansOf(exporter *tracetest.InMemoryExporter, machine, name string) tracetest.SpanStubs {
	var spans tracetest.SpanStubs

	for _, span := range exporter.GetSpans() {
		if span.Name != name {
			continue
		}

		for _, attr := range span.Attributes {
			if attr.Key == "machine" && attr.Value.AsString() == machine {
				spans = append(spans, span)
			}
		}
	}

	return spans
}

//nolint:paralleltest
func TestTracing_TransitionAndJobSpans(t *testing.T) {
	exporter := setupTestTracer(t)

	const name = "tracing-spans"

	cfg := Config[*counter]{
		Name:    name,
		Initial: "idle",
		Context: &counter{},
		States: map[string]State[*counter]{
			"idle": {On: map[string][]Transition[*counter]{"FETCH": {{Target: "fetching"}}}},
			"fetching": {
				Job: JobFunc(func(context.Context, *counter) error {
					return errors.New("upstream unavailable")
				}),
				On: map[string][]Transition[*counter]{"RETRY": {{Target: "fetching"}}},
			},
		},
	}

	m, err := New(cfg, WithLogger(quietLogger()), WithID("machine-1"), WithStopOnError(false))
	require.NoError(t, err)

	require.NoError(t, m.Start())
	require.NoError(t, m.Transition("FETCH"))

	require.Eventually(t, func() bool {
		return len(spansOf(exporter, name, "fsm.job")) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop())

	transitions := spansOf(exporter, name, "fsm.transition")
	require.Len(t, transitions, 1)

	attrs := transitions[0].Attributes
	assert.Contains(t, attrs, attribute.String("from", "idle"))
	assert.Contains(t, attrs, attribute.String("to", "fetching"))
	assert.Contains(t, attrs, attribute.String("event", "FETCH"))
	assert.Contains(t, attrs, attribute.String("machine_id_hash", hashID("machine-1")))
	assert.Equal(t, codes.Ok, transitions[0].Status.Code)

	job := spansOf(exporter, name, "fsm.job")[0]
	assert.Contains(t, job.Attributes, attribute.String("state", "fetching"))
	assert.Equal(t, codes.Error, job.Status.Code)
	assert.Equal(t, "upstream unavailable", job.Status.Description)
	require.NotEmpty(t, job.Events, "the job error is recorded on the span")
}

func TestHashID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, hashID(""))
	assert.Equal(t, hashID("machine-1"), hashID("machine-1"))
	assert.NotEqual(t, hashID("machine-1"), hashID("machine-2"))
}
