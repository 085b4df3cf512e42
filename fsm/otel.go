package fsm

import (
	"context"
	"strconv"

	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/amp-labs/amp-fsm/fsm"

// startTransitionSpan opens the span of one resolved state change. The caller
// ends it.
//
//nolint:spancheck
func startTransitionSpan(
	ctx context.Context,
	machine, machineID, from, to, event string,
) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fsm.transition")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("machine_id_hash", hashID(machineID)),
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.String("event", event),
	)

	return ctx, span
}

// startJobSpan opens the span of a state's job. The returned context is the
// one handed to the job.
//
//nolint:spancheck
func startJobSpan(ctx context.Context, machine, machineID, state string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fsm.job")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("machine_id_hash", hashID(machineID)),
		attribute.String("state", state),
	)

	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// hashID shortens an ID for span attributes.
func hashID(id string) string {
	if id == "" {
		return ""
	}

	return strconv.FormatUint(xxh3.HashString(id), 16)
}
