package logger

import (
	"context"
	"errors"
	"log/slog"
)

// ErrInvalidLogOutput is returned when LOG_OUTPUT names an unknown destination.
var ErrInvalidLogOutput = errors.New("invalid log output")

// AnnotateError attaches slog key-value pairs to err. When the error is later
// logged through a logger configured by this package, the pairs show up as
// attributes of the record. Returns nil if err is nil.
//
//	return logger.AnnotateError(err, "state", state, "event", event)
//
// Annotations survive wrapping and errors.Join. When the same key is annotated
// more than once, the outermost value wins.
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	return &annotatedError{error: err, attrs: slog.Group("", args...).Value.Group()}
}

type annotatedError struct {
	error

	attrs []slog.Attr
}

func (a *annotatedError) Unwrap() error { return a.error }

// annotations collects the attributes of every annotated error in err's tree,
// outermost first.
func annotations(err error) []slog.Attr {
	var (
		attrs []slog.Attr
		seen  = map[string]bool{}
		visit func(error)
	)

	visit = func(err error) {
		if err == nil {
			return
		}

		if a, ok := err.(*annotatedError); ok { //nolint:errorlint
			for _, attr := range a.attrs {
				if !seen[attr.Key] {
					seen[attr.Key] = true
					attrs = append(attrs, attr)
				}
			}
		}

		switch u := err.(type) { //nolint:errorlint
		case interface{ Unwrap() error }:
			visit(u.Unwrap())
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				visit(inner)
			}
		}
	}

	visit(err)

	return attrs
}

// annotationHandler lifts the annotations of logged errors into the record.
type annotationHandler struct {
	next slog.Handler
}

var _ slog.Handler = (*annotationHandler)(nil)

func (h *annotationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *annotationHandler) Handle(ctx context.Context, record slog.Record) error {
	var extra []slog.Attr

	record.Attrs(func(attr slog.Attr) bool {
		if err, ok := attr.Value.Any().(error); ok {
			extra = append(extra, annotations(err)...)
		}

		return true
	})

	if len(extra) == 0 {
		return h.next.Handle(ctx, record)
	}

	annotated := record.Clone()
	annotated.AddAttrs(extra...)

	return h.next.Handle(ctx, annotated)
}

func (h *annotationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &annotationHandler{next: h.next.WithAttrs(attrs)}
}

func (h *annotationHandler) WithGroup(name string) slog.Handler {
	return &annotationHandler{next: h.next.WithGroup(name)}
}
