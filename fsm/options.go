package fsm

import (
	"log/slog"
	"time"

	"github.com/alitto/pond/v2"
)

// Option configures a Machine.
type Option func(*options)

type options struct {
	id          string
	jobTimeout  time.Duration
	stopOnError bool
	timer       Timer
	messages    ErrorMessages
	logger      *slog.Logger
	pool        pond.Pool
}

func defaultOptions() *options {
	settings := DefaultSettings()

	return &options{
		jobTimeout:  settings.JobTimeout,
		stopOnError: settings.StopOnError,
	}
}

// WithJobTimeout sets how long a job may run before a time limit error is
// raised. Zero disables the limit.
func WithJobTimeout(d time.Duration) Option {
	return func(o *options) {
		o.jobTimeout = d
	}
}

// WithStopOnError controls whether a contained error stops the machine.
func WithStopOnError(stop bool) Option {
	return func(o *options) {
		o.stopOnError = stop
	}
}

// WithTimer supervises jobs with t instead of a fixed duration timer.
func WithTimer(t Timer) Option {
	return func(o *options) {
		o.timer = t
	}
}

// WithErrorMessages overrides the text of the machine's errors.
func WithErrorMessages(m ErrorMessages) Option {
	return func(o *options) {
		o.messages = m
	}
}

// WithLogger sets the logger. It defaults to logger.Get().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithPool runs jobs on pool instead of a goroutine each.
func WithPool(pool pond.Pool) Option {
	return func(o *options) {
		o.pool = pool
	}
}

// WithID sets the machine ID. It defaults to a random UUID.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithSettings applies the job timeout and stop-on-error flag from s.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.jobTimeout = s.JobTimeout
		o.stopOnError = s.StopOnError
	}
}
