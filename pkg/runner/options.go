package runner

import (
	"log/slog"
	"time"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithRate sets the target frame rate in Hz.
func WithRate(hz int) Option {
	return func(r *Runner) {
		r.Rate = hz
	}
}

// WithFixedStep hands every frame the same delta.
func WithFixedStep(d time.Duration) Option {
	return func(r *Runner) {
		r.FixedStep = d
	}
}

// WithMaxFrames stops the runner after n frames.
func WithMaxFrames(n uint64) Option {
	return func(r *Runner) {
		r.MaxFrames = n
	}
}

// WithSignals stops the runner on SIGINT/SIGTERM.
func WithSignals(enabled bool) Option {
	return func(r *Runner) {
		r.Signals = enabled
	}
}

// WithFrameHook registers a callback run after each frame.
func WithFrameHook(fn func(frame uint64)) Option {
	return func(r *Runner) {
		r.OnFrame = fn
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithClock replaces the wall clock used to measure frame deltas.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}
