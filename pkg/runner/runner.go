package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/weft/internal/logging"
)

// Ticker advances a set of graph instances by one frame.
// *runtime.Host implements it.
type Ticker interface {
	Tick(ctx context.Context, delta time.Duration) error
}

// Runner drives a Ticker frame by frame until the context is done or the
// frame budget is spent.
type Runner struct {
	// Rate is the target frame rate in Hz. Zero runs frames back to back.
	Rate int

	// FixedStep, when set, is the delta handed to every frame instead of the
	// measured wall-clock time. Combined with Rate 0 it makes runs deterministic.
	FixedStep time.Duration

	// MaxFrames stops the loop after that many frames. Zero means unbounded.
	MaxFrames uint64

	// Signals makes SIGINT/SIGTERM stop the loop gracefully.
	Signals bool

	// OnFrame is called after each frame with its zero-based number.
	OnFrame func(frame uint64)

	// Logger is used for lifecycle logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	now func() time.Time
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run ticks t until ctx is done, an OS signal arrives (with Signals set), the
// frame budget is spent or Tick fails. It returns the number of frames run.
// Stopping through ctx or a signal is not an error.
func (r *Runner) Run(ctx context.Context, t Ticker) (uint64, error) {
	if r.Signals {
		signals := NewSignalManager(ctx)
		defer signals.Stop()
		ctx = signals.Context()
	}

	var ticker *time.Ticker
	if r.Rate > 0 {
		ticker = time.NewTicker(time.Second / time.Duration(r.Rate))
		defer ticker.Stop()
	}

	r.Logger.Debug("runner started", "rate", r.Rate, "max_frames", r.MaxFrames)
	var frames uint64
	last := r.now()
	for r.MaxFrames == 0 || frames < r.MaxFrames {
		if ticker != nil && frames > 0 {
			select {
			case <-ctx.Done():
				return frames, r.stopped(ctx, frames)
			case <-ticker.C:
			}
		}
		if ctx.Err() != nil {
			return frames, r.stopped(ctx, frames)
		}

		now := r.now()
		delta := now.Sub(last)
		last = now
		if r.FixedStep > 0 {
			delta = r.FixedStep
		}

		if err := t.Tick(ctx, delta); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return frames, r.stopped(ctx, frames)
			}
			return frames, err
		}
		if r.OnFrame != nil {
			r.OnFrame(frames)
		}
		frames++
	}
	r.Logger.Debug("runner finished", "frames", frames)
	return frames, nil
}

func (r *Runner) stopped(ctx context.Context, frames uint64) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrInterrupted) {
		r.Logger.Info("received interrupt signal, stopping", "frames", frames, "reason", cause)
		return nil
	}
	r.Logger.Debug("runner stopped", "frames", frames, "reason", cause)
	return nil
}
