package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTicker struct {
	deltas []time.Duration
	failAt int
	cancel context.CancelFunc
	stopAt int
}

func (r *recordingTicker) Tick(ctx context.Context, delta time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.deltas = append(r.deltas, delta)
	if r.failAt > 0 && len(r.deltas) == r.failAt {
		return errors.New("boom")
	}
	if r.stopAt > 0 && len(r.deltas) == r.stopAt {
		r.cancel()
	}
	return nil
}

func TestRunner_MaxFramesFixedStep(t *testing.T) {
	var seen []uint64
	r := NewRunner(
		WithMaxFrames(3),
		WithFixedStep(16*time.Millisecond),
		WithFrameHook(func(f uint64) { seen = append(seen, f) }),
	)
	tk := &recordingTicker{}

	frames, err := r.Run(context.Background(), tk)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), frames)
	assert.Equal(t, []uint64{0, 1, 2}, seen)
	assert.Equal(t, []time.Duration{16 * time.Millisecond, 16 * time.Millisecond, 16 * time.Millisecond}, tk.deltas)
}

func TestRunner_MeasuredDelta(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time {
		now = now.Add(10 * time.Millisecond)
		return now
	}
	r := NewRunner(WithMaxFrames(2), WithClock(clock))
	tk := &recordingTicker{}

	_, err := r.Run(context.Background(), tk)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, tk.deltas)
}

func TestRunner_TickError(t *testing.T) {
	r := NewRunner(WithMaxFrames(10))
	frames, err := r.Run(context.Background(), &recordingTicker{failAt: 2})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, uint64(1), frames)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tk := &recordingTicker{cancel: cancel, stopAt: 4}

	frames, err := NewRunner().Run(ctx, tk)
	require.NoError(t, err, "cancellation is a graceful stop")
	assert.Equal(t, uint64(4), frames)
}

func TestRunner_Rate(t *testing.T) {
	r := NewRunner(WithRate(200), WithMaxFrames(3))
	start := time.Now()
	frames, err := r.Run(context.Background(), &recordingTicker{})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), frames)
	assert.GreaterOrEqual(t, time.Since(start), 9*time.Millisecond)
}

func TestRunner_RateHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	frames, err := NewRunner(WithRate(1)).Run(ctx, &recordingTicker{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), frames)
}
