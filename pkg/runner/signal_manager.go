package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ErrInterrupted is the cancellation cause recorded when an OS signal stops a run.
var ErrInterrupted = errors.New("interrupted")

// SignalManager cancels a derived context when the process receives one of
// its signals (SIGINT and SIGTERM by default).
type SignalManager struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	sigs   chan os.Signal
	done   chan struct{}
	once   sync.Once
}

// NewSignalManager subscribes to sigs and returns a manager whose context is
// a child of parent.
func NewSignalManager(parent context.Context, sigs ...os.Signal) *SignalManager {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, cancel := context.WithCancelCause(parent)
	sm := &SignalManager{
		ctx:    ctx,
		cancel: cancel,
		sigs:   make(chan os.Signal, 1),
		done:   make(chan struct{}),
	}
	signal.Notify(sm.sigs, sigs...)
	go sm.wait()
	return sm
}

func (sm *SignalManager) wait() {
	select {
	case sig := <-sm.sigs:
		sm.cancel(fmt.Errorf("%w by %s", ErrInterrupted, sig))
	case <-sm.ctx.Done():
	case <-sm.done:
	}
}

// Context is cancelled by a signal, by the parent, or by Stop.
// context.Cause wraps ErrInterrupted in the first case.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Stop unsubscribes from the signals and cancels the context. It is safe to
// call more than once.
func (sm *SignalManager) Stop() {
	sm.once.Do(func() {
		signal.Stop(sm.sigs)
		close(sm.done)
		sm.cancel(context.Canceled)
	})
}
