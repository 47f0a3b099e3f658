package service

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// runner owns a single invocation of a RunFunc and its cancellation.
type runner struct {
	runFunc RunFunc

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// start runs runFunc in its own goroutine under a cancellable child of ctx.
// The returned channel receives runFunc's result.
func (r *runner) start(ctx context.Context) <-chan error {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.cancel = cancel
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- r.runFunc(ctx)
	}()
	return done
}

// Stop cancels the running RunFunc. It is safe to call more than once and
// before start.
func (r *runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil
	}
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

// untilSignal waits for done. The first signal stops the RunFunc; a second
// one abandons the wait and returns nil.
func (r *runner) untilSignal(log zerolog.Logger, done <-chan error, signals <-chan os.Signal) error {
	select {
	case err := <-done:
		return err
	case sig := <-signals:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	r.Stop()

	select {
	case err := <-done:
		return err
	case sig := <-signals:
		log.Warn().Str("signal", sig.String()).Msg("Received second signal, forcing exit")
		return nil
	}
}
