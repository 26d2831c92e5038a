package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Resyncer is implemented by MirrorWorker.
type Resyncer interface {
	Resync(ctx context.Context) (ResyncStats, error)
}

// Reconciler runs a full mirror resync on a fixed interval, as a safety net
// for events the broker never delivered.
type Reconciler struct {
	worker   Resyncer
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReconciler(worker Resyncer, interval time.Duration) *Reconciler {
	return &Reconciler{worker: worker, interval: interval}
}

// Start begins the loop. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %v", r.interval)
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror reconciler started", "interval", r.interval)
	return nil
}

// Stop signals the loop and waits for the current pass to finish.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Mirror reconciler stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror reconciler stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reconciler) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.worker.Resync(ctx); err != nil {
				slog.ErrorContext(ctx, "Mirror reconcile failed", "error", err)
			}
		}
	}
}
