// internal/app/system/workers/maintenance.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/store/oauthstate"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"go.uber.org/zap"
)

// Maintenance is a background worker that purges finished outbox tasks,
// removes expired OAuth states, and refreshes the outbox backlog gauges.
type Maintenance struct {
	proc      *outbox.Processor
	states    *oauthstate.Store
	log       *zap.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewMaintenance creates a new maintenance worker.
//
// Parameters:
//   - proc: the outbox processor
//   - states: the OAuth state store (may be nil)
//   - logger: zap logger for logging
//   - interval: how often to run (e.g., 10 minutes)
//   - retention: how long completed outbox tasks are kept (e.g., 7 days)
func NewMaintenance(proc *outbox.Processor, states *oauthstate.Store, logger *zap.Logger, interval, retention time.Duration) *Maintenance {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &Maintenance{
		proc:      proc,
		states:    states,
		log:       logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Maintenance) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("maintenance worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *Maintenance) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("maintenance worker stopped")
}

func (w *Maintenance) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(context.Background())
		}
	}
}

// RunOnce performs a single maintenance pass. Failures are logged.
func (w *Maintenance) RunOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	if n, err := w.proc.PurgeDone(ctx, w.retention); err != nil {
		w.log.Error("failed to purge outbox tasks", zap.Error(err))
	} else if n > 0 {
		w.log.Info("purged outbox tasks", zap.Int64("count", n))
	}

	if w.states != nil {
		if n, err := w.states.CleanupExpired(ctx); err != nil {
			w.log.Error("failed to remove expired oauth states", zap.Error(err))
		} else if n > 0 {
			w.log.Debug("removed expired oauth states", zap.Int64("count", n))
		}
	}

	if err := w.proc.RecordBacklog(ctx); err != nil {
		w.log.Warn("failed to record outbox backlog", zap.Error(err))
	}
}
