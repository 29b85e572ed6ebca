// internal/app/system/workers/outboxworker.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"go.uber.org/zap"
)

// OutboxWorker is a background worker that drains the outbox.
type OutboxWorker struct {
	proc     *outbox.Processor
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	wakeCh   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewOutboxWorker creates a new outbox worker.
//
// Parameters:
//   - proc: the outbox processor
//   - logger: zap logger for logging
//   - interval: how often to look for due tasks (e.g., 5 seconds)
func NewOutboxWorker(proc *outbox.Processor, logger *zap.Logger, interval time.Duration) *OutboxWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxWorker{
		proc:     proc,
		log:      logger,
		interval: interval,
		timeout:  time.Minute,
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *OutboxWorker) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("outbox worker started", zap.Duration("interval", w.interval))
}

// Wake asks for a pass before the next tick. It never blocks.
func (w *OutboxWorker) Wake() {
	if w == nil {
		return
	}
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// Stop signals the worker to stop and waits for it to finish.
func (w *OutboxWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("outbox worker stopped")
}

func (w *OutboxWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.drain()
		case <-w.wakeCh:
			w.drain()
		}
	}
}

// drain keeps running batches until one comes back short.
func (w *OutboxWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	total := 0
	for {
		n, err := w.proc.RunOnce(ctx)
		total += n
		if err != nil {
			w.log.Error("outbox pass failed", zap.Error(err))
			return
		}
		if n < w.proc.BatchSize() {
			break
		}
		select {
		case <-w.stopCh:
			return
		default:
		}
	}

	if total > 0 {
		w.log.Debug("outbox tasks processed", zap.Int("count", total))
	}
}
