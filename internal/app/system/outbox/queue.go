// internal/app/system/outbox/queue.go
package outbox

import (
	"context"
	"sync/atomic"

	outboxstore "github.com/dalemusser/bloodlink/internal/app/store/outbox"
	"github.com/dalemusser/bloodlink/internal/domain/models"
)

// Queue is the handler-facing side of the outbox. Handlers stage tasks next
// to their primary write and wake the worker once the write has committed.
type Queue struct {
	store *outboxstore.Store
	wake  atomic.Pointer[func()]
}

// NewQueue wraps store. The waker can be attached later with SetWaker.
func NewQueue(store *outboxstore.Store) *Queue {
	return &Queue{store: store}
}

// SetWaker installs the function called after tasks are enqueued.
func (q *Queue) SetWaker(fn func()) {
	if fn == nil {
		q.wake.Store(nil)
		return
	}
	q.wake.Store(&fn)
}

// Stage writes tasks without waking the worker. Use it inside a
// transaction callback and call Wake after it returns.
func (q *Queue) Stage(ctx context.Context, tasks ...models.OutboxTask) error {
	return q.store.Enqueue(ctx, tasks...)
}

// Enqueue writes tasks and wakes the worker.
func (q *Queue) Enqueue(ctx context.Context, tasks ...models.OutboxTask) error {
	if err := q.store.Enqueue(ctx, tasks...); err != nil {
		return err
	}
	q.Wake()
	return nil
}

// Wake nudges the worker. It never blocks.
func (q *Queue) Wake() {
	if fn := q.wake.Load(); fn != nil {
		(*fn)()
	}
}
