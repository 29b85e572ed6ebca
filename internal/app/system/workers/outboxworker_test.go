package workers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	notificationstore "github.com/dalemusser/bloodlink/internal/app/store/notifications"
	outboxstore "github.com/dalemusser/bloodlink/internal/app/store/outbox"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/mailer"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/workers"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type countingMail struct {
	mu sync.Mutex
	n  int
}

func (c *countingMail) Send(context.Context, mailer.Email) error {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return nil
}

func (c *countingMail) Enabled() bool { return true }

func (c *countingMail) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestOutboxWorker_WakeDrains(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tasks := outboxstore.New(db)
	mail := &countingMail{}
	proc := outbox.NewProcessor(tasks, notificationstore.New(db), userstore.New(db), mail, nil, outbox.Config{BatchSize: 2}, zap.NewNop())

	for i := 0; i < 5; i++ {
		if err := tasks.Enqueue(ctx, outbox.EmailTask(mailer.Email{To: "a@example.com", Subject: "x"})); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	n := outbox.NotifyTask(models.Notification{RecipientID: primitive.NewObjectID(), Title: "hi"})
	if err := tasks.Enqueue(ctx, n); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	w := workers.NewOutboxWorker(proc, zap.NewNop(), time.Hour)
	w.Start()
	defer w.Stop()
	w.Wake()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		counts, err := tasks.CountByStatus(ctx)
		if err != nil {
			t.Fatalf("CountByStatus: %v", err)
		}
		if counts[models.TaskDone] == 6 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if mail.count() != 5 {
		t.Errorf("emails sent = %d, want 5", mail.count())
	}
}

func TestOutboxWorker_StopIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	proc := outbox.NewProcessor(outboxstore.New(db), notificationstore.New(db), userstore.New(db), &countingMail{}, nil, outbox.Config{}, zap.NewNop())
	w := workers.NewOutboxWorker(proc, zap.NewNop(), time.Hour)
	w.Start()
	w.Stop()
	w.Stop()
}
