// internal/app/system/outbox/processor.go
package outbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	notificationstore "github.com/dalemusser/bloodlink/internal/app/store/notifications"
	outboxstore "github.com/dalemusser/bloodlink/internal/app/store/outbox"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/mailer"
	"github.com/dalemusser/bloodlink/internal/app/system/metrics"
	"github.com/dalemusser/bloodlink/internal/app/system/whatsapp"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config tunes retries. Zero values take the defaults below.
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Lease       time.Duration
	BatchSize   int
}

const (
	DefaultMaxAttempts = 5
	DefaultBaseBackoff = 30 * time.Second
	DefaultMaxBackoff  = 30 * time.Minute
	DefaultLease       = 2 * time.Minute
	DefaultBatchSize   = 50
)

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.Lease <= 0 {
		c.Lease = DefaultLease
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// MessageSender delivers a chat message to a phone number.
type MessageSender interface {
	Send(ctx context.Context, phone, body string) error
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the processor fails the task without retrying.
func Permanent(err error) error { return permanentError{err: err} }

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Processor claims due outbox tasks and performs them.
type Processor struct {
	tasks *outboxstore.Store
	notes *notificationstore.Store
	users *userstore.Store
	mail  mailer.Sender
	chat  MessageSender
	log   *zap.Logger
	cfg   Config
	now   func() time.Time
}

func NewProcessor(tasks *outboxstore.Store, notes *notificationstore.Store, users *userstore.Store, mail mailer.Sender, chat MessageSender, cfg Config, logger *zap.Logger) *Processor {
	return &Processor{
		tasks: tasks,
		notes: notes,
		users: users,
		mail:  mail,
		chat:  chat,
		log:   logger,
		cfg:   cfg.withDefaults(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// BatchSize is the most tasks one RunOnce handles.
func (p *Processor) BatchSize() int { return p.cfg.BatchSize }

// Backoff is the delay before retry number attempts+1.
func (p *Processor) Backoff(attempts int) time.Duration {
	d := p.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= p.cfg.MaxBackoff {
			return p.cfg.MaxBackoff
		}
	}
	return d
}

// RunOnce processes up to BatchSize due tasks and reports how many it handled.
func (p *Processor) RunOnce(ctx context.Context) (int, error) {
	n := 0
	for n < p.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		task, err := p.tasks.ClaimDue(ctx, p.cfg.Lease)
		if errors.Is(err, outboxstore.ErrNoneDue) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("claim outbox task: %w", err)
		}
		n++
		p.settle(ctx, task, p.dispatch(ctx, task))
	}
	return n, nil
}

func (p *Processor) settle(ctx context.Context, task *models.OutboxTask, runErr error) {
	fields := []zap.Field{
		zap.String("task_id", task.ID.Hex()),
		zap.String("kind", task.Kind),
		zap.Int("attempts", task.Attempts),
	}

	if runErr == nil {
		metrics.OutboxTasks.WithLabelValues(task.Kind, "done").Inc()
		if err := p.tasks.MarkDone(ctx, task.ID); err != nil {
			p.log.Error("outbox mark done failed", append(fields, zap.Error(err))...)
		}
		return
	}

	if isPermanent(runErr) || task.Attempts >= p.cfg.MaxAttempts {
		metrics.OutboxTasks.WithLabelValues(task.Kind, "failed").Inc()
		p.log.Error("outbox task failed", append(fields, zap.Error(runErr))...)
		if err := p.tasks.MarkFailed(ctx, task.ID, runErr.Error()); err != nil {
			p.log.Error("outbox mark failed failed", append(fields, zap.Error(err))...)
		}
		return
	}

	next := p.now().Add(p.Backoff(task.Attempts))
	metrics.OutboxTasks.WithLabelValues(task.Kind, "retry").Inc()
	p.log.Warn("outbox task will retry", append(fields, zap.Time("next_attempt_at", next), zap.Error(runErr))...)
	if err := p.tasks.MarkRetry(ctx, task.ID, next, runErr.Error()); err != nil {
		p.log.Error("outbox mark retry failed", append(fields, zap.Error(err))...)
	}
}

func (p *Processor) dispatch(ctx context.Context, task *models.OutboxTask) error {
	switch task.Kind {
	case KindNotify:
		n, err := notificationFromPayload(task.Payload)
		if err != nil {
			return Permanent(err)
		}
		_, err = p.notes.Create(ctx, n)
		return err

	case KindEmail:
		err := p.mail.Send(ctx, emailFromPayload(task.Payload))
		if errors.Is(err, mailer.ErrNoRecipient) {
			return Permanent(err)
		}
		return err

	case KindWhatsApp:
		if p.chat == nil {
			return nil
		}
		err := p.chat.Send(ctx, task.Payload["phone"], task.Payload["body"])
		if errors.Is(err, whatsapp.ErrInvalidPhone) {
			return Permanent(err)
		}
		return err

	case KindBroadcastRequest:
		return p.broadcastRequest(ctx, task.Payload)

	case KindBroadcastAccepted:
		return p.broadcastAccepted(ctx, task.Payload)
	}
	return Permanent(fmt.Errorf("unknown outbox kind %q", task.Kind))
}

// broadcastRequest expands into one notify task per matching donor plus an
// email and a WhatsApp task for each donor who has that contact.
func (p *Processor) broadcastRequest(ctx context.Context, pl map[string]string) error {
	requester, err := primitive.ObjectIDFromHex(pl["requesterId"])
	if err != nil {
		return Permanent(fmt.Errorf("requesterId: %w", err))
	}
	contacts, err := p.users.ContactsByBloodGroup(ctx, pl["bloodGroup"], requester)
	if err != nil {
		return err
	}

	qty, _ := strconv.Atoi(pl["quantity"])
	hospital := hospitalLabel(pl["hospitalName"], pl["hospitalLocation"])
	title := fmt.Sprintf("Blood request: %s needed", pl["bloodGroup"])
	msg := fmt.Sprintf("%s blood is needed at %s. Urgency: %s, %d unit(s).", pl["bloodGroup"], hospital, pl["urgency"], qty)
	chatMsg := msg
	if pl["link"] != "" {
		chatMsg += " " + pl["link"]
	}

	var out []models.OutboxTask
	for _, c := range contacts {
		out = append(out, NotifyTask(models.Notification{
			RecipientID:   c.ID,
			RecipientType: models.RecipientUser,
			Title:         title,
			Message:       msg,
			Type:          models.NotifyBloodRequest,
			Data:          map[string]string{"bloodRequestId": pl["bloodRequestId"]},
		}))
		if c.Email != "" {
			out = append(out, EmailTask(mailer.BuildBloodRequestMatch(c.Email, mailer.BloodRequestData{
				BloodGroup:       pl["bloodGroup"],
				Quantity:         qty,
				Urgency:          pl["urgency"],
				HospitalName:     pl["hospitalName"],
				HospitalLocation: pl["hospitalLocation"],
				Link:             pl["link"],
			})))
		}
		if c.Phone != "" {
			out = append(out, WhatsAppTask(c.Phone, chatMsg))
		}
	}
	p.log.Info("blood request broadcast expanded",
		zap.String("blood_request_id", pl["bloodRequestId"]),
		zap.Int("recipients", len(contacts)),
		zap.Int("tasks", len(out)))
	return p.tasks.Enqueue(ctx, out...)
}

// broadcastAccepted notifies every user except the accepting donor.
func (p *Processor) broadcastAccepted(ctx context.Context, pl map[string]string) error {
	donor, err := primitive.ObjectIDFromHex(pl["donorId"])
	if err != nil {
		return Permanent(fmt.Errorf("donorId: %w", err))
	}
	contacts, err := p.users.AllContacts(ctx, donor)
	if err != nil {
		return err
	}

	title := "Blood request accepted"
	msg := fmt.Sprintf("%s accepted the %s blood request at %s.", pl["donorName"], pl["bloodGroup"], pl["hospitalName"])

	var out []models.OutboxTask
	for _, c := range contacts {
		out = append(out, NotifyTask(models.Notification{
			RecipientID:   c.ID,
			RecipientType: models.RecipientUser,
			Title:         title,
			Message:       msg,
			Type:          models.NotifyRequestAccepted,
			Data:          map[string]string{"bloodRequestId": pl["bloodRequestId"]},
		}))
		if c.Email != "" {
			out = append(out, EmailTask(mailer.BuildRequestAccepted(c.Email, mailer.AcceptedData{
				DonorName:    pl["donorName"],
				BloodGroup:   pl["bloodGroup"],
				HospitalName: pl["hospitalName"],
			})))
		}
		if c.Phone != "" {
			out = append(out, WhatsAppTask(c.Phone, msg))
		}
	}
	return p.tasks.Enqueue(ctx, out...)
}

// PurgeDone removes completed tasks older than retention.
func (p *Processor) PurgeDone(ctx context.Context, retention time.Duration) (int64, error) {
	return p.tasks.PurgeDone(ctx, p.now().Add(-retention))
}

// RecordBacklog publishes per-status task counts as gauges.
func (p *Processor) RecordBacklog(ctx context.Context) error {
	counts, err := p.tasks.CountByStatus(ctx)
	if err != nil {
		return err
	}
	for _, s := range []string{models.TaskPending, models.TaskProcessing, models.TaskDone, models.TaskFailed} {
		metrics.OutboxBacklog.WithLabelValues(s).Set(float64(counts[s]))
	}
	return nil
}
