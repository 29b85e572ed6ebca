package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	notificationstore "github.com/dalemusser/bloodlink/internal/app/store/notifications"
	outboxstore "github.com/dalemusser/bloodlink/internal/app/store/outbox"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/mailer"
	"github.com/dalemusser/bloodlink/internal/app/system/whatsapp"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fakeMail struct {
	mu   sync.Mutex
	sent []mailer.Email
	err  error
}

func (f *fakeMail) Send(_ context.Context, e mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if e.To == "" {
		return mailer.ErrNoRecipient
	}
	f.sent = append(f.sent, e)
	return nil
}

func (f *fakeMail) Enabled() bool { return true }

type fakeChat struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeChat) Send(_ context.Context, phone, body string) error {
	if _, err := whatsapp.Address(phone); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, phone)
	return nil
}

func newProcessor(t *testing.T, db *mongo.Database, mail *fakeMail, chat *fakeChat) *Processor {
	t.Helper()
	return NewProcessor(outboxstore.New(db), notificationstore.New(db), userstore.New(db), mail, chat,
		Config{MaxAttempts: 3, BaseBackoff: time.Second, MaxBackoff: 4 * time.Second}, zap.NewNop())
}

func drain(t *testing.T, p *Processor) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	for i := 0; i < 5; i++ {
		n, err := p.RunOnce(ctx)
		if err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		if n == 0 {
			return
		}
	}
}

func TestBackoff(t *testing.T) {
	p := &Processor{cfg: Config{BaseBackoff: time.Second, MaxBackoff: 5 * time.Second}.withDefaults()}
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.attempts); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestNotifyTask_RoundTripsData(t *testing.T) {
	id := primitive.NewObjectID()
	task := NotifyTask(models.Notification{
		RecipientID:   id,
		RecipientType: models.RecipientUser,
		Title:         "Driver assigned",
		Type:          models.NotifyTransportation,
		Data:          map[string]string{"driverName": "Ravi", "driverNumber": "+15550001111"},
	})
	n, err := notificationFromPayload(task.Payload)
	if err != nil {
		t.Fatalf("notificationFromPayload: %v", err)
	}
	if n.RecipientID != id || n.Data["driverName"] != "Ravi" || n.Data["driverNumber"] != "+15550001111" {
		t.Errorf("decoded = %+v", n)
	}
}

func TestRunOnce_BroadcastRequestFansOutToMatches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	requester := fx.CreateUser(ctx, "Req", "req@example.com", "A+")
	match1 := fx.CreateUserWith(ctx, models.User{Name: "M1", Email: "m1@example.com", BloodGroup: "A+", Phone: "+15550000001"})
	match2 := fx.CreateUser(ctx, "M2", "m2@example.com", "A+")
	other := fx.CreateUser(ctx, "O", "o@example.com", "B+")

	br := fx.CreateBloodRequest(ctx, requester.ID, "A+")
	mail, chat := &fakeMail{}, &fakeChat{}
	p := newProcessor(t, db, mail, chat)
	if err := p.tasks.Enqueue(ctx, BroadcastRequestTask(br, "https://bloodlink.example/requests")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	drain(t, p)

	notes := notificationstore.New(db)
	for _, u := range []models.User{match1, match2} {
		got, _ := notes.ListForRecipient(ctx, models.RecipientUser, u.ID, false, 0)
		if len(got) != 1 || got[0].Type != models.NotifyBloodRequest {
			t.Errorf("user %s notifications = %+v", u.Name, got)
		}
		if len(got) == 1 && got[0].Data["bloodRequestId"] != br.ID.Hex() {
			t.Errorf("notification data = %v", got[0].Data)
		}
	}
	for _, u := range []models.User{requester, other} {
		got, _ := notes.ListForRecipient(ctx, models.RecipientUser, u.ID, false, 0)
		if len(got) != 0 {
			t.Errorf("user %s should not be notified, got %d", u.Name, len(got))
		}
	}
	if len(mail.sent) != 2 {
		t.Errorf("emails sent = %d, want 2", len(mail.sent))
	}
	if len(chat.sent) != 1 {
		t.Errorf("whatsapp sent = %d, want 1", len(chat.sent))
	}
}

func TestRunOnce_BroadcastAcceptedReachesEveryoneButDonor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := fx.CreateUser(ctx, "Donor", "donor@example.com", "O+")
	a := fx.CreateUser(ctx, "A", "a@example.com", "A+")
	b := fx.CreateUser(ctx, "B", "b@example.com", "B-")
	br := fx.CreateBloodRequest(ctx, a.ID, "O+")

	mail := &fakeMail{}
	p := newProcessor(t, db, mail, &fakeChat{})
	if err := p.tasks.Enqueue(ctx, BroadcastAcceptedTask(br, donor.ID, donor.Name)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	drain(t, p)

	notes := notificationstore.New(db)
	for _, u := range []models.User{a, b} {
		got, _ := notes.ListForRecipient(ctx, models.RecipientUser, u.ID, false, 0)
		if len(got) != 1 || got[0].Type != models.NotifyRequestAccepted {
			t.Errorf("user %s notifications = %+v", u.Name, got)
		}
	}
	got, _ := notes.ListForRecipient(ctx, models.RecipientUser, donor.ID, false, 0)
	if len(got) != 0 {
		t.Errorf("donor notified %d times, want 0", len(got))
	}
	if len(mail.sent) != 2 {
		t.Errorf("emails = %d, want 2", len(mail.sent))
	}
}

func TestRunOnce_RetriesThenFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mail := &fakeMail{err: errors.New("smtp unavailable")}
	p := newProcessor(t, db, mail, &fakeChat{})
	task := EmailTask(mailer.Email{To: "x@example.com", Subject: "hi"})
	task.ID = primitive.NewObjectID()
	if err := p.tasks.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	clock := time.Now().UTC()
	for attempt := 1; attempt <= 3; attempt++ {
		// Jump past any backoff so the task is due again.
		clock = clock.Add(time.Hour)
		now := clock
		p.now = func() time.Time { return now }
		p.tasks = p.tasks.WithClock(func() time.Time { return now })
		if _, err := p.RunOnce(ctx); err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
	}

	got, err := p.tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.TaskFailed || got.Attempts != 3 {
		t.Errorf("task = status %q attempts %d, want failed/3", got.Status, got.Attempts)
	}
	if got.LastError != "smtp unavailable" {
		t.Errorf("LastError = %q", got.LastError)
	}
}

func TestRunOnce_PermanentErrorsFailImmediately(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := newProcessor(t, db, &fakeMail{}, &fakeChat{})
	bad := WhatsAppTask("12", "hello")
	bad.ID = primitive.NewObjectID()
	unknown := outboxstore.NewTask("carrier_pigeon", nil)
	unknown.ID = primitive.NewObjectID()
	if err := p.tasks.Enqueue(ctx, bad, unknown); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	drain(t, p)

	for _, id := range []primitive.ObjectID{bad.ID, unknown.ID} {
		got, _ := p.tasks.GetByID(ctx, id)
		if got.Status != models.TaskFailed || got.Attempts != 1 {
			t.Errorf("task %s = %q after %d attempts, want failed after 1", id.Hex(), got.Status, got.Attempts)
		}
	}
}
