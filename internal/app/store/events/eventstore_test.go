package eventstore_test

import (
	"errors"
	"sync"
	"testing"

	eventstore "github.com/dalemusser/bloodlink/internal/app/store/events"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_ReserveSlot_FillsThenRejects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := eventstore.New(db)

	ev := fx.CreateEvent(ctx, "Drive", 2)
	for i := 0; i < 2; i++ {
		if err := store.ReserveSlot(ctx, ev.ID); err != nil {
			t.Fatalf("ReserveSlot %d: %v", i, err)
		}
	}
	if err := store.ReserveSlot(ctx, ev.ID); !errors.Is(err, eventstore.ErrSlotsFull) {
		t.Errorf("third ReserveSlot = %v, want ErrSlotsFull", err)
	}

	if err := store.ReleaseSlot(ctx, ev.ID); err != nil {
		t.Fatalf("ReleaseSlot: %v", err)
	}
	if err := store.ReserveSlot(ctx, ev.ID); err != nil {
		t.Errorf("ReserveSlot after release: %v", err)
	}
}

func TestStore_ReserveSlot_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := eventstore.New(db)

	const slots = 3
	ev := fx.CreateEvent(ctx, "Rush", slots)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.ReserveSlot(ctx, ev.ID); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != slots {
		t.Errorf("successful reservations = %d, want %d", ok, slots)
	}
	got, _ := store.GetByID(ctx, ev.ID)
	if got.RegisteredCount != slots {
		t.Errorf("RegisteredCount = %d, want %d", got.RegisteredCount, slots)
	}
}

func TestStore_ReserveSlot_Closed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := eventstore.New(db)

	ev := fx.CreateEvent(ctx, "Closed", 5)
	closed := false
	if _, err := store.Update(ctx, ev.ID, eventstore.Update{AllowRegistrations: &closed}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.ReserveSlot(ctx, ev.ID); !errors.Is(err, eventstore.ErrClosed) {
		t.Errorf("ReserveSlot = %v, want ErrClosed", err)
	}
	if err := store.ReserveSlot(ctx, primitive.NewObjectID()); !errors.Is(err, eventstore.ErrNotFound) {
		t.Errorf("ReserveSlot unknown = %v, want ErrNotFound", err)
	}
}

func TestStore_ReleaseSlot_NeverNegative(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := eventstore.New(db)

	ev := fx.CreateEvent(ctx, "Empty", 1)
	if err := store.ReleaseSlot(ctx, ev.ID); err != nil {
		t.Fatalf("ReleaseSlot: %v", err)
	}
	got, _ := store.GetByID(ctx, ev.ID)
	if got.RegisteredCount != 0 {
		t.Errorf("RegisteredCount = %d, want 0", got.RegisteredCount)
	}
}

func TestStore_CreateListUpdateDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := eventstore.New(db)

	ev, err := store.Create(ctx, models.Event{Title: "New", Location: "Hall", VolunteerSlotsNeeded: 10, AllowRegistrations: true, RegisteredCount: 7})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ev.Status != models.EventActive || ev.RegisteredCount != 0 {
		t.Errorf("Create defaults: status %q count %d", ev.Status, ev.RegisteredCount)
	}
	if _, err := store.Create(ctx, models.Event{Title: "Bad", Status: "paused"}); !errors.Is(err, eventstore.ErrBadStatus) {
		t.Errorf("Create bad status = %v", err)
	}

	open, err := store.List(ctx, eventstore.ListFilter{OpenOnly: true})
	if err != nil || len(open) != 1 {
		t.Fatalf("List open = %d, %v", len(open), err)
	}

	done := models.EventCompleted
	if _, err := store.Update(ctx, ev.ID, eventstore.Update{Status: &done}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	open, _ = store.List(ctx, eventstore.ListFilter{OpenOnly: true})
	if len(open) != 0 {
		t.Errorf("completed event should not be listed as open")
	}

	if err := store.Delete(ctx, ev.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, ev.ID); !errors.Is(err, eventstore.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestStore_SetCountIfMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := eventstore.New(db)

	id := primitive.NewObjectID()
	if _, err := db.Collection("events").InsertOne(ctx, bson.M{"_id": id, "title": "Legacy", "status": "active", "allow_registrations": true, "volunteer_slots_needed": 5}); err != nil {
		t.Fatalf("insert legacy: %v", err)
	}
	ids, err := store.IDsMissingCount(ctx)
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("IDsMissingCount = %v, %v", ids, err)
	}
	if err := store.SetCountIfMissing(ctx, id, 4); err != nil {
		t.Fatalf("SetCountIfMissing: %v", err)
	}
	if err := store.SetCountIfMissing(ctx, id, 9); err != nil {
		t.Fatalf("second SetCountIfMissing: %v", err)
	}
	got, _ := store.GetByID(ctx, id)
	if got.RegisteredCount != 4 {
		t.Errorf("RegisteredCount = %d, want 4", got.RegisteredCount)
	}
}
