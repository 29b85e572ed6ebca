package paymentstore_test

import (
	"errors"
	"testing"

	paymentstore "github.com/dalemusser/bloodlink/internal/app/store/payments"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_ResolveOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)
	user := primitive.NewObjectID()

	if _, err := store.Create(ctx, models.Payment{OrderID: "order_1", UserID: user, Amount: "250.00", Currency: "INR"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := store.Resolve(ctx, "order_1", primitive.NewObjectID(), "pay_1", models.PaymentVerified); !errors.Is(err, paymentstore.ErrNotFound) {
		t.Errorf("Resolve by stranger = %v, want ErrNotFound", err)
	}
	p, err := store.Resolve(ctx, "order_1", user, "pay_1", models.PaymentVerified)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Status != models.PaymentVerified || p.PaymentID != "pay_1" {
		t.Errorf("resolved = %+v", p)
	}
	if _, err := store.Resolve(ctx, "order_1", user, "pay_2", models.PaymentFailed); !errors.Is(err, paymentstore.ErrNotPending) {
		t.Errorf("second Resolve = %v, want ErrNotPending", err)
	}

	list, _ := store.ListByUser(ctx, user)
	if len(list) != 1 || list[0].Amount != "250.00" {
		t.Errorf("ListByUser = %+v", list)
	}
}
