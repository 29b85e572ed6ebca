package notifications_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/bloodlink/internal/app/features/notifications"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type listBody struct {
	Notifications []models.Notification `json:"notifications"`
	Count         int                   `json:"count"`
	Unread        int64                 `json:"unread"`
}

func TestInbox_UserAndAdminAreSeparate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := notifications.NewHandler(db, zap.NewNop())

	u := fx.CreateUser(ctx, "Uma", "uma@example.com", "A+")
	other := fx.CreateUser(ctx, "Oli", "oli@example.com", "A+")
	admin := fx.CreateAdmin(ctx, "Ops", "ops@example.com", models.AdminRoleAdmin)

	seed := []models.Notification{
		{RecipientID: u.ID, RecipientType: models.RecipientUser, Title: "one", Message: "m1", Type: models.NotifyBloodRequest},
		{RecipientID: u.ID, RecipientType: models.RecipientUser, Title: "two", Message: "m2", Type: models.NotifyTransportation},
		{RecipientID: other.ID, RecipientType: models.RecipientUser, Title: "theirs", Message: "m3"},
		{RecipientID: admin.ID, RecipientType: models.RecipientAdmin, Title: "ops", Message: "m4"},
	}
	if _, err := h.Notifications.CreateMany(ctx, seed); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}

	list := func(req *http.Request) listBody {
		t.Helper()
		rec := testutil.NewRecorder()
		h.ServeList(rec, req)
		rec.AssertStatus(t, http.StatusOK)
		var body listBody
		rec.DecodeJSON(t, &body)
		return body
	}

	mine := list(testutil.WithUser(testutil.JSONRequest(t, http.MethodGet, "/api/notifications", nil), u))
	if mine.Count != 2 || mine.Unread != 2 {
		t.Fatalf("user inbox = %+v", mine)
	}
	ops := list(testutil.WithAdmin(testutil.JSONRequest(t, http.MethodGet, "/api/admin/notifications", nil), admin))
	if ops.Count != 1 || ops.Notifications[0].Title != "ops" {
		t.Errorf("admin inbox = %+v", ops)
	}

	markRead := func(id primitive.ObjectID, who models.User) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		req := testutil.JSONRequest(t, http.MethodPatch, "/api/notifications/"+id.Hex()+"/read", nil)
		h.HandleMarkRead(rec, testutil.WithChiURLParam(testutil.WithUser(req, who), "id", id.Hex()))
		return rec
	}

	first := mine.Notifications[0].ID
	markRead(first, other).AssertStatus(t, http.StatusNotFound)
	markRead(first, u).AssertStatus(t, http.StatusOK)

	after := list(testutil.WithUser(testutil.JSONRequest(t, http.MethodGet, "/api/notifications", nil), u))
	if after.Unread != 1 {
		t.Errorf("unread after mark = %d, want 1", after.Unread)
	}
	unreadOnly := list(testutil.WithUser(testutil.JSONRequest(t, http.MethodGet, "/api/notifications?unread=true", nil), u))
	if unreadOnly.Count != 1 || unreadOnly.Notifications[0].ID == first {
		t.Errorf("unread filter = %+v", unreadOnly)
	}

	rec := testutil.NewRecorder()
	h.HandleMarkAllRead(rec, testutil.WithUser(testutil.JSONRequest(t, http.MethodPost, "/api/notifications/read-all", nil), u))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"updated":1`)

	if got := list(testutil.WithUser(testutil.JSONRequest(t, http.MethodGet, "/api/notifications", nil), u)); got.Unread != 0 {
		t.Errorf("unread after read-all = %d", got.Unread)
	}
	if got := list(testutil.WithUser(testutil.JSONRequest(t, http.MethodGet, "/api/notifications", nil), other)); got.Unread != 1 {
		t.Errorf("other user's unread changed to %d", got.Unread)
	}
}
