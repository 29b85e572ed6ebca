package transportation_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/bloodlink/internal/app/features/transportation"
	outboxstore "github.com/dalemusser/bloodlink/internal/app/store/outbox"
	"github.com/dalemusser/bloodlink/internal/app/system/indexes"
	"github.com/dalemusser/bloodlink/internal/app/system/outbox"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*transportation.Handler, *mongo.Database, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	h := transportation.NewHandler(db, outbox.NewQueue(outboxstore.New(db)), nil, zap.NewNop())
	return h, db, testutil.NewFixtures(t, db)
}

func create(h *transportation.Handler, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, req)
	return rec
}

func TestHandleCreate_ActorModes(t *testing.T) {
	h, _, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	requester := fx.CreateUser(ctx, "Req", "req@example.com", "O+")
	donor := fx.CreateUser(ctx, "Donor", "donor@example.com", "O+")
	stranger := fx.CreateUser(ctx, "Stranger", "stranger@example.com", "O+")
	br := fx.CreateBloodRequest(ctx, requester.ID, "O+")
	acc := fx.CreateAcceptance(ctx, br.ID, donor.ID, "O+")
	admin := fx.CreateAdmin(ctx, "Dispatch", "dispatch@example.com", models.AdminRoleAdmin, models.PermTransport)
	eventsOnly := fx.CreateAdmin(ctx, "Events", "events@example.com", models.AdminRoleAdmin, models.PermEvents)

	base := func(extra map[string]any) map[string]any {
		m := map[string]any{"pickupLocation": "Home", "dropLocation": "City Hospital"}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}
	asUser := func(u models.User, body map[string]any) *http.Request {
		return testutil.WithUser(testutil.JSONRequest(t, http.MethodPost, "/api/transportation-request", body), u)
	}
	asAdmin := func(a models.Admin, body map[string]any) *http.Request {
		return testutil.WithAdmin(testutil.JSONRequest(t, http.MethodPost, "/api/transportation-request", body), a)
	}

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"admin for user", asAdmin(admin, base(map[string]any{"userId": donor.ID.Hex()})), http.StatusCreated},
		{"admin without userId", asAdmin(admin, base(nil)), http.StatusBadRequest},
		{"admin with acceptance", asAdmin(admin, base(map[string]any{"userId": donor.ID.Hex(), "acceptedRequestId": acc.ID.Hex()})), http.StatusBadRequest},
		{"admin unknown user", asAdmin(admin, base(map[string]any{"userId": "64b7f0c2a1b2c3d4e5f60718"})), http.StatusNotFound},
		{"admin lacking permission", asAdmin(eventsOnly, base(map[string]any{"userId": donor.ID.Hex()})), http.StatusForbidden},
		{"donor by acceptance", asUser(donor, base(map[string]any{"acceptedRequestId": acc.ID.Hex()})), http.StatusCreated},
		{"donor by request", asUser(donor, base(map[string]any{"bloodRequestId": br.ID.Hex()})), http.StatusCreated},
		{"requester by request", asUser(requester, base(map[string]any{"bloodRequestId": br.ID.Hex()})), http.StatusCreated},
		{"user with userId", asUser(donor, base(map[string]any{"userId": donor.ID.Hex(), "bloodRequestId": br.ID.Hex()})), http.StatusBadRequest},
		{"user without link", asUser(donor, base(nil)), http.StatusBadRequest},
		{"stranger acceptance", asUser(stranger, base(map[string]any{"acceptedRequestId": acc.ID.Hex()})), http.StatusNotFound},
		{"stranger request", asUser(stranger, base(map[string]any{"bloodRequestId": br.ID.Hex()})), http.StatusNotFound},
		{"missing pickup", asUser(donor, map[string]any{"dropLocation": "X", "bloodRequestId": br.ID.Hex()}), http.StatusBadRequest},
		{"bad coords", asUser(donor, base(map[string]any{"bloodRequestId": br.ID.Hex(), "pickupCoords": map[string]float64{"lat": 91, "lng": 0}})), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			create(h, tt.req).AssertStatus(t, tt.status)
		})
	}
}

func TestHandleCreate_LinksAcceptance(t *testing.T) {
	h, db, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	requester := fx.CreateUser(ctx, "Req", "req@example.com", "O+")
	donor := fx.CreateUser(ctx, "Donor", "donor@example.com", "O+")
	br := fx.CreateBloodRequest(ctx, requester.ID, "O+")
	acc := fx.CreateAcceptance(ctx, br.ID, donor.ID, "O+")

	req := testutil.WithUser(testutil.JSONRequest(t, http.MethodPost, "/api/transportation-request", map[string]any{
		"acceptedRequestId": acc.ID.Hex(),
		"pickupLocation":    "5 Lake Road",
		"dropLocation":      "City Hospital",
	}), donor)
	rec := create(h, req)
	rec.AssertStatus(t, http.StatusCreated)

	var body struct {
		TransportationRequest models.TransportationRequest `json:"transportationRequest"`
	}
	rec.DecodeJSON(t, &body)
	tr := body.TransportationRequest
	if tr.CreatedBy != models.CreatedByUser || tr.UserID != donor.ID {
		t.Errorf("createdBy=%q userId=%s", tr.CreatedBy, tr.UserID.Hex())
	}
	if tr.HospitalName != "City Hospital" || tr.HospitalLocation != "12 Main Street" {
		t.Errorf("hospital = %q / %q, want request defaults", tr.HospitalName, tr.HospitalLocation)
	}

	var got models.AcceptedBloodRequest
	if err := db.Collection("acceptedBloodRequests").FindOne(ctx, bson.M{"_id": acc.ID}).Decode(&got); err != nil {
		t.Fatalf("load acceptance: %v", err)
	}
	if got.TransportationRequestID == nil || *got.TransportationRequestID != tr.ID {
		t.Error("acceptance not linked to the new transportation request")
	}
	if got.Status != models.AcceptanceTransportationNeeded {
		t.Errorf("acceptance status = %q", got.Status)
	}
}

func TestServeList(t *testing.T) {
	h, _, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "Alice", "alice@example.com", "A+")
	bob := fx.CreateUser(ctx, "Bob", "bob@example.com", "B+")
	fx.CreateTransportationRequest(ctx, alice.ID)
	fx.CreateTransportationRequest(ctx, alice.ID)
	fx.CreateTransportationRequest(ctx, bob.ID)
	admin := fx.CreateAdmin(ctx, "Dispatch", "dispatch@example.com", models.AdminRoleSuperAdmin)

	count := func(req *http.Request) int {
		t.Helper()
		rec := testutil.NewRecorder()
		h.ServeList(rec, req)
		rec.AssertStatus(t, http.StatusOK)
		var body struct {
			Count int `json:"count"`
		}
		rec.DecodeJSON(t, &body)
		return body.Count
	}

	if got := count(testutil.WithAdmin(httptest.NewRequest(http.MethodGet, "/", nil), admin)); got != 3 {
		t.Errorf("admin sees %d, want 3", got)
	}
	if got := count(testutil.WithAdmin(httptest.NewRequest(http.MethodGet, "/?userId="+bob.ID.Hex(), nil), admin)); got != 1 {
		t.Errorf("admin filtered by bob sees %d, want 1", got)
	}
	if got := count(testutil.WithUser(httptest.NewRequest(http.MethodGet, "/", nil), alice)); got != 2 {
		t.Errorf("alice sees %d, want 2", got)
	}
	if got := count(testutil.WithUser(httptest.NewRequest(http.MethodGet, "/?status=assigned", nil), alice)); got != 0 {
		t.Errorf("alice assigned = %d, want 0", got)
	}
}

func TestServeGet_Ownership(t *testing.T) {
	h, _, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "A+")
	other := fx.CreateUser(ctx, "Other", "other@example.com", "A+")
	tr := fx.CreateTransportationRequest(ctx, owner.ID)

	get := func(req *http.Request) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		h.ServeGet(rec, testutil.WithChiURLParam(req, "id", tr.ID.Hex()))
		return rec
	}
	get(testutil.WithUser(httptest.NewRequest(http.MethodGet, "/", nil), owner)).AssertStatus(t, http.StatusOK)
	get(testutil.WithUser(httptest.NewRequest(http.MethodGet, "/", nil), other)).AssertStatus(t, http.StatusNotFound)
}

func TestHandleUpdate_NotifiesOnStatusChange(t *testing.T) {
	h, db, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Rider", "rider@example.com", "O+")
	tr := fx.CreateTransportationRequest(ctx, u.ID)
	admin := fx.CreateAdmin(ctx, "Dispatch", "dispatch@example.com", models.AdminRoleAdmin, models.PermTransport)

	patch := func(body map[string]any) *testutil.ResponseRecorder {
		req := testutil.WithAdmin(testutil.JSONRequest(t, http.MethodPatch, "/", body), admin)
		rec := testutil.NewRecorder()
		h.HandleUpdate(rec, testutil.WithChiURLParam(req, "id", tr.ID.Hex()))
		return rec
	}

	// Driver details alone do not notify.
	patch(map[string]any{"driverName": "Sam  Lee", "driverNumber": "+91 98765 43210"}).AssertStatus(t, http.StatusOK)
	if n, _ := db.Collection("outbox").CountDocuments(ctx, bson.M{}); n != 0 {
		t.Fatalf("outbox tasks after driver edit = %d, want 0", n)
	}

	rec := patch(map[string]any{"status": "assigned"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"driverName":"Sam Lee"`)

	var task models.OutboxTask
	if err := db.Collection("outbox").FindOne(ctx, bson.M{"kind": outbox.KindNotify}).Decode(&task); err != nil {
		t.Fatalf("load notify task: %v", err)
	}
	if task.Payload["recipientId"] != u.ID.Hex() {
		t.Errorf("recipient = %q", task.Payload["recipientId"])
	}
	if task.Payload["title"] != "Driver assigned" {
		t.Errorf("title = %q", task.Payload["title"])
	}
	if task.Payload["message"] != "Your driver is Sam Lee (+919876543210)." {
		t.Errorf("message = %q", task.Payload["message"])
	}
	if task.Payload["data.driverNumber"] != "+919876543210" {
		t.Errorf("driver number data = %q", task.Payload["data.driverNumber"])
	}

	// Same status again is not a change.
	patch(map[string]any{"status": "assigned"}).AssertStatus(t, http.StatusOK)
	if n, _ := db.Collection("outbox").CountDocuments(ctx, bson.M{}); n != 1 {
		t.Errorf("outbox tasks = %d, want 1", n)
	}

	patch(map[string]any{"status": "teleported"}).AssertStatus(t, http.StatusBadRequest)
	patch(map[string]any{}).AssertStatus(t, http.StatusBadRequest)
}

func TestHandleUpdate_IDInBody(t *testing.T) {
	h, _, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Rider", "rider2@example.com", "B+")
	tr := fx.CreateTransportationRequest(ctx, u.ID)
	admin := fx.CreateAdmin(ctx, "Dispatch", "dispatch2@example.com", models.AdminRoleAdmin, models.PermTransport)

	patch := func(body map[string]any) *testutil.ResponseRecorder {
		req := testutil.WithAdmin(testutil.JSONRequest(t, http.MethodPatch, "/api/transportation-request", body), admin)
		rec := testutil.NewRecorder()
		h.HandleUpdate(rec, req)
		return rec
	}

	rec := patch(map[string]any{"id": tr.ID.Hex(), "status": "assigned", "driverName": "Ravi", "driverNumber": "+919876543210"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"assigned"`)
	rec.AssertContains(t, `"driverName":"Ravi"`)

	patch(map[string]any{"status": "completed"}).AssertStatus(t, http.StatusBadRequest)
	patch(map[string]any{"id": "nope", "status": "completed"}).AssertStatus(t, http.StatusBadRequest)
}
