package donationimages_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/bloodlink/internal/app/features/donationimages"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const photo = "data:image/jpeg;base64,/9j/4AAQSkZJRgABAQAAAQABAAD/2wBDAAgGBgcGBQgHBwcJCQgKDBQNDAsLDBkSEw8U"

func newTestHandler(t *testing.T) (*donationimages.Handler, *mongo.Database, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := donationimages.NewHandler(db.Client(), db, 0, zap.NewNop())
	return h, db, testutil.NewFixtures(t, db)
}

func upload(t *testing.T, h *donationimages.Handler, u models.User, body map[string]any) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.WithUser(testutil.JSONRequest(t, http.MethodPost, "/api/donation-images", body), u)
	rec := testutil.NewRecorder()
	h.HandleUpload(rec, req)
	return rec
}

func TestHandleUpload_CreatesVerifiedRide(t *testing.T) {
	h, db, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	requester := fx.CreateUser(ctx, "Req", "req@example.com", "O+")
	donor := fx.CreateUser(ctx, "Donor", "donor@example.com", "O+")
	br := fx.CreateBloodRequest(ctx, requester.ID, "O+")
	acc := fx.CreateAcceptance(ctx, br.ID, donor.ID, "O+")

	rec := upload(t, h, donor, map[string]any{
		"image":             photo,
		"latitude":          12.9716,
		"longitude":         77.5946,
		"acceptedRequestId": acc.ID.Hex(),
	})
	rec.AssertStatus(t, http.StatusCreated)

	var body struct {
		Image                 models.DonationImage          `json:"image"`
		TransportationRequest *models.TransportationRequest `json:"transportationRequest"`
	}
	rec.DecodeJSON(t, &body)
	tr := body.TransportationRequest
	if tr == nil {
		t.Fatal("no transportation request derived")
	}
	if !tr.TransportationVerified || tr.CreatedBy != models.CreatedBySystem {
		t.Errorf("verified=%v createdBy=%q", tr.TransportationVerified, tr.CreatedBy)
	}
	if tr.PickupCoords == nil || tr.PickupCoords.Lat != 12.9716 || tr.PickupCoords.Lng != 77.5946 {
		t.Errorf("pickupCoords = %+v", tr.PickupCoords)
	}
	if tr.PickupLocation != "12.971600, 77.594600" {
		t.Errorf("pickupLocation = %q", tr.PickupLocation)
	}
	if tr.DropLocation != "City Hospital, 12 Main Street" {
		t.Errorf("dropLocation = %q", tr.DropLocation)
	}
	if body.Image.TransportationRequestID == nil || *body.Image.TransportationRequestID != tr.ID {
		t.Error("image not linked to the ride")
	}

	var got models.AcceptedBloodRequest
	if err := db.Collection("acceptedBloodRequests").FindOne(ctx, bson.M{"_id": acc.ID}).Decode(&got); err != nil {
		t.Fatalf("load acceptance: %v", err)
	}
	if got.Status != models.AcceptanceImageUploaded {
		t.Errorf("acceptance status = %q, want %q", got.Status, models.AcceptanceImageUploaded)
	}
	if got.TransportationRequestID == nil || *got.TransportationRequestID != tr.ID {
		t.Error("acceptance not linked to the ride")
	}
}

func TestHandleUpload_FillsPlaceholderRide(t *testing.T) {
	h, db, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	requester := fx.CreateUser(ctx, "Req", "req@example.com", "O+")
	donor := fx.CreateUser(ctx, "Donor", "donor@example.com", "O+")
	br := fx.CreateBloodRequest(ctx, requester.ID, "O+")
	acc := fx.CreateAcceptance(ctx, br.ID, donor.ID, "O+")

	placeholder := fx.CreateTransportationRequest(ctx, donor.ID)
	if _, err := db.Collection("transportationRequests").UpdateOne(ctx, bson.M{"_id": placeholder.ID},
		bson.M{"$set": bson.M{"pickup_location": models.PendingPickupLocation}}); err != nil {
		t.Fatalf("seed placeholder: %v", err)
	}
	if _, err := db.Collection("acceptedBloodRequests").UpdateOne(ctx, bson.M{"_id": acc.ID},
		bson.M{"$set": bson.M{"transportation_request_id": placeholder.ID, "status": models.AcceptanceTransportationNeeded}}); err != nil {
		t.Fatalf("link placeholder: %v", err)
	}

	rec := upload(t, h, donor, map[string]any{
		"image":             photo,
		"latitude":          1.5,
		"longitude":         2.5,
		"acceptedRequestId": acc.ID.Hex(),
	})
	rec.AssertStatus(t, http.StatusCreated)

	n, _ := db.Collection("transportationRequests").CountDocuments(ctx, bson.M{})
	if n != 1 {
		t.Errorf("transportation requests = %d, want 1", n)
	}
	var tr models.TransportationRequest
	if err := db.Collection("transportationRequests").FindOne(ctx, bson.M{"_id": placeholder.ID}).Decode(&tr); err != nil {
		t.Fatalf("load ride: %v", err)
	}
	if tr.PickupLocation != "1.500000, 2.500000" || !tr.TransportationVerified {
		t.Errorf("ride = %q verified=%v", tr.PickupLocation, tr.TransportationVerified)
	}
}

func TestHandleUpload_WithoutLocation(t *testing.T) {
	h, db, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	requester := fx.CreateUser(ctx, "Req", "req@example.com", "O+")
	donor := fx.CreateUser(ctx, "Donor", "donor@example.com", "O+")
	br := fx.CreateBloodRequest(ctx, requester.ID, "O+")
	acc := fx.CreateAcceptance(ctx, br.ID, donor.ID, "O+")

	rec := upload(t, h, donor, map[string]any{"image": photo, "acceptedRequestId": acc.ID.Hex()})
	rec.AssertStatus(t, http.StatusCreated)

	if n, _ := db.Collection("transportationRequests").CountDocuments(ctx, bson.M{}); n != 0 {
		t.Errorf("transportation requests = %d, want 0", n)
	}
	var got models.AcceptedBloodRequest
	if err := db.Collection("acceptedBloodRequests").FindOne(ctx, bson.M{"_id": acc.ID}).Decode(&got); err != nil {
		t.Fatalf("load acceptance: %v", err)
	}
	if got.Status != models.AcceptanceImageUploaded {
		t.Errorf("acceptance status = %q", got.Status)
	}
}

func TestHandleUpload_Validation(t *testing.T) {
	h, db, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := fx.CreateUser(ctx, "Donor", "donor@example.com", "O+")
	other := fx.CreateUser(ctx, "Other", "other@example.com", "O+")
	br := fx.CreateBloodRequest(ctx, other.ID, "O+")
	othersAcc := fx.CreateAcceptance(ctx, br.ID, other.ID, "O+")

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing image", map[string]any{}, http.StatusBadRequest},
		{"not an image", map[string]any{"image": "data:text/html;base64,PGI+"}, http.StatusBadRequest},
		{"half a location", map[string]any{"image": photo, "latitude": 10.0}, http.StatusBadRequest},
		{"out of range", map[string]any{"image": photo, "latitude": 100.0, "longitude": 0.0}, http.StatusBadRequest},
		{"bad acceptance id", map[string]any{"image": photo, "acceptedRequestId": "nope"}, http.StatusBadRequest},
		{"someone else's acceptance", map[string]any{"image": photo, "acceptedRequestId": othersAcc.ID.Hex()}, http.StatusNotFound},
		{"unknown acceptance", map[string]any{"image": photo, "acceptedRequestId": primitive.NewObjectID().Hex()}, http.StatusNotFound},
		{"standalone photo", map[string]any{"image": photo, "latitude": 10.0, "longitude": 20.0}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upload(t, h, donor, tt.body).AssertStatus(t, tt.status)
		})
	}

	if n, _ := db.Collection("transportationRequests").CountDocuments(ctx, bson.M{}); n != 0 {
		t.Errorf("standalone photo created %d rides, want 0", n)
	}
}

func TestServeListAndGet(t *testing.T) {
	h, _, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := fx.CreateUser(ctx, "Donor", "donor@example.com", "O+")
	other := fx.CreateUser(ctx, "Other", "other@example.com", "O+")

	rec := upload(t, h, donor, map[string]any{"image": photo})
	rec.AssertStatus(t, http.StatusCreated)
	var created struct {
		Image models.DonationImage `json:"image"`
	}
	rec.DecodeJSON(t, &created)

	list := testutil.NewRecorder()
	h.ServeList(list, testutil.WithUser(httptest.NewRequest(http.MethodGet, "/", nil), donor))
	list.AssertStatus(t, http.StatusOK)
	list.AssertContains(t, `"count":1`)

	get := func(u models.User) *testutil.ResponseRecorder {
		req := testutil.WithChiURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", created.Image.ID.Hex())
		rec := testutil.NewRecorder()
		h.ServeGet(rec, testutil.WithUser(req, u))
		return rec
	}
	own := get(donor)
	own.AssertStatus(t, http.StatusOK)
	own.AssertContains(t, `"data":"data:image/jpeg;base64,`)
	get(other).AssertStatus(t, http.StatusNotFound)
}
