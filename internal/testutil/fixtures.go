package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert into %s: %v", coll, err)
	}
}

// CreateUser creates a donor with the given blood group and no donation
// history.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, bloodGroup string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        strings.ToLower(email),
		Name:         name,
		NameCI:       text.Fold(name),
		AuthProvider: "password",
		BloodGroup:   bloodGroup,
		Role:         "user",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateUserWith inserts u after filling in ID and timestamps if unset.
func (f *Fixtures) CreateUserWith(ctx context.Context, u models.User) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Role == "" {
		u.Role = "user"
	}
	if u.AuthProvider == "" {
		u.AuthProvider = "password"
	}
	u.Email = strings.ToLower(u.Email)
	u.NameCI = text.Fold(u.Name)
	u.CreatedAt, u.UpdatedAt = now, now
	f.insert(ctx, "users", u)
	return u
}

// CreateDonorWithLastDonation creates a donor whose last donation was
// daysAgo days before now.
func (f *Fixtures) CreateDonorWithLastDonation(ctx context.Context, name, email, bloodGroup string, daysAgo int) models.User {
	f.t.Helper()
	last := time.Now().UTC().Add(-time.Duration(daysAgo) * 24 * time.Hour)
	return f.CreateUserWith(ctx, models.User{
		Name:             name,
		Email:            email,
		BloodGroup:       bloodGroup,
		LastDonationDate: &last,
		TotalDonations:   1,
	})
}

// CreateAdmin creates an admin with the given role and permissions. The
// stored password hash is a placeholder; use the admin store to create
// admins that must log in.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email, role string, perms ...string) models.Admin {
	f.t.Helper()
	now := time.Now().UTC()
	a := models.Admin{
		ID:           primitive.NewObjectID(),
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: "x",
		Role:         role,
		Permissions:  perms,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "admins", a)
	return a
}

// CreateEvent creates an active event open for registrations.
func (f *Fixtures) CreateEvent(ctx context.Context, title string, slots int) models.Event {
	f.t.Helper()
	now := time.Now().UTC()
	e := models.Event{
		ID:                   primitive.NewObjectID(),
		Title:                title,
		Location:             "Community Hall",
		EventDate:            now.Add(7 * 24 * time.Hour),
		StartTime:            "09:00",
		EndTime:              "17:00",
		VolunteerSlotsNeeded: slots,
		Status:               models.EventActive,
		AllowRegistrations:   true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	f.insert(ctx, "events", e)
	return e
}

// CreateRegistration creates a pending registration. An empty token
// produces a legacy record without one. The event's registered count is
// not touched.
func (f *Fixtures) CreateRegistration(ctx context.Context, eventID, userID primitive.ObjectID, token string) models.EventRegistration {
	f.t.Helper()
	now := time.Now().UTC()
	r := models.EventRegistration{
		ID:                 primitive.NewObjectID(),
		EventID:            eventID,
		UserID:             userID,
		Name:               "Test Donor",
		RegistrationNumber: "REG-1",
		TimeSlot:           "10:00-11:00",
		AlphanumericToken:  token,
		DonationStatus:     models.DonationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.insert(ctx, "event_registrations", r)
	return r
}

// CreateBloodRequest creates an active request.
func (f *Fixtures) CreateBloodRequest(ctx context.Context, requesterID primitive.ObjectID, bloodGroup string) models.BloodRequest {
	f.t.Helper()
	now := time.Now().UTC()
	br := models.BloodRequest{
		ID:               primitive.NewObjectID(),
		RequesterID:      requesterID,
		RequesterName:    "Requester",
		RequesterEmail:   "requester@example.com",
		RequestFor:       models.RequestForSelf,
		BloodGroup:       bloodGroup,
		Quantity:         2,
		Urgency:          models.UrgencyHigh,
		HospitalName:     "City Hospital",
		HospitalLocation: "12 Main Street",
		DocumentImage:    "data:image/png;base64,iVBORw0KGgo=",
		Status:           models.RequestActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.insert(ctx, "bloodRequests", br)
	return br
}

// CreateAcceptance records that userID accepted requestID.
func (f *Fixtures) CreateAcceptance(ctx context.Context, requestID, userID primitive.ObjectID, bloodGroup string) models.AcceptedBloodRequest {
	f.t.Helper()
	now := time.Now().UTC()
	a := models.AcceptedBloodRequest{
		ID:             primitive.NewObjectID(),
		BloodRequestID: requestID,
		UserID:         userID,
		DonorName:      "Donor",
		BloodGroup:     bloodGroup,
		Status:         models.AcceptanceAccepted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "acceptedBloodRequests", a)
	return a
}

// CreateTransportationRequest creates a pending request owned by userID.
func (f *Fixtures) CreateTransportationRequest(ctx context.Context, userID primitive.ObjectID) models.TransportationRequest {
	f.t.Helper()
	now := time.Now().UTC()
	tr := models.TransportationRequest{
		ID:             primitive.NewObjectID(),
		UserID:         userID,
		PickupLocation: "Home",
		DropLocation:   "City Hospital",
		Status:         models.TransportPending,
		CreatedBy:      models.CreatedByUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "transportationRequests", tr)
	return tr
}
