package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/indexes"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	created, err := store.Create(ctx, models.User{
		Name:       "  Asha   Rao ",
		Email:      " Asha@Example.COM ",
		BloodGroup: "O+",
		Phone:      "+91 98765-43210",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Email != "asha@example.com" {
		t.Errorf("Email = %q, want normalized", created.Email)
	}
	if created.Name != "Asha Rao" {
		t.Errorf("Name = %q, want collapsed", created.Name)
	}
	if created.Phone != "+919876543210" {
		t.Errorf("Phone = %q", created.Phone)
	}
	if created.Role != "user" || created.AuthProvider != "password" {
		t.Errorf("Role/AuthProvider = %q/%q", created.Role, created.AuthProvider)
	}

	_, err = store.Create(ctx, models.User{Name: "Other", Email: "ASHA@example.com"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("duplicate Create error = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_GetByEmail_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := userstore.New(db).GetByEmail(ctx, "nobody@example.com")
	if !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("GetByEmail error = %v, want ErrNotFound", err)
	}
}

func TestStore_FindOrCreateOAuth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := userstore.New(db)

	u1, created, err := store.FindOrCreateOAuth(ctx, "G@Example.com", "Gita", userstore.ProviderGoogle)
	if err != nil {
		t.Fatalf("first FindOrCreateOAuth: %v", err)
	}
	if !created {
		t.Error("first sign-in should create the user")
	}
	u2, created, err := store.FindOrCreateOAuth(ctx, "g@example.com", "Gita Changed", userstore.ProviderGoogle)
	if err != nil {
		t.Fatalf("second FindOrCreateOAuth: %v", err)
	}
	if created {
		t.Error("second sign-in should not create")
	}
	if u1.ID != u2.ID {
		t.Error("expected same user on second sign-in")
	}
	if u2.Name != "Gita" {
		t.Errorf("Name = %q, existing name should be kept", u2.Name)
	}
}

func TestStore_RecordDonation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := userstore.New(db)

	u := fx.CreateUser(ctx, "Donor", "d@example.com", "A+")
	at := time.Now().UTC().Truncate(time.Millisecond)
	got, err := store.RecordDonation(ctx, u.ID, at)
	if err != nil {
		t.Fatalf("RecordDonation: %v", err)
	}
	if got.TotalDonations != 1 {
		t.Errorf("TotalDonations = %d, want 1", got.TotalDonations)
	}
	if got.LastDonationDate == nil || !got.LastDonationDate.Equal(at) {
		t.Errorf("LastDonationDate = %v, want %v", got.LastDonationDate, at)
	}

	if _, err := store.RecordDonation(ctx, primitive.NewObjectID(), at); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("RecordDonation unknown user = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateProfile_BloodGroupResetsVerified(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := userstore.New(db)

	u := fx.CreateUserWith(ctx, models.User{Name: "V", Email: "v@example.com", BloodGroup: "B+", BloodGroupVerified: true})
	bg := "B-"
	got, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{BloodGroup: &bg})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.BloodGroup != "B-" || got.BloodGroupVerified {
		t.Errorf("got %q verified=%v, want B- unverified", got.BloodGroup, got.BloodGroupVerified)
	}

	if err := store.SetVerifiedBloodGroup(ctx, u.ID, "AB+"); err != nil {
		t.Fatalf("SetVerifiedBloodGroup: %v", err)
	}
	again, _ := store.GetByID(ctx, u.ID)
	if again.BloodGroup != "AB+" || !again.BloodGroupVerified {
		t.Errorf("after lab update got %q verified=%v", again.BloodGroup, again.BloodGroupVerified)
	}
}

func TestStore_ContactsByBloodGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := userstore.New(db)

	requester := fx.CreateUser(ctx, "Req", "req@example.com", "O-")
	fx.CreateUser(ctx, "Match", "m@example.com", "O-")
	fx.CreateUser(ctx, "Other", "o@example.com", "A+")

	matches, err := store.ContactsByBloodGroup(ctx, "O-", requester.ID)
	if err != nil {
		t.Fatalf("ContactsByBloodGroup: %v", err)
	}
	if len(matches) != 1 || matches[0].Email != "m@example.com" {
		t.Errorf("matches = %+v, want only m@example.com", matches)
	}

	all, err := store.AllContacts(ctx, requester.ID)
	if err != nil {
		t.Fatalf("AllContacts: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("AllContacts len = %d, want 2", len(all))
	}
}

func TestStore_ListSearch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := userstore.New(db)

	fx.CreateUser(ctx, "Ravi Kumar", "ravi@example.com", "A+")
	fx.CreateUser(ctx, "Meena", "meena@example.com", "A+")

	got, err := store.List(ctx, userstore.ListFilter{Search: "rav"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Ravi Kumar" {
		t.Errorf("List = %+v, want Ravi Kumar", got)
	}
	if got[0].PasswordHash != "" {
		t.Error("List should not return password hashes")
	}
}
