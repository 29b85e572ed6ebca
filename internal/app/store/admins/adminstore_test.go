package adminstore_test

import (
	"errors"
	"testing"

	adminstore "github.com/dalemusser/bloodlink/internal/app/store/admins"
	"github.com/dalemusser/bloodlink/internal/app/system/indexes"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := adminstore.New(db)

	a, err := store.Create(ctx, models.Admin{
		Email:        "Ops@Example.com",
		Name:         "Ops",
		PasswordHash: "hash",
		Permissions:  []string{models.PermEvents},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Role != models.AdminRoleAdmin {
		t.Errorf("Role = %q, want admin default", a.Role)
	}
	got, err := store.GetByEmail(ctx, "ops@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != a.ID {
		t.Error("GetByEmail returned a different admin")
	}

	if _, err := store.Create(ctx, models.Admin{Email: "ops@example.com", PasswordHash: "h"}); !errors.Is(err, adminstore.ErrDuplicateEmail) {
		t.Errorf("duplicate Create = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_CreateValidates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := adminstore.New(db)

	tests := []struct {
		name  string
		admin models.Admin
		want  error
	}{
		{"bad role", models.Admin{Email: "a@example.com", Role: "owner"}, adminstore.ErrBadRole},
		{"bad permission", models.Admin{Email: "b@example.com", Permissions: []string{"everything"}}, adminstore.ErrBadPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.admin); !errors.Is(err, tt.want) {
				t.Errorf("Create = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_EnsureSuperAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := adminstore.New(db)

	created, err := store.EnsureSuperAdmin(ctx, "root@example.com", "Root", "hash1")
	if err != nil || !created {
		t.Fatalf("first EnsureSuperAdmin = %v, %v; want created", created, err)
	}
	created, err = store.EnsureSuperAdmin(ctx, "ROOT@example.com", "Root", "hash2")
	if err != nil || created {
		t.Fatalf("second EnsureSuperAdmin = %v, %v; want not created", created, err)
	}
	a, err := store.GetByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if a.Role != models.AdminRoleSuperAdmin || a.PasswordHash != "hash1" {
		t.Errorf("got role %q hash %q; existing account must be untouched", a.Role, a.PasswordHash)
	}
}

func TestStore_UpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := adminstore.New(db)

	a := fx.CreateAdmin(ctx, "Staff", "staff@example.com", models.AdminRoleAdmin)
	perms := []string{models.PermTransport, models.PermRegistrations}
	got, err := store.Update(ctx, a.ID, adminstore.Update{Permissions: &perms})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(got.Permissions) != 2 {
		t.Errorf("Permissions = %v", got.Permissions)
	}
	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, a.ID); !errors.Is(err, adminstore.ErrNotFound) {
		t.Errorf("GetByID after delete = %v, want ErrNotFound", err)
	}
}
