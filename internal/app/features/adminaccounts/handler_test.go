package adminaccounts_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/bloodlink/internal/app/features/adminaccounts"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/indexes"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*adminaccounts.Handler, *testutil.Fixtures, models.Admin) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateAdmin(ctx, "Ops", "ops@example.com", models.AdminRoleAdmin, models.PermAccounts)
	return adminaccounts.NewHandler(nil, db, nil, zap.NewNop()), fx, admin
}

func TestServeList_Filters(t *testing.T) {
	h, fx, admin := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUser(ctx, "Anita Sharma", "anita@example.com", "O+")
	fx.CreateUser(ctx, "Arjun Mehta", "arjun@example.com", "A-")
	fx.CreateUser(ctx, "Bela Roy", "bela@example.com", "O+")

	tests := []struct {
		target string
		want   int
		status int
	}{
		{"/api/admin/accounts", 3, http.StatusOK},
		{"/api/admin/accounts?search=ar", 1, http.StatusOK},
		{"/api/admin/accounts?search=an", 1, http.StatusOK},
		{"/api/admin/accounts?bloodGroup=o%2B", 2, http.StatusOK},
		{"/api/admin/accounts?bloodGroup=Z", 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.ServeList(rec, testutil.WithAdmin(testutil.JSONRequest(t, http.MethodGet, tt.target, nil), admin))
			rec.AssertStatus(t, tt.status)
			if tt.status != http.StatusOK {
				return
			}
			var body struct {
				Count int `json:"count"`
			}
			rec.DecodeJSON(t, &body)
			if body.Count != tt.want {
				t.Errorf("count = %d, want %d", body.Count, tt.want)
			}
		})
	}
}

func TestHandleUpdate(t *testing.T) {
	h, fx, admin := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Anita", "anita@example.com", "O+")
	fx.CreateUser(ctx, "Bela", "bela@example.com", "O+")

	patch := func(id string, body map[string]any) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		req := testutil.JSONRequest(t, http.MethodPatch, "/api/admin/accounts/"+id, body)
		h.HandleUpdate(rec, testutil.WithChiURLParam(testutil.WithAdmin(req, admin), "id", id))
		return rec
	}

	rec := patch(u.ID.Hex(), map[string]any{"bloodGroup": "o-", "bloodGroupVerified": true, "totalDonations": 4})
	rec.AssertStatus(t, http.StatusOK)
	got, _ := h.Users.GetByID(ctx, u.ID)
	if got.BloodGroup != "O-" || !got.BloodGroupVerified || got.TotalDonations != 4 {
		t.Errorf("after update = %+v", got)
	}

	patch(u.ID.Hex(), map[string]any{"email": "BELA@example.com"}).AssertStatus(t, http.StatusBadRequest)
	patch(u.ID.Hex(), map[string]any{"totalDonations": -1}).AssertStatus(t, http.StatusBadRequest)
	patch(u.ID.Hex(), map[string]any{}).AssertStatus(t, http.StatusBadRequest)
	patch("000000000000000000000000", map[string]any{"name": "X"}).AssertStatus(t, http.StatusNotFound)
}

func TestRoutes_RequireAccountsPermission(t *testing.T) {
	h, fx, admin := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Anita", "anita@example.com", "O+")
	other := fx.CreateAdmin(ctx, "Events", "events@example.com", models.AdminRoleAdmin, models.PermEvents)
	router := adminaccounts.Routes(h, auth.NewMiddleware(testutil.TestTokens(), zap.NewNop()))

	token := func(a models.Admin) string {
		tok, err := testutil.TestTokens().IssueAdminToken(a.ID, a.Email, a.Name, a.Role, a.Permissions)
		if err != nil {
			t.Fatalf("IssueAdminToken: %v", err)
		}
		return tok
	}
	userTok, err := testutil.TestTokens().IssueUserToken(u.ID, u.Email, u.Name)
	if err != nil {
		t.Fatalf("IssueUserToken: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"user token", userTok, http.StatusForbidden},
		{"admin without permission", token(other), http.StatusForbidden},
		{"admin with permission", token(admin), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.JSONRequest(t, http.MethodGet, "/"+u.ID.Hex(), nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, req)
			rec.AssertStatus(t, tt.want)
		})
	}
}

func TestHandleDelete(t *testing.T) {
	h, fx, admin := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Anita", "anita@example.com", "O+")

	del := func() *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		req := testutil.JSONRequest(t, http.MethodDelete, "/api/admin/accounts/"+u.ID.Hex(), nil)
		h.HandleDelete(rec, testutil.WithChiURLParam(testutil.WithAdmin(req, admin), "id", u.ID.Hex()))
		return rec
	}
	del().AssertStatus(t, http.StatusOK)
	del().AssertStatus(t, http.StatusNotFound)
}
