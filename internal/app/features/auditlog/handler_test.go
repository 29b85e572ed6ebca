package auditlog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/features/auditlog"
	"github.com/dalemusser/bloodlink/internal/app/store/audit"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.uber.org/zap"
)

type listBody struct {
	Items []struct {
		EventType  string `json:"eventType"`
		ActorName  string `json:"actorName"`
		TargetName string `json:"targetName"`
		Success    bool   `json:"success"`
	} `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
}

func newTestHandler(t *testing.T) (*auditlog.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return auditlog.NewHandler(db, zap.NewNop()), testutil.NewFixtures(t, db)
}

func list(t *testing.T, h *auditlog.Handler, admin models.Admin, target string) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.WithAdmin(testutil.JSONRequest(t, http.MethodGet, target, nil), admin))
	return rec
}

func TestServeList_ResolvesNames(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.CreateAdmin(ctx, "Root", "root@example.com", models.AdminRoleSuperAdmin)
	desk := fx.CreateAdmin(ctx, "Desk", "desk@example.com", models.AdminRoleAdmin, models.PermRegistrations)
	donor := fx.CreateUser(ctx, "Asha", "asha@example.com", "O+")

	now := time.Now().UTC()
	events := []audit.Event{
		{CreatedAt: now.Add(-2 * time.Minute), Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess,
			UserID: &donor.ID, ActorID: &donor.ID, ActorKind: audit.ActorUser, Success: true},
		{CreatedAt: now.Add(-time.Minute), Category: audit.CategoryAdmin, EventType: audit.EventRegistrationVerified,
			UserID: &donor.ID, ActorID: &desk.ID, ActorKind: audit.ActorAdmin, Success: true},
	}
	for _, e := range events {
		if err := h.Audit.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	rec := list(t, h, root, "/api/admin/audit")
	rec.AssertStatus(t, http.StatusOK)

	var body listBody
	rec.DecodeJSON(t, &body)
	if body.Total != 2 || len(body.Items) != 2 {
		t.Fatalf("total = %d, items = %d, want 2", body.Total, len(body.Items))
	}
	first := body.Items[0]
	if first.EventType != audit.EventRegistrationVerified || first.ActorName != "Desk" || first.TargetName != "Asha" {
		t.Errorf("newest item = %+v", first)
	}
	if body.Items[1].ActorName != "Asha" {
		t.Errorf("donor actor name = %q, want Asha", body.Items[1].ActorName)
	}
}

func TestServeList_Filters(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.CreateAdmin(ctx, "Root", "root@example.com", models.AdminRoleSuperAdmin)
	donor := fx.CreateUser(ctx, "Asha", "asha@example.com", "O+")

	old := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 5, 23, 30, 0, 0, time.UTC)
	for _, e := range []audit.Event{
		{CreatedAt: old, Category: audit.CategoryAuth, EventType: audit.EventSignup, UserID: &donor.ID, Success: true},
		{CreatedAt: recent, Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, UserID: &donor.ID},
		{CreatedAt: recent, Category: audit.CategoryAdmin, EventType: audit.EventEventCreated, ActorID: &root.ID, ActorKind: audit.ActorAdmin, Success: true},
	} {
		if err := h.Audit.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	tests := []struct {
		name  string
		query string
		want  int64
	}{
		{"all", "", 3},
		{"auth category", "?category=auth", 2},
		{"event type", "?category=auth&eventType=signup", 1},
		{"user", "?userId=" + donor.ID.Hex(), 2},
		{"actor", "?actorId=" + root.ID.Hex(), 1},
		{"end date is inclusive", "?startDate=2026-03-05&endDate=2026-03-05", 2},
		{"before range", "?endDate=2026-01-09", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := list(t, h, root, "/api/admin/audit"+tt.query)
			rec.AssertStatus(t, http.StatusOK)
			var body listBody
			rec.DecodeJSON(t, &body)
			if body.Total != tt.want {
				t.Errorf("total = %d, want %d", body.Total, tt.want)
			}
		})
	}
}

func TestServeList_BadParams(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	root := fx.CreateAdmin(ctx, "Root", "root@example.com", models.AdminRoleSuperAdmin)

	for _, q := range []string{
		"?category=billing",
		"?category=admin&eventType=signup",
		"?actorId=nope",
		"?userId=123",
		"?startDate=03/05/2026",
		"?endDate=yesterday",
	} {
		t.Run(q, func(t *testing.T) {
			list(t, h, root, "/api/admin/audit"+q).AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestServeList_Pagination(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	root := fx.CreateAdmin(ctx, "Root", "root@example.com", models.AdminRoleSuperAdmin)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 55; i++ {
		if err := h.Audit.Log(ctx, audit.Event{
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			Category:  audit.CategoryAuth,
			EventType: audit.EventLoginSuccess,
			Success:   true,
		}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	var p1, p2 listBody
	list(t, h, root, "/api/admin/audit").DecodeJSON(t, &p1)
	list(t, h, root, "/api/admin/audit?page=2").DecodeJSON(t, &p2)

	if len(p1.Items) != 50 || !p1.HasNext || p1.TotalPages != 2 {
		t.Errorf("page 1: items=%d hasNext=%v totalPages=%d", len(p1.Items), p1.HasNext, p1.TotalPages)
	}
	if len(p2.Items) != 5 || p2.HasNext || p2.Page != 2 {
		t.Errorf("page 2: items=%d hasNext=%v page=%d", len(p2.Items), p2.HasNext, p2.Page)
	}
}

func TestServeCategories(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := testutil.NewRecorder()
	h.ServeCategories(rec, httptest.NewRequest(http.MethodGet, "/api/admin/audit/categories", nil))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, audit.EventBloodGroupCorrected)
	rec.AssertContains(t, audit.EventLoginFailedRateLimit)
}

func TestRoutes_SuperAdminOnly(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	router := auditlog.Routes(h, auth.NewMiddleware(testutil.TestTokens(), zap.NewNop()))

	root := fx.CreateAdmin(ctx, "Root", "root@example.com", models.AdminRoleSuperAdmin)
	desk := fx.CreateAdmin(ctx, "Desk", "desk@example.com", models.AdminRoleAdmin, models.PermAccounts)

	tests := []struct {
		name  string
		admin *models.Admin
		want  int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"admin", &desk, http.StatusForbidden},
		{"superadmin", &root, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.admin != nil {
				a := tt.admin
				tok, err := testutil.TestTokens().IssueAdminToken(a.ID, a.Email, a.Name, a.Role, a.Permissions)
				if err != nil {
					t.Fatalf("IssueAdminToken: %v", err)
				}
				req.Header.Set("Authorization", "Bearer "+tok)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
