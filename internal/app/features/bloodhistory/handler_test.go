package bloodhistory_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/bloodlink/internal/app/features/bloodhistory"
	"github.com/dalemusser/bloodlink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type historyBody struct {
	Count   int `json:"count"`
	History []struct {
		Status       string `json:"status"`
		BloodRequest *struct {
			HospitalName  string `json:"hospitalName"`
			DocumentImage string `json:"documentImage"`
		} `json:"bloodRequest"`
		Donor *struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"donor"`
	} `json:"history"`
}

func TestServeList_JoinsRequestAndDonor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := bloodhistory.NewHandler(db, zap.NewNop())

	requester := fx.CreateUser(ctx, "Req", "req@example.com", "B+")
	donor := fx.CreateUser(ctx, "Dev", "dev@example.com", "B+")
	gone := fx.CreateUser(ctx, "Gone", "gone@example.com", "B+")
	br := fx.CreateBloodRequest(ctx, requester.ID, "B+")
	fx.CreateAcceptance(ctx, br.ID, donor.ID, "B+")
	fx.CreateAcceptance(ctx, br.ID, gone.ID, "B+")
	if _, err := db.Collection("users").DeleteOne(ctx, bson.M{"_id": gone.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.JSONRequest(t, http.MethodGet, "/api/admin/blood-history", nil))
	rec.AssertStatus(t, http.StatusOK)

	var body historyBody
	rec.DecodeJSON(t, &body)
	if body.Count != 2 {
		t.Fatalf("count = %d, want 2", body.Count)
	}
	withDonor, orphan := 0, 0
	for _, e := range body.History {
		if e.BloodRequest == nil || e.BloodRequest.HospitalName != "City Hospital" {
			t.Errorf("request not joined: %+v", e.BloodRequest)
		}
		if e.BloodRequest != nil && e.BloodRequest.DocumentImage != "" {
			t.Error("document image leaked into history")
		}
		if e.Donor == nil {
			orphan++
			continue
		}
		if e.Donor.Email == "dev@example.com" {
			withDonor++
		}
	}
	if withDonor != 1 || orphan != 1 {
		t.Errorf("withDonor=%d orphan=%d", withDonor, orphan)
	}
}

func TestServeList_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := bloodhistory.NewHandler(db, zap.NewNop())

	requester := fx.CreateUser(ctx, "Req", "req@example.com", "B+")
	donor := fx.CreateUser(ctx, "Dev", "dev@example.com", "B+")
	br1 := fx.CreateBloodRequest(ctx, requester.ID, "B+")
	br2 := fx.CreateBloodRequest(ctx, requester.ID, "O-")
	fx.CreateAcceptance(ctx, br1.ID, donor.ID, "B+")
	fx.CreateAcceptance(ctx, br2.ID, donor.ID, "O-")

	tests := []struct {
		query string
		want  int
		code  int
	}{
		{"?bloodRequestId=" + br1.ID.Hex(), 1, http.StatusOK},
		{"?userId=" + donor.ID.Hex(), 2, http.StatusOK},
		{"?bloodGroup=o-", 1, http.StatusOK},
		{"?status=fulfilled", 0, http.StatusOK},
		{"?userId=zzz", 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.ServeList(rec, testutil.JSONRequest(t, http.MethodGet, "/api/admin/blood-history"+tt.query, nil))
			rec.AssertStatus(t, tt.code)
			if tt.code != http.StatusOK {
				return
			}
			var body historyBody
			rec.DecodeJSON(t, &body)
			if body.Count != tt.want {
				t.Errorf("count = %d, want %d", body.Count, tt.want)
			}
		})
	}
}
