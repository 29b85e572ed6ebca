package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	return body
}

func TestErrorWith_MergesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorWith(rec, http.StatusBadRequest, "too soon", map[string]any{"daysRemaining": 60, "error": "overwritten"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	body := decode(t, rec)
	if body["error"] != "too soon" {
		t.Errorf("error = %v, want %q", body["error"], "too soon")
	}
	if body["daysRemaining"] != float64(60) {
		t.Errorf("daysRemaining = %v, want 60", body["daysRemaining"])
	}
}

func TestInternal_HidesDetailByDefault(t *testing.T) {
	SetDetailedErrors(false)
	rec := httptest.NewRecorder()
	Internal(rec, zap.NewNop(), "load event", errors.New("connection refused"))

	body := decode(t, rec)
	if body["error"] != "Internal server error" {
		t.Errorf("error = %v, want generic message", body["error"])
	}
}

func TestInternal_DetailedInDev(t *testing.T) {
	SetDetailedErrors(true)
	defer SetDetailedErrors(false)

	rec := httptest.NewRecorder()
	Internal(rec, zap.NewNop(), "load event", errors.New("connection refused"))

	body := decode(t, rec)
	if body["error"] != "load event: connection refused" {
		t.Errorf("error = %v", body["error"])
	}
}
