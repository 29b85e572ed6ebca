package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/domain/models"
)

// TestJWTSecret signs tokens in handler and middleware tests.
const TestJWTSecret = "test-secret-test-secret-test-secret-0123"

// TestTokens returns a token manager for tests.
func TestTokens() *auth.TokenManager {
	return auth.NewTokenManager(TestJWTSecret, "bloodlink-test", 0, 0)
}

// UserIdentity converts a user fixture into a request identity.
func UserIdentity(u models.User) *auth.Identity {
	return &auth.Identity{
		ID:    u.ID,
		Kind:  auth.KindUser,
		Email: u.Email,
		Name:  u.Name,
		Role:  "user",
	}
}

// AdminIdentity converts an admin fixture into a request identity.
func AdminIdentity(a models.Admin) *auth.Identity {
	return &auth.Identity{
		ID:          a.ID,
		Kind:        auth.KindAdmin,
		Email:       a.Email,
		Name:        a.Name,
		Role:        a.Role,
		Permissions: a.Permissions,
	}
}

// WithUser injects u into the request, bypassing token parsing.
func WithUser(r *http.Request, u models.User) *http.Request {
	return auth.WithIdentity(r, UserIdentity(u))
}

// WithAdmin injects a into the request, bypassing token parsing.
func WithAdmin(r *http.Request, a models.Admin) *http.Request {
	return auth.WithIdentity(r, AdminIdentity(a))
}

// JSONRequest builds a request with body encoded as JSON.
func JSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t testing.TB, expected int) {
	t.Helper()
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body: %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t testing.TB, expected string) {
	t.Helper()
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q: %s", expected, r.Body.String())
	}
}

// DecodeJSON decodes the body into dst.
func (r *ResponseRecorder) DecodeJSON(t testing.TB, dst any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response body: %v (body: %s)", err, r.Body.String())
	}
}

// ErrorMessage returns the "error" field of a JSON error body.
func (r *ResponseRecorder) ErrorMessage(t testing.TB) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	r.DecodeJSON(t, &body)
	return body.Error
}
