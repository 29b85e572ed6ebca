// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Identity in request context                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// Identity is the verified caller injected into r.Context().
type Identity struct {
	ID          primitive.ObjectID
	Kind        string // user | admin
	Email       string
	Name        string
	Role        string
	Permissions []string
}

// IsAdmin reports whether the identity came from an admin token.
func (i *Identity) IsAdmin() bool { return i != nil && i.Kind == KindAdmin }

// IsSuperAdmin reports whether the identity is a superadmin.
func (i *Identity) IsSuperAdmin() bool {
	return i.IsAdmin() && i.Role == models.AdminRoleSuperAdmin
}

// HasPermission reports whether an admin may use perm. Superadmins and
// admins with no explicit list have every permission.
func (i *Identity) HasPermission(perm string) bool {
	if !i.IsAdmin() {
		return false
	}
	if i.IsSuperAdmin() || len(i.Permissions) == 0 {
		return true
	}
	for _, p := range i.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

type ctxKey string

const identityKey ctxKey = "identity"

// Current returns the caller of any kind.
func Current(r *http.Request) (*Identity, bool) {
	id, ok := r.Context().Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// CurrentUser returns the caller when it holds a user token.
func CurrentUser(r *http.Request) (*Identity, bool) {
	id, ok := Current(r)
	if !ok || id.Kind != KindUser {
		return nil, false
	}
	return id, true
}

// CurrentAdmin returns the caller when it holds an admin token.
func CurrentAdmin(r *http.Request) (*Identity, bool) {
	id, ok := Current(r)
	if !ok || id.Kind != KindAdmin {
		return nil, false
	}
	return id, true
}

// WithIdentity returns r carrying id. Tests use it to bypass token parsing.
func WithIdentity(r *http.Request, id *Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

func identityFromClaims(c *Claims) *Identity {
	oid, _ := primitive.ObjectIDFromHex(c.Subject)
	return &Identity{
		ID:          oid,
		Kind:        c.Kind,
		Email:       c.Email,
		Name:        c.Name,
		Role:        c.Role,
		Permissions: c.Permissions,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Middleware verifies bearer tokens and enforces identity requirements.
type Middleware struct {
	Tokens *TokenManager
	Log    *zap.Logger
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(tokens *TokenManager, logger *zap.Logger) *Middleware {
	return &Middleware{Tokens: tokens, Log: logger}
}

// TokenCookieName is the cookie set after Google sign-in.
const TokenCookieName = "token"

// BearerToken extracts the token from the Authorization header, falling back
// to the TokenCookieName cookie.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(TokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

// resolve verifies the request's token, trying the admin kind first and
// falling back to the user kind.
func (m *Middleware) resolve(r *http.Request) (*Identity, error) {
	tok := BearerToken(r)
	if tok == "" {
		return nil, ErrInvalidToken
	}
	if c, err := m.Tokens.VerifyAdmin(tok); err == nil {
		return identityFromClaims(c), nil
	}
	c, err := m.Tokens.VerifyUser(tok)
	if err != nil {
		return nil, err
	}
	return identityFromClaims(c), nil
}

// LoadAny injects the caller if a valid token is present and
// otherwise lets the request through anonymously.
func (m *Middleware) LoadAny(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := Current(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		if id, err := m.resolve(r); err == nil {
			r = WithIdentity(r, id)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn requires a token of either kind.
func (m *Middleware) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := Current(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		id, err := m.resolve(r)
		if err != nil {
			respond.Unauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, WithIdentity(r, id))
	})
}

// RequireUser requires a user token. An admin token is a 403.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return m.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			respond.Forbidden(w, "This action requires a user account")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireAdmin requires an admin token holding every listed permission.
func (m *Middleware) RequireAdmin(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := CurrentAdmin(r)
			if !ok {
				respond.Forbidden(w, "Admin access required")
				return
			}
			for _, p := range perms {
				if !id.HasPermission(p) {
					m.Log.Warn("admin permission denied",
						zap.String("admin_id", id.ID.Hex()),
						zap.String("permission", p),
						zap.String("path", r.URL.Path))
					respond.Forbidden(w, "You do not have permission to perform this action")
					return
				}
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// RequireSuperAdmin requires a superadmin token.
func (m *Middleware) RequireSuperAdmin(next http.Handler) http.Handler {
	return m.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := CurrentAdmin(r)
		if !ok || !id.IsSuperAdmin() {
			respond.Forbidden(w, "Superadmin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
