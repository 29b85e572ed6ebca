// internal/app/system/auth/tokens.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Token kinds. A token of one kind never verifies as the other.
const (
	KindUser  = "user"
	KindAdmin = "admin"
)

var (
	// ErrInvalidToken covers malformed, badly signed, and expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrWrongKind is returned when a valid token is of the other kind.
	ErrWrongKind = errors.New("token kind not allowed")
)

// Claims are the signed identity claims carried in a bearer token.
type Claims struct {
	Kind        string   `json:"kind"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 identity tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	userTTL  time.Duration
	adminTTL time.Duration
	now      func() time.Time
}

// NewTokenManager returns a manager signing with secret. Non-positive TTLs
// fall back to 7 days for users and 12 hours for admins.
func NewTokenManager(secret, issuer string, userTTL, adminTTL time.Duration) *TokenManager {
	if userTTL <= 0 {
		userTTL = 7 * 24 * time.Hour
	}
	if adminTTL <= 0 {
		adminTTL = 12 * time.Hour
	}
	return &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		userTTL:  userTTL,
		adminTTL: adminTTL,
		now:      time.Now,
	}
}

// UserTTL is how long a user token stays valid.
func (m *TokenManager) UserTTL() time.Duration { return m.userTTL }

// IssueUserToken signs a user token.
func (m *TokenManager) IssueUserToken(id primitive.ObjectID, email, name string) (string, error) {
	return m.issue(Claims{Kind: KindUser, Email: email, Name: name, Role: "user"}, id, m.userTTL)
}

// IssueAdminToken signs an admin token carrying role and permissions.
func (m *TokenManager) IssueAdminToken(id primitive.ObjectID, email, name, role string, perms []string) (string, error) {
	return m.issue(Claims{Kind: KindAdmin, Email: email, Name: name, Role: role, Permissions: perms}, id, m.adminTTL)
}

func (m *TokenManager) issue(c Claims, id primitive.ObjectID, ttl time.Duration) (string, error) {
	now := m.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   id.Hex(),
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Verify parses and validates a token of any kind.
func (m *TokenManager) Verify(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := primitive.ObjectIDFromHex(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAdmin accepts only admin tokens.
func (m *TokenManager) VerifyAdmin(tokenStr string) (*Claims, error) {
	c, err := m.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if c.Kind != KindAdmin {
		return nil, ErrWrongKind
	}
	return c, nil
}

// VerifyUser accepts only user tokens.
func (m *TokenManager) VerifyUser(tokenStr string) (*Claims, error) {
	c, err := m.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if c.Kind != KindUser {
		return nil, ErrWrongKind
	}
	return c, nil
}
