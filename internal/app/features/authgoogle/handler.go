// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auditlog"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookieName = "bloodlink_oauth"
	stateTTL        = 10 * time.Minute

	// DefaultUserInfoURL is Google's v2 userinfo endpoint.
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Handler signs donors in with Google. A first sign-in creates the account.
type Handler struct {
	Users    *userstore.Store
	States   *oauthstate.Store
	Cookies  *sessions.CookieStore
	Tokens   *auth.TokenManager
	AuditLog *auditlog.Logger
	Log      *zap.Logger

	OAuth       *oauth2.Config
	UserInfoURL string

	// SecureCookies marks the token cookie Secure.
	SecureCookies bool
}

// NewHandler wires the handler for Google's production endpoints. The
// callback is served at baseURL + "/api/auth/google/callback".
func NewHandler(
	db *mongo.Database,
	tokens *auth.TokenManager,
	cookies *sessions.CookieStore,
	audit *auditlog.Logger,
	clientID, clientSecret, baseURL string,
	secureCookies bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		States:   oauthstate.New(db),
		Cookies:  cookies,
		Tokens:   tokens,
		AuditLog: audit,
		Log:      logger,
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + "/api/auth/google/callback",
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		UserInfoURL:   DefaultUserInfoURL,
		SecureCookies: secureCookies,
	}
}

// IsConfigured returns true if Google OAuth credentials are present.
func (h *Handler) IsConfigured() bool {
	return h.OAuth != nil && h.OAuth.ClientID != "" && h.OAuth.ClientSecret != ""
}

// NewStateCookies builds the signed cookie store that carries the OAuth state
// between the redirect and the callback. An empty key gets a random one, which
// invalidates in-flight sign-ins on restart.
func NewStateCookies(key string, secure bool, logger *zap.Logger) (*sessions.CookieStore, error) {
	var raw []byte
	switch {
	case key == "":
		raw = securecookie.GenerateRandomKey(32)
		if raw == nil {
			return nil, fmt.Errorf("generate session key")
		}
		logger.Warn("session_key not set; using a random key for OAuth state cookies")
	case len(key) < 32:
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(key)))
		raw = []byte(key)
	default:
		raw = []byte(key)
	}

	store := sessions.NewCookieStore(raw)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(stateTTL / time.Second),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
