// internal/app/features/authgoogle/callback.go
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

var errUnverifiedEmail = errors.New("google email not verified")

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/google/callback                                                |
| Exchanges the code, finds or creates the donor, and hands the bearer token   |
| to the browser as an HttpOnly cookie.                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", q.Get("error_description")))
		h.fail(w, r, "google_denied")
		return
	}

	state := q.Get("state")
	if state == "" || !h.cookieStateMatches(w, r, state) {
		h.Log.Warn("OAuth state missing or not bound to this browser")
		h.fail(w, r, "invalid_state")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "google callback")
	defer cancel()

	returnURL, valid, err := h.States.Validate(ctx, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		h.fail(w, r, "invalid_state")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, r, "invalid_code")
		return
	}
	tok, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.fail(w, r, "token_exchange")
		return
	}

	info, err := h.fetchUserInfo(ctx, tok)
	if errors.Is(err, errUnverifiedEmail) {
		h.fail(w, r, "email_unverified")
		return
	}
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.fail(w, r, "user_info")
		return
	}

	u, created, err := h.Users.FindOrCreateOAuth(ctx, info.Email, info.Name, userstore.ProviderGoogle)
	if err != nil {
		h.Log.Error("failed to find or create user", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}
	if created {
		h.AuditLog.Signup(ctx, r, u.ID, userstore.ProviderGoogle)
	}

	token, err := h.Tokens.IssueUserToken(u.ID, u.Email, u.Name)
	if err != nil {
		h.Log.Error("issue token failed", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Tokens.UserTTL().Seconds()),
		Secure:   h.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.AuditLog.LoginSuccess(ctx, r, auth.KindUser, u.ID, userstore.ProviderGoogle, u.Email)
	h.Log.Info("user logged in via Google OAuth",
		zap.String("user_id", u.ID.Hex()),
		zap.Bool("created", created))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

// cookieStateMatches compares state with the value stored by ServeLogin and
// expires the cookie either way.
func (h *Handler) cookieStateMatches(w http.ResponseWriter, r *http.Request, state string) bool {
	sess, err := h.Cookies.Get(r, stateCookieName)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			h.Log.Warn("oauth cookie invalid", zap.Error(err))
		} else {
			h.Log.Error("oauth cookie store error", zap.Error(err))
		}
		return false
	}
	want, _ := sess.Values["state"].(string)

	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		h.Log.Warn("clear oauth cookie failed", zap.Error(err))
	}
	return want != "" && want == state
}

func (h *Handler) fetchUserInfo(ctx context.Context, tok *oauth2.Token) (*googleUserInfo, error) {
	resp, err := h.OAuth.Client(ctx, tok).Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	if info.Email == "" || !info.EmailVerified {
		return nil, errUnverifiedEmail
	}
	return &info, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+code, http.StatusSeeOther)
}
