// internal/app/features/authgoogle/login.go
package authgoogle

import (
	"net/http"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/google                                                         |
| Redirects to Google's consent screen. The state is kept both in the          |
| database (one-time use) and in a signed cookie bound to this browser.        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	returnURL := query.Get(r, "return")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "save oauth state")
	defer cancel()

	if err := h.States.Save(ctx, state, returnURL, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	sess, err := h.Cookies.New(r, stateCookieName)
	if err != nil {
		h.Log.Debug("discarding unreadable oauth cookie", zap.Error(err))
	}
	sess.Values["state"] = state
	if err := sess.Save(r, w); err != nil {
		h.Log.Error("save oauth cookie failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	url := h.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}
