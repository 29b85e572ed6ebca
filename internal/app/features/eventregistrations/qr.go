// internal/app/features/eventregistrations/qr.go
package eventregistrations

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/skip2/go-qrcode"
)

// qrSize is the PNG edge length in pixels.
const qrSize = 256

// ServeQR handles GET /api/event-registrations/{id}/qr and returns the
// check-in code as a PNG for the owner or an admin.
func (h *Handler) ServeQR(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "registration qr")
	defer cancel()

	reg, ok := h.loadVisible(ctx, w, r, urlID(r))
	if !ok {
		return
	}

	png, err := qrcode.Encode(reg.AlphanumericToken, qrcode.Medium, qrSize)
	if err != nil {
		respond.Internal(w, h.Log, "encode qr", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
