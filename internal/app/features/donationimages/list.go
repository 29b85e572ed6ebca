// internal/app/features/donationimages/list.go
package donationimages

import (
	"errors"
	"net/http"

	donationimagestore "github.com/dalemusser/bloodlink/internal/app/store/donationimages"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList handles GET /api/donation-images. Image data is left out.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list donation images")
	defer cancel()

	out, err := h.Images.ListByUser(ctx, me.ID)
	if err != nil {
		respond.Internal(w, h.Log, "list donation images", err)
		return
	}
	respond.OK(w, map[string]any{"images": out, "count": len(out)})
}

// ServeGet handles GET /api/donation-images/{id} and includes the image.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "Invalid image id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get donation image")
	defer cancel()

	img, err := h.Images.GetForUser(ctx, id, me.ID)
	if errors.Is(err, donationimagestore.ErrNotFound) {
		respond.NotFound(w, "Image not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "get donation image", err)
		return
	}
	respond.OK(w, map[string]any{"image": img, "data": img.Image})
}
