// internal/app/features/donationimages/upload.go
package donationimages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	acceptancestore "github.com/dalemusser/bloodlink/internal/app/store/acceptances"
	bloodrequeststore "github.com/dalemusser/bloodlink/internal/app/store/bloodrequests"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/inputval"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/app/system/txn"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type uploadRequest struct {
	Image             string     `json:"image"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	CapturedAt        *time.Time `json:"capturedAt"`
	AcceptedRequestID string     `json:"acceptedRequestId"`
}

type uploadResponse struct {
	Message               string                        `json:"message"`
	Image                 models.DonationImage          `json:"image"`
	TransportationRequest *models.TransportationRequest `json:"transportationRequest,omitempty"`
}

// location returns the photo's coordinates, or nil when none were sent.
func (req *uploadRequest) location() (*models.GeoPoint, string) {
	if req.Latitude == nil && req.Longitude == nil {
		return nil, ""
	}
	if req.Latitude == nil || req.Longitude == nil {
		return nil, "latitude and longitude must be sent together"
	}
	p := models.GeoPoint{Lat: *req.Latitude, Lng: *req.Longitude}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return nil, "Coordinates are out of range"
	}
	return &p, ""
}

func formatPoint(p models.GeoPoint) string {
	return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lng)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/donation-images                                                    |
| A geotagged photo linked to an acceptance becomes the pickup point of the    |
| donor's ride: the acceptance's placeholder ride is filled in, or a new one   |
| is created. Either way it is marked verified.                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)

	var req uploadRequest
	if err := respond.DecodeJSON(w, r, &req, int64(h.MaxImageBytes)*4/3+16<<10); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	data, _, err := inputval.CheckImage(req.Image, h.MaxImageBytes)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	loc, msg := req.location()
	if msg != "" {
		respond.BadRequest(w, msg)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "upload donation image")
	defer cancel()

	var (
		acc *models.AcceptedBloodRequest
		br  *models.BloodRequest
	)
	if req.AcceptedRequestID != "" {
		accID, err := primitive.ObjectIDFromHex(req.AcceptedRequestID)
		if err != nil {
			respond.BadRequest(w, "Invalid acceptedRequestId")
			return
		}
		acc, err = h.Acceptances.GetForUser(ctx, accID, me.ID)
		if errors.Is(err, acceptancestore.ErrNotFound) {
			respond.NotFound(w, "Accepted request not found")
			return
		}
		if err != nil {
			respond.Internal(w, h.Log, "load acceptance", err)
			return
		}
		br, err = h.Requests.GetByID(ctx, acc.BloodRequestID)
		if errors.Is(err, bloodrequeststore.ErrNotFound) {
			respond.NotFound(w, "Blood request not found")
			return
		}
		if err != nil {
			respond.Internal(w, h.Log, "load blood request", err)
			return
		}
	}

	img := models.DonationImage{
		ID:         primitive.NewObjectID(),
		UserID:     me.ID,
		Image:      data,
		Location:   loc,
		CapturedAt: req.CapturedAt,
	}
	if acc != nil {
		img.AcceptedRequestID = &acc.ID
	}

	saved, tr, err := h.record(ctx, img, acc, br)
	if err != nil {
		respond.Internal(w, h.Log, "record donation image", err)
		return
	}

	fields := []zap.Field{zap.String("image_id", saved.ImageID), zap.String("user_id", me.ID.Hex())}
	if tr != nil {
		fields = append(fields, zap.String("transportation_id", tr.ID.Hex()))
	}
	h.Log.Info("donation image uploaded", fields...)

	respond.Created(w, uploadResponse{Message: "Image uploaded", Image: saved, TransportationRequest: tr})
}

// record stores img and, for a linked acceptance, derives the ride and
// advances the acceptance. Without transaction support a failure removes
// the image and any ride created here.
func (h *Handler) record(ctx context.Context, img models.DonationImage, acc *models.AcceptedBloodRequest, br *models.BloodRequest) (models.DonationImage, *models.TransportationRequest, error) {
	var (
		saved   models.DonationImage
		tr      *models.TransportationRequest
		created bool
	)
	newTrID := primitive.NewObjectID()

	err := txn.Run(ctx, h.Client, h.Log, func(tctx context.Context) error {
		tr, created = nil, false
		s, err := h.Images.Create(tctx, img)
		if err != nil {
			return err
		}
		saved = s
		if acc == nil {
			return nil
		}

		if img.Location != nil {
			tr, created, err = h.deriveRide(tctx, acc, br, *img.Location, newTrID)
			if err != nil {
				return err
			}
			if err := h.Images.SetTransportation(tctx, saved.ID, tr.ID); err != nil {
				return err
			}
			saved.TransportationRequestID = &tr.ID
		}

		status := ""
		if models.AcceptanceAdvances(acc.Status, models.AcceptanceImageUploaded) {
			status = models.AcceptanceImageUploaded
		}
		if tr != nil {
			return h.Acceptances.LinkTransportation(tctx, acc.ID, tr.ID, status)
		}
		if status != "" {
			return h.Acceptances.SetStatus(tctx, acc.ID, status)
		}
		return nil
	})
	if err != nil {
		h.undo(ctx, img.ID, newTrID, created)
		return models.DonationImage{}, nil, err
	}
	return saved, tr, nil
}

// deriveRide fills the acceptance's placeholder ride when it has one and
// otherwise creates a verified ride from the photo location.
func (h *Handler) deriveRide(ctx context.Context, acc *models.AcceptedBloodRequest, br *models.BloodRequest, at models.GeoPoint, newID primitive.ObjectID) (*models.TransportationRequest, bool, error) {
	if acc.TransportationRequestID != nil {
		tr, ok, err := h.Transport.FillPendingPickup(ctx, *acc.TransportationRequestID, formatPoint(at), at)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return tr, false, nil
		}
	}

	accID := acc.ID
	reqID := br.ID
	tr, err := h.Transport.Create(ctx, models.TransportationRequest{
		ID:                     newID,
		UserID:                 acc.UserID,
		AcceptedRequestID:      &accID,
		BloodRequestID:         &reqID,
		PickupLocation:         formatPoint(at),
		PickupCoords:           &at,
		DropLocation:           br.DropLocation(),
		HospitalName:           br.HospitalName,
		HospitalLocation:       br.HospitalLocation,
		Status:                 models.TransportPending,
		TransportationVerified: true,
		CreatedBy:              models.CreatedBySystem,
	})
	if err != nil {
		return nil, false, err
	}
	return &tr, true, nil
}

func (h *Handler) undo(ctx context.Context, imgID, trID primitive.ObjectID, rideCreated bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()

	if err := h.Images.Delete(ctx, imgID); err != nil {
		h.Log.Error("undo donation image", zap.String("image_id", imgID.Hex()), zap.Error(err))
	}
	if rideCreated {
		if err := h.Transport.Delete(ctx, trID); err != nil {
			h.Log.Error("undo transportation request", zap.String("transportation_id", trID.Hex()), zap.Error(err))
		}
	}
}
