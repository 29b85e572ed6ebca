// internal/app/features/certificates/generate.go
package certificates

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	certificatestore "github.com/dalemusser/bloodlink/internal/app/store/certificates"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/auth"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const msgNoDonations = "You need at least one verified donation to receive a certificate."

// NewCertificateID returns a sortable, unguessable certificate id.
func NewCertificateID() string {
	return "CERT-" + ulid.Make().String()
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/certificates/generate                                              |
| Issues a certificate for the caller's donation count. The latest            |
| certificate is returned again while the count has not changed.               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "generate certificate")
	defer cancel()

	u, err := h.Users.GetByID(ctx, me.ID)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, "User not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load user", err)
		return
	}
	if u.TotalDonations < 1 {
		respond.BadRequest(w, msgNoDonations)
		return
	}

	latest, err := h.Certs.LatestForUser(ctx, u.ID)
	if err != nil && !errors.Is(err, certificatestore.ErrNotFound) {
		respond.Internal(w, h.Log, "load latest certificate", err)
		return
	}
	if latest != nil && latest.TotalDonations == u.TotalDonations {
		respond.OK(w, h.certificateBody(*latest, "Certificate already issued"))
		return
	}

	var cert models.Certificate
	for attempt := 0; attempt < 3; attempt++ {
		cert, err = h.Certs.Create(ctx, models.Certificate{
			CertificateID:     NewCertificateID(),
			VerificationToken: uuid.NewString(),
			UserID:            u.ID,
			DonorName:         u.Name,
			BloodGroup:        u.BloodGroup,
			TotalDonations:    u.TotalDonations,
		})
		if !errors.Is(err, certificatestore.ErrDuplicateID) {
			break
		}
	}
	if err != nil {
		respond.Internal(w, h.Log, "create certificate", err)
		return
	}

	h.Log.Info("certificate issued",
		zap.String("certificate_id", cert.CertificateID),
		zap.String("user_id", u.ID.Hex()),
		zap.Int("total_donations", cert.TotalDonations))
	respond.Created(w, h.certificateBody(cert, "Certificate issued"))
}

func (h *Handler) certificateBody(cert models.Certificate, msg string) map[string]any {
	return map[string]any{
		"message":     msg,
		"certificate": cert,
		"verifyUrl":   h.verifyURL(cert.CertificateID, cert.VerificationToken),
	}
}

// ServeDownload handles GET /api/certificates/generate?certificateId=. The
// owner receives the certificate as a PDF.
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)
	certID := query.Get(r, "certificateId")
	if certID == "" {
		respond.BadRequest(w, "certificateId is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "download certificate")
	defer cancel()

	cert, err := h.Certs.GetByCertificateID(ctx, certID)
	if errors.Is(err, certificatestore.ErrNotFound) || (err == nil && cert.UserID != me.ID) {
		respond.NotFound(w, "Certificate not found")
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "load certificate", err)
		return
	}

	var buf bytes.Buffer
	if err := renderPDF(&buf, *cert, h.verifyURL(cert.CertificateID, cert.VerificationToken)); err != nil {
		respond.Internal(w, h.Log, "render certificate", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+cert.CertificateID+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
