// internal/app/features/certificates/verify.go
package certificates

import (
	"errors"
	"net/http"
	"time"

	certificatestore "github.com/dalemusser/bloodlink/internal/app/store/certificates"
	"github.com/dalemusser/bloodlink/internal/app/system/respond"
	"github.com/dalemusser/bloodlink/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// publicCertificate is what an anonymous verifier may see.
type publicCertificate struct {
	CertificateID  string    `json:"certificateId"`
	DonorName      string    `json:"donorName"`
	BloodGroup     string    `json:"bloodGroup,omitempty"`
	TotalDonations int       `json:"totalDonations"`
	IssuedAt       time.Time `json:"issuedAt"`
}

// ServeVerify handles GET /api/certificates/verify?certificateId=&token=.
// Unknown ids and wrong tokens get the same answer.
func (h *Handler) ServeVerify(w http.ResponseWriter, r *http.Request) {
	certID := query.Get(r, "certificateId")
	token := query.Get(r, "token")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "verify certificate")
	defer cancel()

	cert, err := h.Certs.Verify(ctx, certID, token)
	if errors.Is(err, certificatestore.ErrNotFound) || errors.Is(err, certificatestore.ErrTokenMismatch) {
		if errors.Is(err, certificatestore.ErrTokenMismatch) {
			h.Log.Info("certificate token mismatch", zap.String("certificate_id", certID))
		}
		respond.ErrorWith(w, http.StatusNotFound, "Certificate could not be verified", map[string]any{"verified": false})
		return
	}
	if err != nil {
		respond.Internal(w, h.Log, "verify certificate", err)
		return
	}

	respond.OK(w, map[string]any{
		"verified": true,
		"certificate": publicCertificate{
			CertificateID:  cert.CertificateID,
			DonorName:      cert.DonorName,
			BloodGroup:     cert.BloodGroup,
			TotalDonations: cert.TotalDonations,
			IssuedAt:       cert.IssuedAt,
		},
	})
}
