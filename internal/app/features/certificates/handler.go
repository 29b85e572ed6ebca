// internal/app/features/certificates/handler.go
package certificates

import (
	"net/url"

	certificatestore "github.com/dalemusser/bloodlink/internal/app/store/certificates"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler issues donation certificates and answers public verification
// lookups.
type Handler struct {
	Certs *certificatestore.Store
	Users *userstore.Store
	Log   *zap.Logger

	// BaseURL prefixes the verification link printed on certificates.
	BaseURL string
}

func NewHandler(db *mongo.Database, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Certs:   certificatestore.New(db),
		Users:   userstore.New(db),
		Log:     logger,
		BaseURL: baseURL,
	}
}

// verifyURL is the public page that checks a certificate.
func (h *Handler) verifyURL(certificateID, token string) string {
	q := url.Values{}
	q.Set("certificateId", certificateID)
	q.Set("token", token)
	return h.BaseURL + "/certificates/verify?" + q.Encode()
}
