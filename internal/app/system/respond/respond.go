// internal/app/system/respond/respond.go
package respond

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"
)

// detailed controls whether 500 responses carry the underlying error text.
// It is switched on in dev at startup.
var detailed atomic.Bool

// SetDetailedErrors toggles error detail in Internal responses.
func SetDetailedErrors(on bool) { detailed.Store(on) }

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { JSON(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { JSON(w, http.StatusCreated, v) }

// Error writes {"error": msg}. The client shows the error field verbatim.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]any{"error": msg})
}

// ErrorWith writes {"error": msg} merged with structured remediation
// fields such as daysRemaining.
func ErrorWith(w http.ResponseWriter, status int, msg string, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["error"] = msg
	JSON(w, status, body)
}

// BadRequest writes a 400 validation or business-rule error.
func BadRequest(w http.ResponseWriter, msg string) { Error(w, http.StatusBadRequest, msg) }

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, msg string) { Error(w, http.StatusNotFound, msg) }

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, msg string) { Error(w, http.StatusUnauthorized, msg) }

// Forbidden writes a 403.
func Forbidden(w http.ResponseWriter, msg string) { Error(w, http.StatusForbidden, msg) }

// Internal logs err and writes a 500. The body is generic unless detailed
// errors are enabled.
func Internal(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	if log != nil {
		log.Error(msg, zap.Error(err))
	}
	if detailed.Load() && err != nil {
		Error(w, http.StatusInternalServerError, msg+": "+err.Error())
		return
	}
	Error(w, http.StatusInternalServerError, "Internal server error")
}

// DecodeJSON reads a JSON body into dst, capped at maxBytes.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}
