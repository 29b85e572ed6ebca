// internal/app/system/inputval/inputval.go
package inputval

import (
	"encoding/base64"
	"errors"
	"strings"
)

// IsValidEmail performs a strict structural check: one @, a non-empty local
// part without leading/trailing/consecutive dots, a domain of dot-separated
// non-empty labels, and no whitespace or display-name brackets.
func IsValidEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n<>") {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 || strings.Count(s, "@") != 1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	return validDotted(local) && validDotted(domain)
}

func validDotted(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	return !strings.Contains(s, "..")
}

// IsValidPhone accepts 7 to 15 digits with an optional leading +.
func IsValidPhone(s string) bool {
	s = strings.TrimPrefix(s, "+")
	if len(s) < 7 || len(s) > 15 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Image upload errors.
var (
	ErrImageRequired = errors.New("image is required")
	ErrImageFormat   = errors.New("image must be a base64 data URI or base64 string")
	ErrImageTooLarge = errors.New("image is too large")
)

// allowedImageTypes are the MIME types accepted in data URIs.
var allowedImageTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// CheckImage validates a base64 image given either as a data URI
// ("data:image/png;base64,...") or as bare base64, and returns the value to
// store (always a data URI) along with the decoded size. maxBytes caps the
// decoded size.
func CheckImage(s string, maxBytes int) (string, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, ErrImageRequired
	}

	mime := "image/jpeg"
	payload := s
	if strings.HasPrefix(s, "data:") {
		comma := strings.Index(s, ",")
		if comma < 0 {
			return "", 0, ErrImageFormat
		}
		meta := s[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return "", 0, ErrImageFormat
		}
		mime = strings.TrimSuffix(meta, ";base64")
		if !allowedImageTypes[mime] {
			return "", 0, ErrImageFormat
		}
		payload = s[comma+1:]
	}

	n := base64.StdEncoding.DecodedLen(len(payload))
	if n > maxBytes {
		return "", 0, ErrImageTooLarge
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", 0, ErrImageFormat
	}
	if len(raw) == 0 {
		return "", 0, ErrImageRequired
	}
	return "data:" + mime + ";base64," + payload, len(raw), nil
}
