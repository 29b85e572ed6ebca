// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize keeps safe formatting markup (used for event descriptions that
// admins author) and strips scripts, handlers, and unsafe URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// PlainText strips all markup from user-entered free text such as a
// disease description or a transport note.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(strict.Sanitize(s))
}
