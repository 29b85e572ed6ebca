// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lower-cases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NameCI returns the case- and diacritic-folded form used for searching.
func NameCI(s string) string {
	return text.Fold(Name(s))
}

// Phone keeps a leading + and digits only.
func Phone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Token upper-cases and trims a registration token typed or scanned by an admin.
func Token(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
