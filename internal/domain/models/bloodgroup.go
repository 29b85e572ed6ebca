// internal/domain/models/bloodgroup.go
package models

import "strings"

// BloodGroups lists the accepted ABO/Rh groups in canonical form.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// NormalizeBloodGroup upper-cases and trims a blood group and reports
// whether the result is one of BloodGroups. Matching between donors and
// requests is exact on the canonical form; there is no compatibility table.
func NormalizeBloodGroup(s string) (string, bool) {
	g := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, bg := range BloodGroups {
		if g == bg {
			return g, true
		}
	}
	return g, false
}
