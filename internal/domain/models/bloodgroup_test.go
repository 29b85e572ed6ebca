package models

import "testing"

func TestNormalizeBloodGroup(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"A+", "A+", true},
		{" ab- ", "AB-", true},
		{"o +", "O+", true},
		{"AB", "AB", false},
		{"", "", false},
		{"C+", "C+", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeBloodGroup(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeBloodGroup(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
