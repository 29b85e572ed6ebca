package models

import "testing"

func TestAcceptanceAdvances(t *testing.T) {
	tests := []struct {
		cur, next string
		want      bool
	}{
		{AcceptanceAccepted, AcceptanceTransportationNeeded, true},
		{AcceptanceAccepted, AcceptanceImageUploaded, true},
		{AcceptanceTransportationNeeded, AcceptanceImageUploaded, true},
		{AcceptanceImageUploaded, AcceptanceTransportationNeeded, false},
		{AcceptanceFulfilled, AcceptanceImageUploaded, false},
		{AcceptanceAccepted, AcceptanceAccepted, false},
		{"unknown", AcceptanceFulfilled, false},
	}
	for _, tt := range tests {
		if got := AcceptanceAdvances(tt.cur, tt.next); got != tt.want {
			t.Errorf("AcceptanceAdvances(%q, %q) = %v, want %v", tt.cur, tt.next, got, tt.want)
		}
	}
}

func TestBloodRequestDropLocation(t *testing.T) {
	tests := []struct {
		name, location, want string
	}{
		{"City Hospital", "12 Main Street", "City Hospital, 12 Main Street"},
		{"", "12 Main Street", "12 Main Street"},
		{"City Hospital", "", "City Hospital"},
	}
	for _, tt := range tests {
		br := BloodRequest{HospitalName: tt.name, HospitalLocation: tt.location}
		if got := br.DropLocation(); got != tt.want {
			t.Errorf("DropLocation() = %q, want %q", got, tt.want)
		}
	}
}
