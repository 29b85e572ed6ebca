package inputval

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"user@subdomain.example.com", true},
		{"a@b.co", true},
		{"user@localhost", true},

		{"", false},
		{"   ", false},
		{"user", false},
		{"user@", false},
		{"@example.com", false},
		{".user@example.com", false},
		{"user.@example.com", false},
		{"user..name@example.com", false},
		{"user@.example.com", false},
		{"user@example..com", false},
		{"User Name <user@example.com>", false},
		{"user @example.com", false},
		{"user@exam ple.com", false},
		{"a@b@c.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+919876543210", true},
		{"5551234567", true},
		{"12345", false},
		{"+1234567890123456", false},
		{"555-1234567", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			if got := IsValidPhone(tt.phone); got != tt.want {
				t.Errorf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.want)
			}
		})
	}
}

func TestCheckImage(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))

	t.Run("data uri", func(t *testing.T) {
		out, n, err := CheckImage("data:image/png;base64,"+payload, 1024)
		if err != nil {
			t.Fatalf("CheckImage: %v", err)
		}
		if n != len("fake-png-bytes") {
			t.Errorf("size = %d", n)
		}
		if !strings.HasPrefix(out, "data:image/png;base64,") {
			t.Errorf("unexpected output prefix: %q", out[:20])
		}
	})

	t.Run("bare base64 becomes jpeg data uri", func(t *testing.T) {
		out, _, err := CheckImage(payload, 1024)
		if err != nil {
			t.Fatalf("CheckImage: %v", err)
		}
		if !strings.HasPrefix(out, "data:image/jpeg;base64,") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, _, err := CheckImage("  ", 1024); err != ErrImageRequired {
			t.Errorf("err = %v, want ErrImageRequired", err)
		}
	})

	t.Run("unsupported mime", func(t *testing.T) {
		if _, _, err := CheckImage("data:text/html;base64,"+payload, 1024); err != ErrImageFormat {
			t.Errorf("err = %v, want ErrImageFormat", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		if _, _, err := CheckImage(payload, 4); err != ErrImageTooLarge {
			t.Errorf("err = %v, want ErrImageTooLarge", err)
		}
	})

	t.Run("not base64", func(t *testing.T) {
		if _, _, err := CheckImage("data:image/png;base64,@@@@", 1024); err != ErrImageFormat {
			t.Errorf("err = %v, want ErrImageFormat", err)
		}
	})
}
