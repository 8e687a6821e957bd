package validation

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		ok       bool
	}{
		{name: "plain", username: "denim_drops", ok: true},
		{name: "digits", username: "shop42", ok: true},
		{name: "minimum length", username: "abc", ok: true},
		{name: "too short", username: "ab", ok: false},
		{name: "maximum length", username: strings.Repeat("a", 30), ok: true},
		{name: "too long", username: strings.Repeat("a", 31), ok: false},
		{name: "hyphen", username: "denim-drops", ok: false},
		{name: "space", username: "denim drops", ok: false},
		{name: "accented", username: "josé", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUsername(tc.username)
			if tc.ok && err != nil {
				t.Fatalf("expected valid username, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid username, got nil error")
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	for _, email := range []string{"buyer@example.com", "first.last+live@shop.co.uk"} {
		if err := ValidateEmail(email); err != nil {
			t.Fatalf("expected %q to be valid: %v", email, err)
		}
	}
	for _, email := range []string{"", "buyer", "buyer@", "@example.com", "buyer@example", strings.Repeat("a", 250) + "@example.com"} {
		if err := ValidateEmail(email); err == nil {
			t.Fatalf("expected %q to be invalid", email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	if err := ValidatePassword("secret"); err != nil {
		t.Fatalf("six characters should pass: %v", err)
	}
	if err := ValidatePassword("short"); err == nil {
		t.Fatal("five characters should fail")
	}
	if err := ValidatePassword(strings.Repeat("x", 73)); err == nil {
		t.Fatal("73 bytes should fail")
	}
}
