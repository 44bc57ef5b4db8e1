// Package uuid provides unit tests for UUID generation and validation.
package uuid

import "testing"

// TestNew tests that New() generates valid UUID v4 strings.
func TestNew(t *testing.T) {
	id := New()

	if id == "" {
		t.Fatal("Expected non-empty UUID string")
	}

	if !IsValid(id) {
		t.Errorf("Generated UUID does not match v4 format: %s", id)
	}
}

// TestNewUniqueness tests that New() generates unique IDs.
func TestNewUniqueness(t *testing.T) {
	ids := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		id := New()
		if ids[id] {
			t.Errorf("Duplicate UUID generated: %s", id)
		}
		ids[id] = true
	}
}

// TestIsValid tests UUID v4 validation.
func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		uuid string
		want bool
	}{
		{"valid UUID v4", "9b2b1f6e-8f3a-4c6d-9a1e-2f3b4c5d6e7f", true},
		{"valid uppercase", "9B2B1F6E-8F3A-4C6D-9A1E-2F3B4C5D6E7F", true},
		{"empty string", "", false},
		{"missing dashes", "9b2b1f6e8f3a4c6d9a1e2f3b4c5d6e7f", false},
		{"wrong version", "9b2b1f6e-8f3a-1c6d-9a1e-2f3b4c5d6e7f", false},
		{"wrong variant", "9b2b1f6e-8f3a-4c6d-1a1e-2f3b4c5d6e7f", false},
		{"too short", "9b2b1f6e-8f3a-4c6d-9a1e", false},
		{"not hex", "zzzzzzzz-8f3a-4c6d-9a1e-2f3b4c5d6e7f", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.uuid); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.uuid, got, tt.want)
			}
		})
	}
}

// TestValidate tests the error-returning variant.
func TestValidate(t *testing.T) {
	if err := Validate(New()); err != nil {
		t.Errorf("Validate rejected a generated UUID: %v", err)
	}

	if err := Validate("not-a-uuid"); err == nil {
		t.Error("Validate accepted a malformed UUID")
	}
}
