package validator

import (
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   bool
	}{
		{"https", "https://example.com", true},
		{"http", "http://example.com/health?probe=1", true},
		{"with port", "https://example.com:8443/status", true},
		{"empty", "", false},
		{"no scheme", "example.com", false},
		{"ftp", "ftp://example.com", false},
		{"no host", "https://", false},
		{"garbage", "ht tp://bad", false},
		{"too long", "https://example.com/" + strings.Repeat("a", 2048), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateURL(tt.target); got != tt.want {
				t.Errorf("ValidateURL(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestValidateLabel(t *testing.T) {
	if !ValidateLabel("") {
		t.Error("empty label must be valid")
	}
	if !ValidateLabel("prod api") {
		t.Error("plain label must be valid")
	}
	if !ValidateLabel(strings.Repeat("я", 255)) {
		t.Error("length limit counts runes, not bytes")
	}
	if ValidateLabel(strings.Repeat("a", 256)) {
		t.Error("overlong label must be rejected")
	}
	if ValidateLabel("line\nbreak") || ValidateLabel("carriage\rreturn") {
		t.Error("control characters must be rejected")
	}
}

func TestValidateFrequency(t *testing.T) {
	valid := []int{1, 60, 1440}
	for _, minutes := range valid {
		if !ValidateFrequency(minutes) {
			t.Errorf("ValidateFrequency(%d) = false, want true", minutes)
		}
	}
	invalid := []int{0, -5, 1441}
	for _, minutes := range invalid {
		if ValidateFrequency(minutes) {
			t.Errorf("ValidateFrequency(%d) = true, want false", minutes)
		}
	}
}
