package validator

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	maxURLLength   = 2048
	maxLabelLength = 255
	maxFrequency   = 1440
)

// ValidateURL accepts absolute http/https URLs with a host, bounded in
// length.
func ValidateURL(target string) bool {
	if target == "" || len(target) > maxURLLength {
		return false
	}

	u, err := url.Parse(target)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	return u.Host != ""
}

// ValidateLabel accepts empty or bounded printable labels.
func ValidateLabel(label string) bool {
	if utf8.RuneCountInString(label) > maxLabelLength {
		return false
	}
	return !strings.ContainsAny(label, "\r\n")
}

// ValidateFrequency bounds the check interval to 1..1440 minutes.
func ValidateFrequency(minutes int) bool {
	return minutes >= 1 && minutes <= maxFrequency
}
