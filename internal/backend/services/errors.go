package services

import "errors"

var (
	// ErrValidation marks bad input shape or bounds.
	ErrValidation = errors.New("validation failed")

	// ErrAccessDenied marks a caller classification insufficient for the
	// operation. Ownership misses are deliberately not this error; they
	// surface as storage.ErrNotFound so existence does not leak.
	ErrAccessDenied = errors.New("access denied")
)
