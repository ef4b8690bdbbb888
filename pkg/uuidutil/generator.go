package uuidutil

import "github.com/google/uuid"

// New returns a random v4 UUID string, the id format for monitors and
// check results.
func New() string {
	return uuid.New().String()
}
