package auth

import (
	"crypto/subtle"
	"errors"
)

// Role classifies a caller for scheduler and recorder operations.
// Classification happens outside this service; the gate only consumes it.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleWorker Role = "worker"
)

var ErrUnauthenticated = errors.New("caller could not be classified")

// Caller is the capability value passed explicitly into every service
// call. Workers carry no user id.
type Caller struct {
	UserID string
	Role   Role
}

func (c Caller) IsAdmin() bool  { return c.Role == RoleAdmin }
func (c Caller) IsWorker() bool { return c.Role == RoleWorker }

// CanBypassOwnership reports whether the caller may target any monitor id
// rather than only its own.
func (c Caller) CanBypassOwnership() bool {
	return c.Role == RoleAdmin || c.Role == RoleWorker
}

// Gate classifies a request into a Caller. The production implementation
// sits behind the external auth layer; tests substitute their own.
type Gate interface {
	Classify(apiKey, userID, role string) (Caller, error)
}

// HeaderGate trusts the upstream auth proxy for user identity and role,
// and matches worker API keys itself.
type HeaderGate struct {
	workerKeys []string
}

func NewHeaderGate(workerKeys []string) *HeaderGate {
	return &HeaderGate{workerKeys: workerKeys}
}

func (g *HeaderGate) Classify(apiKey, userID, role string) (Caller, error) {
	if apiKey != "" {
		for _, key := range g.workerKeys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
				return Caller{Role: RoleWorker}, nil
			}
		}
		return Caller{}, ErrUnauthenticated
	}

	if userID == "" {
		return Caller{}, ErrUnauthenticated
	}

	if role == string(RoleAdmin) {
		return Caller{UserID: userID, Role: RoleAdmin}, nil
	}
	return Caller{UserID: userID, Role: RoleOwner}, nil
}
