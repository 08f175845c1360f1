package eventclient

import (
	"time"

	"github.com/google/uuid"
)

// AuthenticationStatus is the terminal outcome of a handshake attempt.
type AuthenticationStatus int

const (
	AuthenticationSuccess AuthenticationStatus = iota
	AuthenticationFailed
	AuthenticationTimeout
	// AuthenticationIgnored is the no-credentials case: with no
	// Settings.UserCredentials the engine sends no authentication request
	// and goes straight to connected, so it never produces this status
	// itself (spec.md §4.7).
	AuthenticationIgnored
)

// Authenticator drives the login handshake immediately after a channel is
// established. Grounded on the teacher's Authenticator interface, which
// separates "build the login package" from "the engine's channel plumbing"
// so alternate credential schemes can be substituted without touching the
// engine.
type Authenticator interface {
	CreateAuthenticationRequest(correlationID CorrelationID) *Package
	// Inspect classifies a reply addressed to the outstanding
	// authentication request's correlation id.
	Inspect(pkg *Package) (AuthenticationStatus, bool)
}

// CredentialsAuthenticator sends a fixed login/password pair. Grounded on
// the teacher's DefaultAuthenticator.
type CredentialsAuthenticator struct {
	Credentials *Credentials
}

func (a *CredentialsAuthenticator) CreateAuthenticationRequest(correlationID CorrelationID) *Package {
	return &Package{
		Command:       CommandAuthenticate,
		CorrelationID: correlationID,
		Credentials:   a.Credentials,
	}
}

func (a *CredentialsAuthenticator) Inspect(pkg *Package) (AuthenticationStatus, bool) {
	switch pkg.Command {
	case CommandAuthenticated:
		return AuthenticationSuccess, true
	case CommandNotAuthenticated:
		return AuthenticationFailed, true
	default:
		return AuthenticationSuccess, false
	}
}

// authenticationAttempt tracks one in-flight handshake so the engine's tick
// can time it out after Settings.OperationTimeout, outside the operation
// manager's timeout sweep (spec.md §4.7 treats authentication as a distinct
// phase, not an Operation).
type authenticationAttempt struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

func newAuthenticationAttempt() *authenticationAttempt {
	return &authenticationAttempt{correlationID: uuid.New(), startedAt: time.Now()}
}

func (a *authenticationAttempt) timedOut(now time.Time, timeout time.Duration) bool {
	return now.Sub(a.startedAt) >= timeout
}
