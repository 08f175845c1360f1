package eventclient

import (
	"testing"

	"github.com/google/uuid"
)

func TestCredentialsAuthenticatorSuccess(t *testing.T) {
	a := &CredentialsAuthenticator{Credentials: &Credentials{Login: "alice", Password: "hunter2"}}
	correlationID := uuid.New()

	req := a.CreateAuthenticationRequest(correlationID)
	if req.Command != CommandAuthenticate {
		t.Fatalf("expected CommandAuthenticate, got %v", req.Command)
	}
	if req.Credentials == nil || req.Credentials.Login != "alice" {
		t.Fatal("expected credentials to be attached to the request")
	}

	status, handled := a.Inspect(&Package{Command: CommandAuthenticated, CorrelationID: correlationID})
	if !handled || status != AuthenticationSuccess {
		t.Fatalf("expected handled success, got handled=%v status=%v", handled, status)
	}
}

func TestCredentialsAuthenticatorFailure(t *testing.T) {
	a := &CredentialsAuthenticator{Credentials: &Credentials{Login: "alice", Password: "wrong"}}
	status, handled := a.Inspect(&Package{Command: CommandNotAuthenticated})
	if !handled || status != AuthenticationFailed {
		t.Fatalf("expected handled failure, got handled=%v status=%v", handled, status)
	}
}

func TestCredentialsAuthenticatorIgnoresUnrelatedPackage(t *testing.T) {
	a := &CredentialsAuthenticator{Credentials: &Credentials{Login: "alice", Password: "hunter2"}}
	_, handled := a.Inspect(&Package{Command: CommandHeartbeatRequest})
	if handled {
		t.Fatal("expected an unrelated command to be left unhandled")
	}
}
