package eventclient

import (
	"errors"
	"testing"
)

func TestSettingsValidateRequiresEndpoints(t *testing.T) {
	s := DefaultSettings()
	if err := s.validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument with neither static endpoints nor cluster settings, got %v", err)
	}
}

func TestSettingsValidateDefaultsZeroValues(t *testing.T) {
	s := &Settings{StaticEndpoints: []NodeEndpoints{{Host: "localhost", TCPPort: 1113}}}
	if err := s.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if s.OperationTimeout <= 0 {
		t.Fatal("expected OperationTimeout to be defaulted")
	}
	if s.MaxOperationQueueSize <= 0 {
		t.Fatal("expected MaxOperationQueueSize to be defaulted")
	}
	if s.Executor == nil {
		t.Fatal("expected Executor to be defaulted")
	}
	if s.Logger == nil {
		t.Fatal("expected Logger to be defaulted")
	}
}

func TestSettingsValidateRejectsNil(t *testing.T) {
	var s *Settings
	if err := s.validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for nil settings, got %v", err)
	}
}
