package eventclient

import (
	"errors"
	"testing"
)

func TestWrapErrorPreservesSentinel(t *testing.T) {
	err := wrapError(ErrBadRequest, "streamId=", "orders-1")
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected wrapped error to satisfy errors.Is(ErrBadRequest), got %v", err)
	}
	if err.Error() == ErrBadRequest.Error() {
		t.Fatal("expected wrapped error message to include detail")
	}
}

func TestWrapErrorWithoutDetailReturnsSentinel(t *testing.T) {
	if err := wrapError(ErrNoConnection); err != ErrNoConnection {
		t.Fatalf("expected bare sentinel back, got %v", err)
	}
}

func TestResultToErrorMapsKnownCodes(t *testing.T) {
	cases := map[ResultCode]error{
		ResultSuccess:              nil,
		ResultWrongExpectedVersion: ErrWrongExpectedVersion,
		ResultStreamDeleted:        ErrStreamDeleted,
		ResultAccessDenied:         ErrAccessDenied,
		ResultCommitTimeout:        ErrCommitTimeout,
	}
	for code, want := range cases {
		got := resultToError(code)
		if want == nil {
			if got != nil {
				t.Fatalf("code %v: expected nil, got %v", code, got)
			}
			continue
		}
		if !errors.Is(got, want) {
			t.Fatalf("code %v: expected %v, got %v", code, want, got)
		}
	}
}
