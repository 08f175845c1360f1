package eventclient

import (
	"testing"
	"time"
)

func TestHeartbeatMonitorSendsAfterIdleInterval(t *testing.T) {
	h := newHeartbeatMonitor(50*time.Millisecond, 100*time.Millisecond)
	base := h.lastPackageReceived

	if action := h.check(base); action != heartbeatNoAction {
		t.Fatalf("expected no action immediately, got %v", action)
	}
	if action := h.check(base.Add(60 * time.Millisecond)); action != heartbeatSendRequest {
		t.Fatalf("expected a heartbeat request past the idle interval, got %v", action)
	}
}

func TestHeartbeatMonitorTimesOutWithoutResponse(t *testing.T) {
	h := newHeartbeatMonitor(50*time.Millisecond, 100*time.Millisecond)
	base := h.lastPackageReceived

	h.check(base.Add(60 * time.Millisecond)) // sends the probe
	if action := h.check(base.Add(70 * time.Millisecond)); action != heartbeatNoAction {
		t.Fatalf("expected no action while still within timeout, got %v", action)
	}
	if action := h.check(base.Add(200 * time.Millisecond)); action != heartbeatTimedOut {
		t.Fatalf("expected timeout once past the response window, got %v", action)
	}
}

func TestHeartbeatMonitorResetsOnResponse(t *testing.T) {
	h := newHeartbeatMonitor(50*time.Millisecond, 100*time.Millisecond)
	base := h.lastPackageReceived

	h.check(base.Add(60 * time.Millisecond)) // awaiting response
	h.onPackageReceived(CommandHeartbeatResponse)

	if h.awaitingResponse {
		t.Fatal("expected awaitingResponse to clear once a response arrives")
	}
}
