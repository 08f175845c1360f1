package eventclient

import "testing"

func TestPersistentSubscriptionOperationCompletesWithEmptyPayload(t *testing.T) {
	payload := encodePersistentSubscriptionSettings("orders-1", "billing", PersistentSubscriptionSettings{ResolveLinkTos: true, CheckPointAfter: 10})
	op, future := newPersistentSubscriptionOperation(CommandCreatePersistentSubscription, CommandCreatePersistentSubscriptionCompleted, payload)

	req := op.CreateRequest(newCorrelationID())
	if req.Command != CommandCreatePersistentSubscription {
		t.Fatalf("expected create command, got %v", req.Command)
	}

	result := op.Inspect(&Package{Command: CommandCreatePersistentSubscriptionCompleted})
	if result.Decision != EndOperation || result.Err != nil {
		t.Fatalf("expected clean completion, got %+v", result)
	}
	if _, err := future.Wait(); err != nil {
		t.Fatalf("future.Wait: %v", err)
	}
}

func TestPersistentSubscriptionOperationFailsOnResultCode(t *testing.T) {
	op, future := newPersistentSubscriptionOperation(CommandDeletePersistentSubscription, CommandDeletePersistentSubscriptionCompleted, encodeDeletePersistentSubscription("orders-1", "billing"))

	result := op.Inspect(&Package{Command: CommandDeletePersistentSubscriptionCompleted, Payload: []byte{byte(ResultAccessDenied)}})
	if result.Decision != EndOperation || result.Err == nil {
		t.Fatalf("expected failing completion, got %+v", result)
	}
	op.Fail(result.Err)
	if _, err := future.Wait(); err == nil {
		t.Fatal("expected future to fail")
	}
}

func TestPersistentSubscriptionAckEncodesEventIDs(t *testing.T) {
	payload := encodePersistentSubscriptionAck([][]byte{[]byte("id-1"), []byte("id-2")})
	if len(payload) == 0 {
		t.Fatal("expected non-empty ack payload")
	}
}
