package eventclient

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestReadOperationCompletesWithEvents(t *testing.T) {
	payload := encodeReadStreamEvents("orders-1", 0, 10, false, true)
	op, future := newReadOperation(CommandReadStreamEventsForward, CommandReadStreamEventsForwardCompleted, payload)

	req := op.CreateRequest(newCorrelationID())
	if req.Command != CommandReadStreamEventsForward {
		t.Fatalf("expected forward read request, got %v", req.Command)
	}

	var b []byte
	b = protowire.AppendTag(b, fieldReadResultCode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ResultSuccess))
	event := encodeEventData(EventData{EventType: "OrderPlaced", Data: []byte("{}")})
	b = protowire.AppendTag(b, fieldReadEvents, protowire.BytesType)
	b = protowire.AppendBytes(b, event)
	b = protowire.AppendTag(b, fieldNextEventNumber, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	b = protowire.AppendTag(b, fieldIsEndOfStream, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)

	result := op.Inspect(&Package{Command: CommandReadStreamEventsForwardCompleted, Payload: b})
	if result.Decision != EndOperation || result.Err != nil {
		t.Fatalf("expected clean completion, got %+v", result)
	}

	read, err := future.Wait()
	if err != nil {
		t.Fatalf("future.Wait: %v", err)
	}
	if len(read.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(read.Events))
	}
	if !read.IsEndOfStream {
		t.Fatal("expected IsEndOfStream true")
	}
}

func TestReadOperationFailsOnAccessDenied(t *testing.T) {
	op, future := newReadOperation(CommandReadEvent, CommandReadEventCompleted, encodeReadEvent("orders-1", -1, false, false))

	var b []byte
	b = protowire.AppendTag(b, fieldReadResultCode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ResultAccessDenied))

	result := op.Inspect(&Package{Command: CommandReadEventCompleted, Payload: b})
	if result.Decision != EndOperation || result.Err == nil {
		t.Fatalf("expected failing completion, got %+v", result)
	}
	op.Fail(result.Err)
	if _, err := future.Wait(); err == nil {
		t.Fatal("expected future to fail")
	}
}

func TestEncodeReadAllEventsCarriesPositions(t *testing.T) {
	payload := encodeReadAllEvents(100, 200, 20, true, false)
	if len(payload) == 0 {
		t.Fatal("expected non-empty payload")
	}
}
