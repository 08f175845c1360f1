package eventclient

import "testing"

// fakeSubscriptionListener records callbacks for assertions, grounded on
// the same recording-fake idiom the teacher's own tests use.
type fakeSubscriptionListener struct {
	confirmed    bool
	droppedWith  error
	eventsSeen   int
}

func (f *fakeSubscriptionListener) EventAppeared(*ResolvedEvent)                 { f.eventsSeen++ }
func (f *fakeSubscriptionListener) Confirmed(CorrelationID, int64, int64) { f.confirmed = true }
func (f *fakeSubscriptionListener) Dropped(err error)                            { f.droppedWith = err }

func TestSubscriptionManagerStartSubscriptionSendsAndActivates(t *testing.T) {
	m := newSubscriptionManager(nil, nil)
	item := newSubscriptionItem(VolatileStreamSubscription, "orders-1", "", &fakeSubscriptionListener{})
	m.enqueueSubscription(item)

	sent := 0
	m.startSubscription("chan-1", func(*Package) error { sent++; return nil })

	if sent != 1 {
		t.Fatalf("expected one subscribe send, got %d", sent)
	}
	if len(m.active) != 1 {
		t.Fatalf("expected one active subscription, got %d", len(m.active))
	}
	if len(m.waiting) != 0 {
		t.Fatalf("expected waiting list drained, got %d", len(m.waiting))
	}
}

func TestSubscriptionManagerHandlesConfirmationAndEvent(t *testing.T) {
	m := newSubscriptionManager(nil, nil)
	listener := &fakeSubscriptionListener{}
	item := newSubscriptionItem(VolatileStreamSubscription, "orders-1", "", listener)
	m.enqueueSubscription(item)
	m.startSubscription("chan-1", func(*Package) error { return nil })

	confirmPayload := []byte{}
	claimed := m.handlePackage(&Package{Command: CommandSubscriptionConfirmed, CorrelationID: item.CorrelationID, Payload: confirmPayload})
	if !claimed {
		t.Fatal("expected confirmation to be claimed")
	}
	if !listener.confirmed {
		t.Fatal("expected listener.Confirmed to be called")
	}

	eventPayload := encodeEventData(EventData{EventType: "OrderPlaced", Data: []byte("{}")})
	claimed = m.handlePackage(&Package{Command: CommandStreamEventAppeared, CorrelationID: item.CorrelationID, Payload: eventPayload})
	if !claimed {
		t.Fatal("expected event-appeared to be claimed")
	}
	if listener.eventsSeen != 1 {
		t.Fatalf("expected one event delivered, got %d", listener.eventsSeen)
	}
}

// TestSubscriptionManagerPurgeDropsVolatileAndPersistentTerminally covers
// spec.md §8 scenario 3: channel loss drops every subscription bound to the
// dead channel exactly once, volatile or persistent, and never re-queues
// either for automatic resubscription — the caller decides whether to
// resubscribe.
func TestSubscriptionManagerPurgeDropsVolatileAndPersistentTerminally(t *testing.T) {
	m := newSubscriptionManager(nil, nil)
	volatileListener := &fakeSubscriptionListener{}
	volatile := newSubscriptionItem(VolatileStreamSubscription, "orders-1", "", volatileListener)
	persistentListener := &fakeSubscriptionListener{}
	persistent := newSubscriptionItem(PersistentSubscription, "orders-1", "group-a", persistentListener)

	m.enqueueSubscription(volatile)
	m.enqueueSubscription(persistent)
	m.startSubscription("chan-dead", func(*Package) error { return nil })

	m.purgeSubscribedAndDropped("chan-dead", ErrConnectionClosed)

	if len(m.active) != 0 {
		t.Fatalf("expected no subscriptions left active after purge, got %d", len(m.active))
	}
	if len(m.waiting) != 0 {
		t.Fatalf("expected no subscription re-queued, got %d waiting", len(m.waiting))
	}
	if volatileListener.droppedWith != ErrConnectionClosed {
		t.Fatal("expected volatile subscription to be dropped terminally")
	}
	if persistentListener.droppedWith != ErrConnectionClosed {
		t.Fatal("expected persistent subscription to be dropped terminally")
	}
}
