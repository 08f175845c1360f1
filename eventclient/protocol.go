package eventclient

// Command identifies the payload schema carried by a Package. Request and
// completion commands for the same operation kind are adjacent so the
// pairing reads clearly; the exact values are wire-format details private
// to this client and its fake test server (spec.md §1 explicitly leaves
// concrete payload encodings out of scope).
type Command byte

const (
	CommandHeartbeatRequest  Command = 1
	CommandHeartbeatResponse Command = 2

	CommandAuthenticate  Command = 3
	CommandAuthenticated Command = 4

	CommandBadRequest      Command = 5
	CommandNotAuthenticated Command = 6
	CommandNotHandled      Command = 7 // e.g. NotMaster redirect

	CommandAppendToStream          Command = 10
	CommandAppendToStreamCompleted Command = 11

	CommandDeleteStream          Command = 12
	CommandDeleteStreamCompleted Command = 13

	CommandReadEvent          Command = 14
	CommandReadEventCompleted Command = 15

	CommandReadStreamEventsForward          Command = 16
	CommandReadStreamEventsForwardCompleted Command = 17

	CommandReadStreamEventsBackward          Command = 18
	CommandReadStreamEventsBackwardCompleted Command = 19

	CommandReadAllEventsForward          Command = 20
	CommandReadAllEventsForwardCompleted Command = 21

	CommandReadAllEventsBackward          Command = 22
	CommandReadAllEventsBackwardCompleted Command = 23

	CommandTransactionStart          Command = 24
	CommandTransactionStartCompleted Command = 25

	CommandTransactionWrite          Command = 26
	CommandTransactionWriteCompleted Command = 27

	CommandTransactionCommit          Command = 28
	CommandTransactionCommitCompleted Command = 29

	CommandCreatePersistentSubscription          Command = 30
	CommandCreatePersistentSubscriptionCompleted Command = 31

	CommandUpdatePersistentSubscription          Command = 32
	CommandUpdatePersistentSubscriptionCompleted Command = 33

	CommandDeletePersistentSubscription          Command = 34
	CommandDeletePersistentSubscriptionCompleted Command = 35

	CommandSubscribeToStream       Command = 40
	CommandSubscriptionConfirmed   Command = 41
	CommandStreamEventAppeared     Command = 42
	CommandUnsubscribeFromStream   Command = 43
	CommandSubscriptionDropped     Command = 44

	CommandConnectToPersistentSubscription      Command = 45
	CommandPersistentSubscriptionConfirmed      Command = 46
	CommandPersistentSubscriptionEventAppeared  Command = 47
	CommandPersistentSubscriptionAck            Command = 48
)

// ResultCode gives operation payloads a shared vocabulary
// for terminal outcomes carried in a Completed package.
type ResultCode byte

const (
	ResultSuccess ResultCode = iota
	ResultWrongExpectedVersion
	ResultStreamDeleted
	ResultAccessDenied
	ResultCommitTimeout
	ResultNotFound
	ResultNoStream
)

func resultToError(code ResultCode) error {
	switch code {
	case ResultSuccess:
		return nil
	case ResultWrongExpectedVersion:
		return ErrWrongExpectedVersion
	case ResultStreamDeleted:
		return ErrStreamDeleted
	case ResultAccessDenied:
		return ErrAccessDenied
	case ResultCommitTimeout:
		return ErrCommitTimeout
	default:
		return wrapError(ErrServerError, "unexpected result code")
	}
}

// ReadDirection selects forward or backward traversal for stream/all reads.
type ReadDirection int

const (
	Forward ReadDirection = iota
	Backward
)

// ExpectedVersion sentinels used as the append/delete concurrency guard.
// Distinct from the read-side eventNumber parameter (spec.md §8: -1 reads
// the last event, -2 is rejected).
const (
	ExpectedVersionAny      int64 = -2
	ExpectedVersionNoStream int64 = -1
)
