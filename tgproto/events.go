package tgproto

import (
	"context"
	"net"
	"time"
)

// Event is the common interface every tgproto event satisfies, mirrored
// on the teacher's mtglib.Event family.
type Event interface {
	StreamID() string
	Timestamp() time.Time
}

type eventBase struct {
	streamID  string
	timestamp time.Time
}

func (e eventBase) StreamID() string     { return e.streamID }
func (e eventBase) Timestamp() time.Time { return e.timestamp }

func newEventBase(streamID string) eventBase {
	return eventBase{streamID: streamID, timestamp: time.Now()}
}

// EventConnStart is emitted when a new connection starts being served.
type EventConnStart struct {
	eventBase

	RemoteIP net.IP
}

// EventConnFinish is emitted when a connection is done being served.
type EventConnFinish struct{ eventBase }

// EventSessionOpened is emitted by OPEN_SESSION.
type EventSessionOpened struct{ eventBase }

// EventSessionClosed is emitted by CLOSE_SESSION or lazy expiry.
type EventSessionClosed struct {
	eventBase

	Reason string // "close", "expired"
}

// EventReplay is emitted when the session table or the antireplay cache
// rejects a packet as a replay.
type EventReplay struct {
	eventBase

	Result VerifyResult
}

// EventCommand is emitted once per dispatched command, success or not.
type EventCommand struct {
	eventBase

	Command Command
	Result  Ack
	Elapsed time.Duration
}

// EventTransferBegin/Chunk/End mirror the chunked transfer engine's
// state machine (spec.md §4.E).
type EventTransferBegin struct {
	eventBase

	TotalSize uint64
	ChunkSize uint32
}

type EventTransferChunk struct {
	eventBase

	Index uint32
	OK    bool
}

type EventTransferEnd struct {
	eventBase

	Ack Ack
}

// EventTransferAborted describes a transfer discarded without
// completing. No code path in this package emits it.
type EventTransferAborted struct {
	eventBase

	PartialBytes int
}

// EventRateLimited is emitted when Serve closes a freshly accepted
// connection because the rate limiter refused its IP.
type EventRateLimited struct {
	eventBase

	RemoteIP net.IP
}

// EventIPBlocked is emitted when a connecting IP is refused by the
// allow/block list.
type EventIPBlocked struct {
	eventBase

	RemoteIP    net.IP
	IsBlocklist bool
}

func NewEventConnStart(streamID string, ip net.IP) EventConnStart {
	return EventConnStart{eventBase: newEventBase(streamID), RemoteIP: ip}
}

func NewEventConnFinish(streamID string) EventConnFinish {
	return EventConnFinish{eventBase: newEventBase(streamID)}
}

func NewEventSessionOpened(streamID string) EventSessionOpened {
	return EventSessionOpened{eventBase: newEventBase(streamID)}
}

func NewEventSessionClosed(streamID, reason string) EventSessionClosed {
	return EventSessionClosed{eventBase: newEventBase(streamID), Reason: reason}
}

func NewEventReplay(streamID string, result VerifyResult) EventReplay {
	return EventReplay{eventBase: newEventBase(streamID), Result: result}
}

func NewEventCommand(streamID string, cmd Command, result Ack, elapsed time.Duration) EventCommand {
	return EventCommand{eventBase: newEventBase(streamID), Command: cmd, Result: result, Elapsed: elapsed}
}

func NewEventTransferBegin(streamID string, total uint64, chunk uint32) EventTransferBegin {
	return EventTransferBegin{eventBase: newEventBase(streamID), TotalSize: total, ChunkSize: chunk}
}

func NewEventTransferChunk(streamID string, index uint32, ok bool) EventTransferChunk {
	return EventTransferChunk{eventBase: newEventBase(streamID), Index: index, OK: ok}
}

func NewEventTransferEnd(streamID string, ack Ack) EventTransferEnd {
	return EventTransferEnd{eventBase: newEventBase(streamID), Ack: ack}
}

func NewEventTransferAborted(streamID string, partial int) EventTransferAborted {
	return EventTransferAborted{eventBase: newEventBase(streamID), PartialBytes: partial}
}

func NewEventRateLimited(streamID string, ip net.IP) EventRateLimited {
	return EventRateLimited{eventBase: newEventBase(streamID), RemoteIP: ip}
}

func NewEventIPBlocked(streamID string, ip net.IP, isBlocklist bool) EventIPBlocked {
	return EventIPBlocked{eventBase: newEventBase(streamID), RemoteIP: ip, IsBlocklist: isBlocklist}
}

// EventStream routes events to observers. A default fan-out
// implementation lives in package events.
type EventStream interface {
	Send(ctx context.Context, evt Event)
}

// NoopEventStream discards every event. Used when no observers are
// configured.
type NoopEventStream struct{}

func (NoopEventStream) Send(context.Context, Event) {}
