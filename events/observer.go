package events

import "github.com/royna2544/tgbotd/tgproto"

// Observer reacts to protocol-level events, one method per
// tgproto.Event kind. Implementations back the stats package's
// Prometheus sink and any other sink registered via an ObserverFactory.
type Observer interface {
	EventConnStart(tgproto.EventConnStart)
	EventConnFinish(tgproto.EventConnFinish)
	EventSessionOpened(tgproto.EventSessionOpened)
	EventSessionClosed(tgproto.EventSessionClosed)
	EventReplay(tgproto.EventReplay)
	EventCommand(tgproto.EventCommand)
	EventTransferBegin(tgproto.EventTransferBegin)
	EventTransferChunk(tgproto.EventTransferChunk)
	EventTransferEnd(tgproto.EventTransferEnd)
	EventTransferAborted(tgproto.EventTransferAborted)
	EventRateLimited(tgproto.EventRateLimited)
	EventIPBlocked(tgproto.EventIPBlocked)
	EventTraffic(tgproto.EventTraffic)

	// Shutdown is called once when the processor goroutine feeding this
	// observer is stopped.
	Shutdown()
}

// ObserverFactory builds one Observer instance per EventStream shard, so
// per-shard state (e.g. a local counter) never needs its own lock.
type ObserverFactory func() Observer
