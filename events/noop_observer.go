package events

import "github.com/royna2544/tgbotd/tgproto"

// noopObserver discards every event. Used when no real observer is
// configured, so EventStream always has at least one sink.
type noopObserver struct{}

// NewNoopObserver is an ObserverFactory producing a noopObserver.
func NewNoopObserver() Observer {
	return noopObserver{}
}

func (noopObserver) EventConnStart(tgproto.EventConnStart)             {}
func (noopObserver) EventConnFinish(tgproto.EventConnFinish)           {}
func (noopObserver) EventSessionOpened(tgproto.EventSessionOpened)     {}
func (noopObserver) EventSessionClosed(tgproto.EventSessionClosed)     {}
func (noopObserver) EventReplay(tgproto.EventReplay)                   {}
func (noopObserver) EventCommand(tgproto.EventCommand)                 {}
func (noopObserver) EventTransferBegin(tgproto.EventTransferBegin)     {}
func (noopObserver) EventTransferChunk(tgproto.EventTransferChunk)     {}
func (noopObserver) EventTransferEnd(tgproto.EventTransferEnd)         {}
func (noopObserver) EventTransferAborted(tgproto.EventTransferAborted) {}
func (noopObserver) EventRateLimited(tgproto.EventRateLimited)         {}
func (noopObserver) EventIPBlocked(tgproto.EventIPBlocked)             {}
func (noopObserver) EventTraffic(tgproto.EventTraffic)                 {}
func (noopObserver) Shutdown()                                         {}

var _ Observer = noopObserver{}
