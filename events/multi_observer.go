package events

import "github.com/royna2544/tgbotd/tgproto"

// multiObserver fans one event out to several observers in sequence,
// used when more than one ObserverFactory is registered (e.g. the
// Prometheus sink and a debug logger side by side).
type multiObserver struct {
	observers []Observer
}

func newMultiObserver(factories []ObserverFactory) multiObserver {
	observers := make([]Observer, len(factories))

	for i, f := range factories {
		observers[i] = f()
	}

	return multiObserver{observers: observers}
}

func (m multiObserver) EventConnStart(e tgproto.EventConnStart) {
	for _, o := range m.observers {
		o.EventConnStart(e)
	}
}

func (m multiObserver) EventConnFinish(e tgproto.EventConnFinish) {
	for _, o := range m.observers {
		o.EventConnFinish(e)
	}
}

func (m multiObserver) EventSessionOpened(e tgproto.EventSessionOpened) {
	for _, o := range m.observers {
		o.EventSessionOpened(e)
	}
}

func (m multiObserver) EventSessionClosed(e tgproto.EventSessionClosed) {
	for _, o := range m.observers {
		o.EventSessionClosed(e)
	}
}

func (m multiObserver) EventReplay(e tgproto.EventReplay) {
	for _, o := range m.observers {
		o.EventReplay(e)
	}
}

func (m multiObserver) EventCommand(e tgproto.EventCommand) {
	for _, o := range m.observers {
		o.EventCommand(e)
	}
}

func (m multiObserver) EventTransferBegin(e tgproto.EventTransferBegin) {
	for _, o := range m.observers {
		o.EventTransferBegin(e)
	}
}

func (m multiObserver) EventTransferChunk(e tgproto.EventTransferChunk) {
	for _, o := range m.observers {
		o.EventTransferChunk(e)
	}
}

func (m multiObserver) EventTransferEnd(e tgproto.EventTransferEnd) {
	for _, o := range m.observers {
		o.EventTransferEnd(e)
	}
}

func (m multiObserver) EventTransferAborted(e tgproto.EventTransferAborted) {
	for _, o := range m.observers {
		o.EventTransferAborted(e)
	}
}

func (m multiObserver) EventRateLimited(e tgproto.EventRateLimited) {
	for _, o := range m.observers {
		o.EventRateLimited(e)
	}
}

func (m multiObserver) EventIPBlocked(e tgproto.EventIPBlocked) {
	for _, o := range m.observers {
		o.EventIPBlocked(e)
	}
}

func (m multiObserver) EventTraffic(e tgproto.EventTraffic) {
	for _, o := range m.observers {
		o.EventTraffic(e)
	}
}

func (m multiObserver) Shutdown() {
	for _, o := range m.observers {
		o.Shutdown()
	}
}

var _ Observer = multiObserver{}
