// Package events fans tgproto.Event values out to one or more Observer
// implementations, sharded by stream id so all events belonging to one
// connection land on the same worker (adapted from the teacher's
// events.EventStream, which did the same for mtglib.Event).
package events

import (
	"context"
	"math/rand"
	"runtime"
	"sync/atomic"

	"github.com/OneOfOne/xxhash"

	"github.com/royna2544/tgbotd/tgproto"
)

// EventStream is the default tgproto.EventStream implementation: N
// sharded channels, one goroutine per shard draining into an Observer.
type EventStream struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	chans     []chan tgproto.Event

	// dropped counts high-frequency events discarded on overflow
	// (EventTraffic, EventTransferChunk). EventStream is handed around
	// by value, so this is a pointer: atomic.Uint64 must not be copied.
	dropped *atomic.Uint64
}

// Send delivers evt to the observer owning evt's stream id,
// non-blocking for high-frequency event kinds and blocking for
// everything else, matching the teacher's rationale: a slow metrics
// consumer must never stall a connection's read/write loop, but rare,
// important events (session/transfer lifecycle, security rejections)
// are worth the wait.
func (e EventStream) Send(ctx context.Context, evt tgproto.Event) {
	var chanNo uint32

	if streamID := evt.StreamID(); streamID != "" {
		chanNo = xxhash.ChecksumString32(streamID)
	} else {
		chanNo = rand.Uint32()
	}

	ch := e.chans[int(chanNo)%len(e.chans)]

	if isHighFrequency(evt) {
		select {
		case <-ctx.Done():
		case <-e.ctx.Done():
		case ch <- evt:
		default:
			e.dropped.Add(1)
		}

		return
	}

	select {
	case <-ctx.Done():
	case <-e.ctx.Done():
	case ch <- evt:
	}
}

func isHighFrequency(evt tgproto.Event) bool {
	switch evt.(type) {
	case tgproto.EventTraffic, tgproto.EventTransferChunk:
		return true
	default:
		return false
	}
}

// Dropped returns the number of high-frequency events discarded since
// startup.
func (e EventStream) Dropped() uint64 {
	return e.dropped.Load()
}

// Shutdown stops every shard's processor goroutine.
func (e EventStream) Shutdown() {
	e.ctxCancel()
}

// NewEventStream builds an EventStream fanning out to one Observer per
// CPU shard, built from observerFactories. An empty slice falls back to
// NewNoopObserver; more than one factory fans each shard's events to
// all of them via a multiObserver.
func NewEventStream(observerFactories []ObserverFactory) EventStream {
	if len(observerFactories) == 0 {
		observerFactories = append(observerFactories, NewNoopObserver)
	}

	ctx, cancel := context.WithCancel(context.Background())

	rv := EventStream{
		ctx:       ctx,
		ctxCancel: cancel,
		chans:     make([]chan tgproto.Event, runtime.NumCPU()),
		dropped:   &atomic.Uint64{},
	}

	for i := 0; i < runtime.NumCPU(); i++ {
		// Buffer of 64 absorbs a short burst (e.g. a chunk-heavy transfer)
		// without blocking the connection goroutine; sustained overflow
		// falls into the drop path above.
		rv.chans[i] = make(chan tgproto.Event, 64)

		if len(observerFactories) == 1 {
			go eventStreamProcessor(ctx, rv.chans[i], observerFactories[0]())
		} else {
			go eventStreamProcessor(ctx, rv.chans[i], newMultiObserver(observerFactories))
		}
	}

	return rv
}

func eventStreamProcessor(ctx context.Context, eventChan <-chan tgproto.Event, observer Observer) {
	defer observer.Shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-eventChan:
			dispatchToObserver(observer, evt)
		}
	}
}

func dispatchToObserver(observer Observer, evt tgproto.Event) { //nolint: cyclop
	switch typedEvt := evt.(type) {
	case tgproto.EventConnStart:
		observer.EventConnStart(typedEvt)
	case tgproto.EventConnFinish:
		observer.EventConnFinish(typedEvt)
	case tgproto.EventSessionOpened:
		observer.EventSessionOpened(typedEvt)
	case tgproto.EventSessionClosed:
		observer.EventSessionClosed(typedEvt)
	case tgproto.EventReplay:
		observer.EventReplay(typedEvt)
	case tgproto.EventCommand:
		observer.EventCommand(typedEvt)
	case tgproto.EventTransferBegin:
		observer.EventTransferBegin(typedEvt)
	case tgproto.EventTransferChunk:
		observer.EventTransferChunk(typedEvt)
	case tgproto.EventTransferEnd:
		observer.EventTransferEnd(typedEvt)
	case tgproto.EventTransferAborted:
		observer.EventTransferAborted(typedEvt)
	case tgproto.EventRateLimited:
		observer.EventRateLimited(typedEvt)
	case tgproto.EventIPBlocked:
		observer.EventIPBlocked(typedEvt)
	case tgproto.EventTraffic:
		observer.EventTraffic(typedEvt)
	}
}

var _ tgproto.EventStream = EventStream{}
