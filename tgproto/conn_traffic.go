package tgproto

import (
	"context"
	"sync/atomic"

	"github.com/royna2544/tgbotd/essentials"
)

// trafficFlushThreshold is the accumulated byte count at which a
// connTraffic wrapper emits an EventTraffic instead of on every Read or
// Write, so a chunked transfer streaming 1 MiB chunks does not emit one
// event per syscall (adapted from the teacher's mtglib.connTraffic).
const trafficFlushThreshold uint64 = 32 * 1024

// EventTraffic reports accumulated bytes moved on a connection in one
// direction.
type EventTraffic struct {
	eventBase

	Bytes uint
	Read  bool
}

func NewEventTraffic(streamID string, bytes uint, read bool) EventTraffic {
	return EventTraffic{eventBase: newEventBase(streamID), Bytes: bytes, Read: read}
}

// connTraffic wraps a conn to batch per-connection byte counts into
// EventTraffic events, for the stats package to aggregate.
type connTraffic struct {
	*conn

	streamID string
	stream   EventStream
	ctx      context.Context

	readAcc  *atomic.Uint64
	writeAcc *atomic.Uint64
}

func newConnTraffic(c *conn, streamID string, stream EventStream, ctx context.Context) *connTraffic {
	return &connTraffic{
		conn:     c,
		streamID: streamID,
		stream:   stream,
		ctx:      ctx,
		readAcc:  &atomic.Uint64{},
		writeAcc: &atomic.Uint64{},
	}
}

func (c *connTraffic) Read(b []byte) (int, error) {
	n, err := c.conn.Read(b)

	if n > 0 {
		if acc := c.readAcc.Add(uint64(n)); acc >= trafficFlushThreshold {
			c.readAcc.Store(0)
			c.stream.Send(c.ctx, NewEventTraffic(c.streamID, uint(acc), true))
		}
	}

	return n, err
}

func (c *connTraffic) Write(b []byte) (int, error) {
	n, err := c.conn.Write(b)

	if n > 0 {
		if acc := c.writeAcc.Add(uint64(n)); acc >= trafficFlushThreshold {
			c.writeAcc.Store(0)
			c.stream.Send(c.ctx, NewEventTraffic(c.streamID, uint(acc), false))
		}
	}

	return n, err
}

// FlushTraffic emits whatever has accumulated below the threshold. Must
// be called when a connection ends, or the last partial chunk of
// traffic is silently dropped from the stats.
func (c *connTraffic) FlushTraffic() {
	if r := c.readAcc.Swap(0); r > 0 {
		c.stream.Send(c.ctx, NewEventTraffic(c.streamID, uint(r), true))
	}

	if w := c.writeAcc.Swap(0); w > 0 {
		c.stream.Send(c.ctx, NewEventTraffic(c.streamID, uint(w), false))
	}
}

func (c *connTraffic) Close() error {
	c.FlushTraffic()

	return c.conn.Close()
}

var _ essentials.Conn = (*connTraffic)(nil)
