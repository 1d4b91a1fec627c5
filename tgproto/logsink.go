package tgproto

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/royna2544/tgbotd/essentials"
)

// LogFanoutSink is a dedicated listener that bypasses the command
// dispatcher entirely: every zerolog record written to it (it is a
// plain io.Writer, wired alongside stdout via zerolog.MultiLevelWriter)
// is re-framed as a length-prefixed JSON packet and fanned out to every
// connected tail client. One writer goroutine per connection, torn down
// on its first write error so a stalled tail client can never block
// logging for the rest of the daemon.
type LogFanoutSink struct {
	logger essentials.Logger

	mu    sync.Mutex
	conns map[*logSinkConn]struct{}
}

// NewLogFanoutSink builds an empty sink. Accept connections by calling
// Serve on a listener (internal/listener, tcp4/unix kind).
func NewLogFanoutSink(logger essentials.Logger) *LogFanoutSink {
	return &LogFanoutSink{
		logger: logger.Named("logsink"),
		conns:  map[*logSinkConn]struct{}{},
	}
}

// Write implements io.Writer so *LogFanoutSink can be passed directly
// to zerolog.MultiLevelWriter alongside the process's own stdout
// writer. p is one complete zerolog JSON record.
func (s *LogFanoutSink) Write(p []byte) (int, error) {
	record := make([]byte, len(p))
	copy(record, p)

	s.mu.Lock()
	for c := range s.conns {
		c.send(record)
	}
	s.mu.Unlock()

	return len(p), nil
}

// Serve accepts tail connections until the listener is closed.
func (s *LogFanoutSink) Serve(l net.Listener) error {
	for {
		nc, err := l.Accept()
		if err != nil {
			return fmt.Errorf("log fanout accept: %w", err)
		}

		conn := newLogSinkConn(essentials.WrapConn(nc))

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		go s.run(conn)
	}
}

func (s *LogFanoutSink) run(c *logSinkConn) {
	c.writeLoop()

	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()

	c.conn.Close()
}

const logSinkBacklog = 256

// logSinkConn owns one tail connection's outgoing queue, so a slow
// reader backs up in its own channel instead of blocking Write.
type logSinkConn struct {
	conn    essentials.Conn
	outbox  chan []byte
	closeCh chan struct{}
	once    sync.Once
}

func newLogSinkConn(conn essentials.Conn) *logSinkConn {
	return &logSinkConn{
		conn:    conn,
		outbox:  make(chan []byte, logSinkBacklog),
		closeCh: make(chan struct{}),
	}
}

func (c *logSinkConn) send(record []byte) {
	select {
	case c.outbox <- record:
	default:
		// Backlog full: drop rather than stall the logger.
	}
}

func (c *logSinkConn) writeLoop() {
	defer c.once.Do(func() { close(c.closeCh) })

	for record := range c.outbox {
		if err := writeLogFrame(c.conn, record); err != nil {
			return
		}
	}
}

func writeLogFrame(w net.Conn, record []byte) error {
	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, uint32(len(record)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("cannot write log frame header: %w", err)
	}

	if _, err := w.Write(record); err != nil {
		return fmt.Errorf("cannot write log frame body: %w", err)
	}

	return nil
}

// ReadLogFrame reads one length-prefixed JSON record off r, the
// client-side counterpart to writeLogFrame.
func ReadLogFrame(r net.Conn) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := readLogFull(r, header); err != nil {
		return nil, fmt.Errorf("cannot read log frame header: %w", err)
	}

	size := binary.LittleEndian.Uint32(header)
	if size > DefaultMaxDataSize {
		return nil, fmt.Errorf("log frame too large: %d bytes", size)
	}

	body := make([]byte, size)
	if _, err := readLogFull(r, body); err != nil {
		return nil, fmt.Errorf("cannot read log frame body: %w", err)
	}

	return body, nil
}

func readLogFull(r net.Conn, buf []byte) (int, error) {
	total := 0

	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n

		if err != nil {
			return total, err //nolint: wrapcheck
		}
	}

	return total, nil
}
