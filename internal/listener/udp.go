package listener

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// udpIdleTimeout is how long a virtual UDP conn can sit without a read or
// write before the sweeper reclaims it. The wire protocol carries its own
// session TTL (tgproto.DefaultSessionTTL); this only bounds the listener's
// own per-peer bookkeeping, so it stays comfortably under that.
const udpIdleTimeout = 5 * time.Minute

const udpReadBacklog = 64

// udpListener turns a connectionless net.UDPConn into a net.Listener:
// Telegram's framing is session-oriented even over UDP, so every
// distinct source address is demultiplexed into its own accepted
// net.Conn rather than handed to callers as raw datagrams.
type udpListener struct {
	conn   *net.UDPConn
	accept chan *udpConn
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	peers map[string]*udpConn
}

func listenUDP(kind Kind, bindTo string) (net.Listener, error) {
	addr, err := net.ResolveUDPAddr(string(kind), bindTo)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve udp address: %w", err)
	}

	conn, err := net.ListenUDP(string(kind), addr)
	if err != nil {
		return nil, fmt.Errorf("cannot build a udp listener: %w", err)
	}

	l := &udpListener{
		conn:   conn,
		accept: make(chan *udpConn, udpReadBacklog),
		done:   make(chan struct{}),
		peers:  map[string]*udpConn{},
	}

	go l.readLoop()
	go l.sweepLoop()

	return l, nil
}

func (l *udpListener) readLoop() {
	buf := make([]byte, 64*1024)

	for {
		n, remote, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.done:
			default:
				close(l.accept)
			}

			return
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])

		l.dispatch(remote, chunk)
	}
}

func (l *udpListener) dispatch(remote *net.UDPAddr, chunk []byte) {
	key := remote.String()

	l.mu.Lock()
	peer, ok := l.peers[key]
	if !ok {
		peer = newUDPConn(l, remote)
		l.peers[key] = peer
	}
	l.mu.Unlock()

	if !ok {
		select {
		case l.accept <- peer:
		case <-l.done:
			return
		}
	}

	peer.deliver(chunk)
}

func (l *udpListener) sweepLoop() {
	ticker := time.NewTicker(udpIdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-udpIdleTimeout)

			l.mu.Lock()
			for key, peer := range l.peers {
				if peer.lastSeen().Before(cutoff) {
					delete(l.peers, key)
					peer.closeLocal()
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *udpListener) forget(peer *udpConn) {
	l.mu.Lock()
	delete(l.peers, peer.remote.String())
	l.mu.Unlock()
}

func (l *udpListener) Accept() (net.Conn, error) {
	peer, ok := <-l.accept
	if !ok {
		return nil, fmt.Errorf("udp listener closed")
	}

	return peer, nil
}

func (l *udpListener) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.conn.Close()
	})

	return nil
}

func (l *udpListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// udpConn is one demultiplexed peer's virtual connection over the shared
// UDP socket. Each Read returns at most one datagram's worth of data,
// buffering any remainder the caller's slice couldn't hold.
type udpConn struct {
	owner  *udpListener
	remote *net.UDPAddr

	incoming chan []byte
	closed   chan struct{}
	closeMu  sync.Once

	readMu  sync.Mutex
	pending []byte

	mu   sync.Mutex
	seen time.Time
}

func newUDPConn(owner *udpListener, remote *net.UDPAddr) *udpConn {
	return &udpConn{
		owner:    owner,
		remote:   remote,
		incoming: make(chan []byte, udpReadBacklog),
		closed:   make(chan struct{}),
		seen:     time.Now(),
	}
}

func (c *udpConn) deliver(chunk []byte) {
	c.touch()

	select {
	case c.incoming <- chunk:
	case <-c.closed:
	}
}

func (c *udpConn) touch() {
	c.mu.Lock()
	c.seen = time.Now()
	c.mu.Unlock()
}

func (c *udpConn) lastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.seen
}

func (c *udpConn) Read(b []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.pending) == 0 {
		select {
		case chunk, ok := <-c.incoming:
			if !ok {
				return 0, fmt.Errorf("udp peer closed")
			}
			c.pending = chunk
		case <-c.closed:
			return 0, fmt.Errorf("udp peer closed")
		}
	}

	n := copy(b, c.pending)
	c.pending = c.pending[n:]

	return n, nil
}

func (c *udpConn) Write(b []byte) (int, error) {
	c.touch()

	n, err := c.owner.conn.WriteToUDP(b, c.remote)
	if err != nil {
		return n, fmt.Errorf("cannot write to udp peer: %w", err)
	}

	return n, nil
}

func (c *udpConn) Close() error {
	c.owner.forget(c)
	c.closeLocal()

	return nil
}

func (c *udpConn) closeLocal() {
	c.closeMu.Do(func() {
		close(c.closed)
	})
}

func (c *udpConn) CloseRead() error  { return nil }
func (c *udpConn) CloseWrite() error { return nil }

func (c *udpConn) LocalAddr() net.Addr  { return c.owner.conn.LocalAddr() }
func (c *udpConn) RemoteAddr() net.Addr { return c.remote }

// Deadlines are intentionally no-ops: the socket is shared across every
// demultiplexed peer, so a per-peer deadline cannot be pushed onto the
// underlying net.UDPConn without affecting the others. Callers that need
// a hang-up bound should wrap the conn at a higher layer instead.
func (c *udpConn) SetDeadline(time.Time) error      { return nil }
func (c *udpConn) SetReadDeadline(time.Time) error  { return nil }
func (c *udpConn) SetWriteDeadline(time.Time) error { return nil }
