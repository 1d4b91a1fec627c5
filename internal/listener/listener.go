// Package listener builds the net.Listener the daemon accepts connections
// on, one per configured transport (tcp4, tcp6, udp4, udp6, unix), tuning
// each accepted socket the way network.SetServerSocketOptions expects.
package listener

import (
	"fmt"
	"net"

	"github.com/royna2544/tgbotd/network"
)

// Kind names a transport the daemon can listen on. It doubles as the
// net.Listen/net.ListenPacket network argument for the stream kinds.
type Kind string

const (
	KindTCP4 Kind = "tcp4"
	KindTCP6 Kind = "tcp6"
	KindUDP4 Kind = "udp4"
	KindUDP6 Kind = "udp6"
	KindUnix Kind = "unix"
)

// Listener wraps a net.Listener so every accepted conn gets the same
// socket tuning regardless of which kind produced it.
type Listener struct {
	net.Listener

	kind       Kind
	tfoEnabled bool
}

// Kind reports which transport this listener was built for.
func (l Listener) Kind() Kind {
	return l.kind
}

// IsTFOEnabled reports whether TCP Fast Open is active on this listener.
// Always false for non-TCP kinds.
func (l Listener) IsTFOEnabled() bool {
	return l.tfoEnabled
}

func (l Listener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	if l.kind == KindTCP4 || l.kind == KindTCP6 {
		if err := network.SetServerSocketOptions(conn, 0); err != nil {
			conn.Close()

			return nil, fmt.Errorf("cannot set TCP options: %w", err)
		}
	}

	return conn, nil
}

// Opts configures Listen.
type Opts struct {
	// EnableTFO turns on TCP Fast Open for tcp4/tcp6 listeners. Ignored
	// for every other kind.
	EnableTFO bool
}

// Listen builds a listener of the given kind bound to bindTo. For
// KindUnix, bindTo is a filesystem path; an existing socket file at that
// path is removed first when nothing answers on it, so a restarted daemon
// can rebind it. For
// KindUDP4/KindUDP6, the returned net.Listener is a demuxing adapter:
// Telegram's wire protocol is connection-oriented even when carried over
// datagrams, so each distinct source address is presented as its own
// accepted net.Conn (see udp.go).
func Listen(kind Kind, bindTo string, opts Opts) (net.Listener, error) {
	switch kind {
	case KindTCP4, KindTCP6:
		return listenTCP(kind, bindTo, opts.EnableTFO)
	case KindUDP4, KindUDP6:
		return listenUDP(kind, bindTo)
	case KindUnix:
		return listenUnix(bindTo)
	default:
		return nil, fmt.Errorf("unknown listener kind %q", kind)
	}
}

func listenTCP(kind Kind, bindTo string, enableTFO bool) (net.Listener, error) {
	var (
		base      net.Listener
		err       error
		tfoActive bool
	)

	if enableTFO {
		config := network.TFOConfig{
			Enabled:  true,
			QueueLen: network.DefaultTFOQueueLen,
			Fallback: true,
		}

		base, err = network.ListenTFO(string(kind), bindTo, config)
		if err != nil {
			return nil, fmt.Errorf("cannot build TFO listener: %w", err)
		}

		tfoActive = network.IsTFOServerEnabled()
	} else {
		base, err = net.Listen(string(kind), bindTo)
		if err != nil {
			return nil, fmt.Errorf("cannot build a base listener: %w", err)
		}
	}

	return Listener{
		Listener:   base,
		kind:       kind,
		tfoEnabled: tfoActive,
	}, nil
}

func listenUnix(bindTo string) (net.Listener, error) {
	if err := removeStaleSocket(bindTo); err != nil {
		return nil, err
	}

	base, err := net.Listen("unix", bindTo)
	if err != nil {
		return nil, fmt.Errorf("cannot build a unix listener: %w", err)
	}

	return Listener{Listener: base, kind: KindUnix}, nil
}
