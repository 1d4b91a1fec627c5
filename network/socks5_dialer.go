package network

import (
	"context"
	"time"

	"github.com/txthinking/socks5"

	"github.com/royna2544/tgbotd/essentials"
)

// socks5Dialer performs the actual SOCKS5 CONNECT handshake against an
// upstream proxy, grounded on txthinking/socks5's client. It implements
// Dialer on its own (rather than composing over a base Dialer) because
// the underlying client owns the TCP connection to the proxy itself;
// NewProxyDialer still wraps it with the cooldown circuit breaker the
// same way it would any other Dialer.
type socks5Dialer struct {
	client *socks5.Client
}

// NewSOCKS5Dialer builds a Dialer that routes every Dial/DialContext
// through a SOCKS5 proxy at proxyAddr (host:port), authenticating with
// username/password when either is non-empty. Used by the client
// driver when TGBOTD_PROXY carries a socks5:// scheme.
func NewSOCKS5Dialer(proxyAddr, username, password string, timeout time.Duration) Dialer {
	seconds := int(timeout.Seconds())
	if seconds <= 0 {
		seconds = int(DefaultTimeout.Seconds())
	}

	return &socks5Dialer{
		client: socks5.NewClient(proxyAddr, username, password, seconds, seconds),
	}
}

func (d *socks5Dialer) Dial(network, address string) (essentials.Conn, error) {
	conn, err := d.client.Dial(network, address)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	return essentials.WrapConn(conn), nil
}

// DialContext honors ctx cancellation around the library's
// context-unaware Dial by racing it against ctx.Done in a goroutine;
// the dial itself cannot be aborted mid-handshake, so a canceled
// context leaks the goroutine until the handshake (or its own
// tcpTimeout) resolves.
func (d *socks5Dialer) DialContext(ctx context.Context, network, address string) (essentials.Conn, error) {
	type result struct {
		conn essentials.Conn
		err  error
	}

	done := make(chan result, 1)

	go func() {
		conn, err := d.Dial(network, address)
		done <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err() //nolint: wrapcheck
	case r := <-done:
		return r.conn, r.err
	}
}

var _ Dialer = (*socks5Dialer)(nil)
