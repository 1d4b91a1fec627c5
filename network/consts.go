package network

import (
	"context"
	"errors"
	"time"

	"github.com/royna2544/tgbotd/essentials"
)

// Dialer is the seam every concrete dialer in this package implements:
// a plain TCP dialer (default.go), one wrapped with a cooldown circuit
// breaker (circuit_breaker.go, built by proxy_dialer.go), and one routed
// through a SOCKS proxy (socks5_dialer.go). network.Dial/DialContext compose over this rather
// than net.Dialer directly so DNS resolution, TFO and proxying stay
// interchangeable.
type Dialer interface {
	Dial(network, address string) (essentials.Conn, error)
	DialContext(ctx context.Context, network, address string) (essentials.Conn, error)
}

// ErrCircuitBreakerOpened is returned by a cooldownDialer while it is
// refusing new connections after openThreshold consecutive failures.
var ErrCircuitBreakerOpened = errors.New("network: circuit breaker is opened")

// ProxyDialerOpenThreshold/ReconnectTimeout are the cooldownDialer
// parameters NewProxyDialer wraps its base dialer with by default: five consecutive
// failures trips the breaker, a minute is enough for a transient proxy
// outage to clear without the client driver hammering it.
const (
	ProxyDialerOpenThreshold    = 5
	ProxyDialerReconnectTimeout = time.Minute
)

// DefaultTimeout bounds a single dial attempt.
const DefaultTimeout = 10 * time.Second

// DefaultHTTPTimeout bounds a single outgoing HTTP request made through
// MakeHTTPClient (DNS-over-HTTPS lookups, anything else routed through
// the same dialer).
const DefaultHTTPTimeout = 10 * time.Second

// DNSTimeout bounds a single DNS lookup, whether plain or DoH.
const DNSTimeout = 5 * time.Second
