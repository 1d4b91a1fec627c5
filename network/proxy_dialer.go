package network

import (
	"net/url"
	"strconv"
	"time"
)

// NewProxyDialer wraps baseDialer with the cooldown circuit breaker,
// configured from proxyURL's query parameters (open_threshold,
// reconnect_timeout, and the legacy half_open_timeout alias). Used by
// the client driver when TGBOTD_PROXY is set and by the daemon when
// network.proxy is set; the caller passes a SOCKS5 dialer as baseDialer
// for socks5/socks5h URLs, and for any other scheme the base dialer
// connects directly, with only the breaker added.
func NewProxyDialer(baseDialer Dialer, proxyURL *url.URL) Dialer {
	params := proxyURL.Query()

	var (
		openThreshold    uint32 = ProxyDialerOpenThreshold
		reconnectTimeout        = ProxyDialerReconnectTimeout
	)

	if param := params.Get("open_threshold"); param != "" {
		if intNum, err := strconv.ParseUint(param, 10, 32); err == nil { //nolint: gomnd
			openThreshold = uint32(intNum)
		}
	}

	// reconnect_timeout is the primary knob; half_open_timeout is
	// accepted too for callers carrying over the older name.
	if param := params.Get("reconnect_timeout"); param != "" {
		if dur, err := time.ParseDuration(param); err == nil && dur > 0 {
			reconnectTimeout = dur
		}
	} else if param := params.Get("half_open_timeout"); param != "" {
		if dur, err := time.ParseDuration(param); err == nil && dur > 0 {
			reconnectTimeout = dur
		}
	}

	return newCooldownDialer(baseDialer, openThreshold, reconnectTimeout)
}
