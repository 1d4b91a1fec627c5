// Package essentials carries the small interfaces shared across every
// package of the protocol stack, so that tgproto, network and events do
// not need to import each other just to agree on a connection or a
// logger shape.
package essentials

import "net"

// Conn is a network connection that additionally supports half-close,
// which the framing codec and the chunked transfer engine both rely on
// to signal "no more writes" without tearing down the whole socket.
type Conn interface {
	net.Conn

	CloseRead() error
	CloseWrite() error
}

// WrapConn adapts an arbitrary net.Conn to Conn. *net.TCPConn and
// *net.UnixConn already implement CloseRead/CloseWrite and are returned
// unchanged; anything else (notably *net.UDPConn, which has no
// half-close since UDP has no connection to half-close) is wrapped with
// no-op CloseRead/CloseWrite so the framing codec can treat every
// transport uniformly.
func WrapConn(c net.Conn) Conn {
	if conn, ok := c.(Conn); ok {
		return conn
	}

	return noHalfCloseConn{Conn: c}
}

type noHalfCloseConn struct {
	net.Conn
}

func (noHalfCloseConn) CloseRead() error  { return nil }
func (noHalfCloseConn) CloseWrite() error { return nil }

// Logger is the logging seam every package writes through. Keys are
// bound progressively (BindStr/BindInt) and a Named logger carries a
// component prefix, mirroring how the corpus threads loggers down
// through proxy -> relay -> conn layers.
type Logger interface {
	Named(name string) Logger

	BindStr(key, value string) Logger
	BindInt(key string, value int) Logger

	Debug(msg string)
	Info(msg string)
	Warning(msg string)

	InfoError(msg string, err error)
	WarningError(msg string, err error)
}
