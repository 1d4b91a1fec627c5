package listener

import (
	"net"
	"testing"
	"time"
)

func TestUDPListenerRoundTrip(t *testing.T) {
	l, err := Listen(KindUDP4, "127.0.0.1:0", Opts{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()

	clientConn, err := net.Dial("udp4", l.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer clientConn.Close()

	if _, err := clientConn.Write([]byte("hello")); err != nil {
		t.Fatalf("client write: %v", err)
	}

	acceptCh := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			t.Error(err)
			return
		}
		acceptCh <- conn
	}()

	var serverConn net.Conn
	select {
	case serverConn = <-acceptCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Accept")
	}
	defer serverConn.Close()

	buf := make([]byte, 16)
	n, err := serverConn.Read(buf)
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("got %q, want %q", buf[:n], "hello")
	}

	if _, err := serverConn.Write([]byte("world")); err != nil {
		t.Fatalf("server write: %v", err)
	}

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))

	n, err = clientConn.Read(buf)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(buf[:n]) != "world" {
		t.Fatalf("got %q, want %q", buf[:n], "world")
	}
}

func TestUDPListenerDemuxesPeers(t *testing.T) {
	l, err := Listen(KindUDP6, "[::1]:0", Opts{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()

	a, err := net.Dial("udp6", l.Addr().String())
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer a.Close()

	b, err := net.Dial("udp6", l.Addr().String())
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer b.Close()

	a.Write([]byte("from-a"))
	b.Write([]byte("from-b"))

	seen := map[string]bool{}

	for i := 0; i < 2; i++ {
		conn, err := l.Accept()
		if err != nil {
			t.Fatalf("Accept: %v", err)
		}
		defer conn.Close()

		buf := make([]byte, 16)
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		seen[string(buf[:n])] = true
	}

	if !seen["from-a"] || !seen["from-b"] {
		t.Fatalf("expected both peers demultiplexed, got %v", seen)
	}
}
