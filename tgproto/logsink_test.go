package tgproto

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/royna2544/tgbotd/internal/logging"
)

func TestLogFanoutSinkFansOutToClient(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	sink := NewLogFanoutSink(logging.New(io.Discard, false, false))
	go sink.Serve(l) //nolint: errcheck

	client, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	// Give Serve a moment to register the connection before writing.
	deadline := time.Now().Add(time.Second)

	for {
		sink.mu.Lock()
		n := len(sink.conns)
		sink.mu.Unlock()

		if n == 1 {
			break
		}

		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for sink to register connection")
		}

		time.Sleep(time.Millisecond)
	}

	record := []byte(`{"level":"info","message":"hello"}`)

	if _, err := sink.Write(record); err != nil {
		t.Fatalf("Write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(time.Second)) //nolint: errcheck

	got, err := ReadLogFrame(client)
	if err != nil {
		t.Fatalf("ReadLogFrame: %v", err)
	}

	if string(got) != string(record) {
		t.Fatalf("got %q, want %q", got, record)
	}
}

func TestLogFanoutSinkDropsOnFullBacklog(t *testing.T) {
	c := newLogSinkConn(nil)

	for i := 0; i < logSinkBacklog+10; i++ {
		c.send([]byte("x"))
	}

	if len(c.outbox) != logSinkBacklog {
		t.Fatalf("expected outbox to cap at %d, got %d", logSinkBacklog, len(c.outbox))
	}
}
