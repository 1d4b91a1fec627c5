package listener

import (
	"path/filepath"
	"testing"
)

func TestListenTCP4(t *testing.T) {
	l, err := Listen(KindTCP4, "127.0.0.1:0", Opts{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()

	typed, ok := l.(Listener)
	if !ok {
		t.Fatalf("expected Listener, got %T", l)
	}

	if typed.Kind() != KindTCP4 {
		t.Errorf("Kind() = %q, want %q", typed.Kind(), KindTCP4)
	}

	if typed.IsTFOEnabled() {
		t.Error("IsTFOEnabled() should be false when TFO was not requested")
	}
}

func TestListenUnix(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "tgbotd.sock")

	l, err := Listen(KindUnix, sock, Opts{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()

	// Rebinding the same path must succeed: the stale socket file from
	// the first listener should be reclaimed once it's closed.
	l.Close()

	l2, err := Listen(KindUnix, sock, Opts{})
	if err != nil {
		t.Fatalf("second Listen on same path: %v", err)
	}
	l2.Close()
}

func TestListenUnknownKind(t *testing.T) {
	if _, err := Listen(Kind("sctp"), "127.0.0.1:0", Opts{}); err == nil {
		t.Error("expected an error for an unknown listener kind")
	}
}
