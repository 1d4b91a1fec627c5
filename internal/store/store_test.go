package store

import (
	"bytes"
	"crypto/sha256"
	"path/filepath"
	"testing"

	"github.com/royna2544/tgbotd/tgproto"
)

func TestStartStopObserving(t *testing.T) {
	s := New()

	ok, err := s.StartObserving(42)
	if err != nil || !ok {
		t.Fatalf("StartObserving(42) = %v, %v", ok, err)
	}

	if !s.IsObserving(42) {
		t.Fatal("expected chat 42 to be observed")
	}

	if s.IsObserving(7) {
		t.Fatal("did not expect chat 7 to be observed")
	}

	ok, err = s.StopObserving(42)
	if err != nil || !ok {
		t.Fatalf("StopObserving(42) = %v, %v", ok, err)
	}

	if s.IsObserving(42) {
		t.Fatal("expected chat 42 to no longer be observed")
	}
}

func TestObserveAllExcludesPerChat(t *testing.T) {
	s := New()

	if _, err := s.StartObserving(1); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ObserveAll(true); err != nil {
		t.Fatal(err)
	}

	if !s.IsObservingAll() {
		t.Fatal("expected observe-all to be active")
	}

	if !s.IsObserving(999) {
		t.Fatal("observe-all should report every chat as observed")
	}

	ok, err := s.StartObserving(2)
	if err != nil {
		t.Fatal(err)
	}

	if ok {
		t.Fatal("StartObserving should be rejected while observe-all is active")
	}

	if _, err := s.ObserveAll(false); err != nil {
		t.Fatal(err)
	}

	if s.IsObserving(1) {
		t.Fatal("per-chat set should have been cleared when observe-all was enabled")
	}
}

func TestSpamBlockMode(t *testing.T) {
	s := New()

	if s.Mode() != tgproto.SpamBlockOff {
		t.Fatalf("expected default mode off, got %v", s.Mode())
	}

	if err := s.SetMode(tgproto.SpamBlockDeleteAndMute); err != nil {
		t.Fatal(err)
	}

	if s.Mode() != tgproto.SpamBlockDeleteAndMute {
		t.Fatalf("expected mode delete_and_mute, got %v", s.Mode())
	}
}

func TestFileSystemRoundTrip(t *testing.T) {
	s := New()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.bin")

	data := []byte("hello store")

	if s.Exists(path) {
		t.Fatal("file should not exist yet")
	}

	if err := s.WriteFile(path, data); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if !s.Exists(path) {
		t.Fatal("file should exist after WriteFile")
	}

	got, err := s.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if !bytes.Equal(got, data) {
		t.Fatalf("ReadFile returned %q, want %q", got, data)
	}

	if sum := s.SHA256(data); sum != sha256.Sum256(data) {
		t.Fatal("SHA256 mismatch")
	}
}
