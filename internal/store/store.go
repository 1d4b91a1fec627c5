// Package store is the in-memory collaborator implementation the daemon
// wires by default: chat observation state, spam-block mode, and a
// plain os/io-backed file system. A real deployment can swap this for
// a database-backed Store without tgproto itself changing, since every
// call site goes through the interfaces in tgproto/collaborators.go.
package store

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/royna2544/tgbotd/tgproto"
)

// Store is the default Observer + SpamBlock + FileSystem.
type Store struct {
	mu         sync.Mutex
	observing  map[int64]bool
	observeAll bool
	spamBlock  tgproto.SpamBlockMode
}

// New builds an empty Store: no chats observed, observe-all off, spam
// block off.
func New() *Store {
	return &Store{
		observing: map[int64]bool{},
	}
}

// StartObserving adds chatID to the observed set. Rejected with false
// while observe-all is active, mirroring the mutual-exclusion rule
// CMD_OBSERVE_CHAT_ID and CMD_OBSERVE_ALL_CHATS share.
func (s *Store) StartObserving(chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.observeAll {
		return false, nil
	}

	s.observing[chatID] = true

	return true, nil
}

// StopObserving removes chatID from the observed set.
func (s *Store) StopObserving(chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.observing, chatID)

	return true, nil
}

// ObserveAll toggles the exclusive observe-all mode. Enabling it clears
// the per-chat set so a later StartObserving call starts from a clean
// slate once observe-all is disabled again.
func (s *Store) ObserveAll(enable bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observeAll = enable

	if enable {
		s.observing = map[int64]bool{}
	}

	return true, nil
}

// IsObservingAll reports the current observe-all mode.
func (s *Store) IsObservingAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.observeAll
}

// IsObserving reports whether chatID is currently observed, either
// directly or via observe-all.
func (s *Store) IsObserving(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.observeAll || s.observing[chatID]
}

// SetMode updates the spam-block enforcement mode.
func (s *Store) SetMode(mode tgproto.SpamBlockMode) error {
	s.mu.Lock()
	s.spamBlock = mode
	s.mu.Unlock()

	return nil
}

// Mode reports the current spam-block enforcement mode.
func (s *Store) Mode() tgproto.SpamBlockMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.spamBlock
}

// ReadFile reads an upload source off disk.
func (s *Store) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}

	return data, nil
}

// WriteFile writes a transfer destination to disk, creating parent
// directories as needed so a client-chosen path doesn't have to exist
// ahead of time.
func (s *Store) WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create parent directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write file: %w", err)
	}

	return nil
}

// SHA256 hashes data.
func (s *Store) SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Exists reports whether path names an existing file.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
