package tgproto

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

// VerifyResult is the outcome of a SessionTable.Verify call.
type VerifyResult int

const (
	VerifyOK VerifyResult = iota
	VerifyUnknown
	VerifyExpired
	VerifyStaleNonce
)

func (r VerifyResult) String() string {
	switch r {
	case VerifyOK:
		return "ok"
	case VerifyUnknown:
		return "unknown"
	case VerifyExpired:
		return "expired"
	case VerifyStaleNonce:
		return "stale_nonce"
	default:
		return "?"
	}
}

// DefaultSessionTTL is the lifetime granted to a session by OPEN_SESSION.
const DefaultSessionTTL = time.Hour

// Session is a bearer-token-scoped conversation with nonce replay
// protection (spec.md §3).
type Session struct {
	Token     [SessionTokenSize]byte
	LastNonce uint64
	ExpiresAt time.Time
}

// SessionTable issues, validates and expires session tokens. All three
// operations share one mutex (spec.md §4.B): this is deliberately not a
// lock-free map, per spec.md §9 design notes.
type SessionTable struct {
	mu       sync.Mutex
	sessions map[[SessionTokenSize]byte]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionTable builds a SessionTable granting ttl to freshly opened
// sessions (DefaultSessionTTL if ttl is zero).
func NewSessionTable(ttl time.Duration) *SessionTable {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &SessionTable{
		sessions: make(map[[SessionTokenSize]byte]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Open generates a cryptographically random token, inserts a fresh entry
// and returns it.
func (t *SessionTable) Open() (*Session, error) {
	var token [SessionTokenSize]byte

	if _, err := rand.Read(token[:]); err != nil {
		return nil, fmt.Errorf("cannot generate session token: %w", err)
	}

	sess := &Session{
		Token:     token,
		LastNonce: 0,
		ExpiresAt: t.now().Add(t.ttl),
	}

	t.mu.Lock()
	t.sessions[token] = sess
	t.mu.Unlock()

	return sess, nil
}

// Verify looks up token and checks nonce monotonicity. A StaleNonce
// result must be logged and the packet dropped by the caller (spec.md
// §4.B), not merely rejected with a reply; Unknown and Expired instead
// get a GenericAck reply with the connection kept open (spec.md §7).
func (t *SessionTable) Verify(token [SessionTokenSize]byte, nonce uint64) VerifyResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[token]
	if !ok {
		return VerifyUnknown
	}

	if t.now().After(sess.ExpiresAt) {
		delete(t.sessions, token)
		return VerifyExpired
	}

	if nonce <= sess.LastNonce {
		return VerifyStaleNonce
	}

	sess.LastNonce = nonce

	return VerifyOK
}

// Get returns the live session for token, if any. Used by the
// dispatcher after a successful Verify to pass the *Session through to
// handlers without a second nonce check.
func (t *SessionTable) Get(token [SessionTokenSize]byte) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[token]

	return sess, ok
}

// Close erases the session entry. Safe to call on an already-unknown
// token.
func (t *SessionTable) Close(token [SessionTokenSize]byte) {
	t.mu.Lock()
	delete(t.sessions, token)
	t.mu.Unlock()
}

// Len returns the number of sessions in the table, expired entries
// that Verify has not yet erased included.
func (t *SessionTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.sessions)
}
