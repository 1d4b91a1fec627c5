// Package tgproto implements the wire protocol that lets a remote client
// (including the native GUI) drive a Telegram bot over a socket: framing,
// session-scoped authentication, command dispatch and chunked file
// transfer. See the component design in SPEC_FULL.md §4.A-§4.H.
package tgproto

import "fmt"

// Magic is the constant that opens every packet header. A mismatch means
// the peer is not speaking this protocol (or the stream desynced) and the
// connection is dropped.
const Magic uint64 = 0xDEADFACE

// HeaderSize is the fixed, on-the-wire size of a Packet header: magic(8) +
// command(4) + payload_type(1) + data_size(8) + nonce(8) + session_token(32)
// + checksum(4) + headerPadding(16). The field widths alone sum to 65
// bytes; the remaining 16 bytes are alignment padding inherited from the
// original C struct layout (spec.md §6 states the header is 81 bytes on
// the wire, and §9 asks re-implementations to encode such padding
// explicitly rather than relying on source-level struct packing).
const HeaderSize = 8 + 4 + 1 + 8 + 8 + 32 + 4 + headerPadding

const headerPadding = 16

// MaxPath is a Windows-era carry-over (spec.md §9): the wire constant for
// fixed-length path fields. In-process representation stays unbounded
// UTF-8; this only bounds the binary payload layout.
const MaxPath = 260

// SessionTokenSize is the length, in bytes, of a session token.
const SessionTokenSize = 32

// DefaultMaxDataSize bounds payload bodies read off the wire (64 MiB).
const DefaultMaxDataSize = 64 * 1024 * 1024

// PayloadType selects how a packet's payload body is encoded.
type PayloadType uint8

const (
	PayloadBinary PayloadType = iota
	PayloadJSON
)

func (t PayloadType) String() string {
	switch t {
	case PayloadBinary:
		return "binary"
	case PayloadJSON:
		return "json"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the published payload types.
func (t PayloadType) Valid() bool {
	return t == PayloadBinary || t == PayloadJSON
}

// Packet is the atomic unit on the wire: a fixed header followed by
// exactly data_size bytes of payload.
type Packet struct {
	Command      Command
	PayloadType  PayloadType
	Nonce        uint64
	SessionToken [SessionTokenSize]byte
	Payload      []byte
}

// JSONByteBorder is the sentinel byte that separates a JSON payload object
// from an inline binary body (upload commands), per spec.md §4.A.
const JSONByteBorder byte = 0x00
