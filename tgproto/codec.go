package tgproto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/royna2544/tgbotd/essentials"
)

// Sentinel errors returned by Read/Write. Callers branch on these with
// errors.Is; transport errors are wrapped os/net errors and are not one
// of these.
var (
	// ErrProtocol is returned when a header fails to validate (bad magic,
	// bad payload type, size/checksum mismatch).
	ErrProtocol = errors.New("tgproto: protocol error")

	// ErrTooLarge is returned when data_size exceeds the configured maximum.
	ErrTooLarge = errors.New("tgproto: payload too large")
)

// conn wraps an essentials.Conn with a per-connection write lock, so that
// concurrent writers (a handler streaming chunks, the dispatcher's own
// reply) never interleave bytes on the wire. This is the "Connection"
// entity from spec.md §3: it owns a write lock and is otherwise a thin
// pass-through to the socket.
type conn struct {
	essentials.Conn

	writeMu sync.Mutex
}

func newConn(c essentials.Conn) *conn {
	return &conn{Conn: c}
}

// codec reads and writes Packets on a single conn. It carries the
// maximum accepted payload size, since that is the one tunable the spec
// calls out (default 64 MiB, reject larger).
type codec struct {
	conn       *conn
	maxDataSz  uint64
}

func newCodec(c *conn, maxDataSize uint64) *codec {
	if maxDataSize == 0 {
		maxDataSize = DefaultMaxDataSize
	}

	return &codec{conn: c, maxDataSz: maxDataSize}
}

// Write atomically writes header then payload under the connection's
// write lock. A short write anywhere is a fatal I/O error for this
// connection (spec.md §4.A).
func (c *codec) Write(p Packet) error {
	if !p.PayloadType.Valid() {
		return fmt.Errorf("%w: invalid payload type %d", ErrProtocol, p.PayloadType)
	}

	header := make([]byte, HeaderSize)

	binary.LittleEndian.PutUint64(header[0:8], Magic)
	binary.LittleEndian.PutUint32(header[8:12], uint32(p.Command))
	header[12] = byte(p.PayloadType)
	binary.LittleEndian.PutUint64(header[13:21], uint64(len(p.Payload)))
	binary.LittleEndian.PutUint64(header[21:29], p.Nonce)
	copy(header[29:29+SessionTokenSize], p.SessionToken[:])

	var checksum uint32
	if len(p.Payload) > 0 {
		checksum = crc32.ChecksumIEEE(p.Payload)
	}

	binary.LittleEndian.PutUint32(header[29+SessionTokenSize:29+SessionTokenSize+4], checksum)
	// remaining headerPadding bytes are left zeroed.

	c.conn.writeMu.Lock()
	defer c.conn.writeMu.Unlock()

	if err := writeFull(c.conn, header); err != nil {
		return fmt.Errorf("cannot write packet header: %w", err)
	}

	if len(p.Payload) > 0 {
		if err := writeFull(c.conn, p.Payload); err != nil {
			return fmt.Errorf("cannot write packet payload: %w", err)
		}
	}

	return nil
}

// Read reads exactly one packet: header, then its payload. It validates
// magic, data_size bound and CRC32 before returning.
func (c *codec) Read() (Packet, error) {
	header := make([]byte, HeaderSize)

	if err := readFull(c.conn, header); err != nil {
		return Packet{}, err
	}

	magic := binary.LittleEndian.Uint64(header[0:8])
	if magic != Magic {
		return Packet{}, fmt.Errorf("%w: bad magic %#x", ErrProtocol, magic)
	}

	command := Command(binary.LittleEndian.Uint32(header[8:12]))
	payloadType := PayloadType(header[12])

	if !payloadType.Valid() {
		return Packet{}, fmt.Errorf("%w: unknown payload type %d", ErrProtocol, header[12])
	}

	dataSize := binary.LittleEndian.Uint64(header[13:21])
	if dataSize > c.maxDataSz {
		return Packet{}, fmt.Errorf("%w: data_size %d exceeds max %d", ErrTooLarge, dataSize, c.maxDataSz)
	}

	nonce := binary.LittleEndian.Uint64(header[21:29])

	var token [SessionTokenSize]byte
	copy(token[:], header[29:29+SessionTokenSize])

	expectedChecksum := binary.LittleEndian.Uint32(header[29+SessionTokenSize : 29+SessionTokenSize+4])

	var payload []byte
	if dataSize > 0 {
		payload = make([]byte, dataSize)
		if err := readFull(c.conn, payload); err != nil {
			return Packet{}, err
		}

		if actual := crc32.ChecksumIEEE(payload); actual != expectedChecksum {
			return Packet{}, fmt.Errorf("%w: checksum mismatch (want %#x, got %#x)",
				ErrProtocol, expectedChecksum, actual)
		}
	} else if expectedChecksum != 0 {
		return Packet{}, fmt.Errorf("%w: checksum must be 0 when data_size is 0", ErrProtocol)
	}

	return Packet{
		Command:      command,
		PayloadType:  payloadType,
		Nonce:        nonce,
		SessionToken: token,
		Payload:      payload,
	}, nil
}

func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return fmt.Errorf("cannot read %d bytes: %w", len(buf), err)
	}

	return nil
}

func writeFull(w io.Writer, buf []byte) error {
	n, err := w.Write(buf)
	if err != nil {
		return fmt.Errorf("short write (%d/%d bytes): %w", n, len(buf), err)
	}

	if n != len(buf) {
		return fmt.Errorf("short write (%d/%d bytes)", n, len(buf))
	}

	return nil
}
