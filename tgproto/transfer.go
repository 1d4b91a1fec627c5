package tgproto

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// ChunkedTransferThreshold is the size at which TRANSFER_FILE_REQUEST
// switches from a single-packet TRANSFER_FILE reply to a chunked
// TRANSFER_FILE_BEGIN/CHUNK/END exchange (spec.md §4.E).
const ChunkedTransferThreshold = 10 * 1024 * 1024

// DefaultChunkSize is the chunk size the server proposes when it starts
// a chunked transfer.
const DefaultChunkSize = 1 * 1024 * 1024

// Transfer is the ephemeral state of one in-progress chunked file
// transfer, tied 1:1 to a protocol session (spec.md §3 "Transfer
// session").
type Transfer struct {
	DestPath     string
	TotalSize    uint64
	ChunkSize    uint32
	ExpectedHash [32]byte
	Buffer       []byte
	NextExpected uint32
	StartedAt    time.Time
}

// TransferTable is the mutex-guarded map of session token -> *Transfer.
// At most one active transfer per session (spec.md §3). The mutex is
// released between chunks (spec.md §5): each operation below takes the
// lock only for the duration of its own map/slice mutation.
type TransferTable struct {
	mu        sync.Mutex
	transfers map[[SessionTokenSize]byte]*Transfer
	now       func() time.Time
}

func NewTransferTable() *TransferTable {
	return &TransferTable{
		transfers: make(map[[SessionTokenSize]byte]*Transfer),
		now:       time.Now,
	}
}

// Begin opens a new transfer for token. Per spec.md §4.E it rejects if
// one is already active, or if total_size/chunk_size/destination are
// degenerate.
func (t *TransferTable) Begin(token [SessionTokenSize]byte, req FileTransferBegin) (Ack, string) {
	if req.TotalSize == 0 {
		return AckInvalidArgument, "total_size must be > 0"
	}

	if req.ChunkSize == 0 {
		return AckInvalidArgument, "chunk_size must be > 0"
	}

	if req.Dst == "" {
		return AckInvalidArgument, "dest_path must not be empty"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.transfers[token]; exists {
		return AckCommandIgnored, "a transfer is already in progress for this session"
	}

	t.transfers[token] = &Transfer{
		DestPath:     req.Dst,
		TotalSize:    req.TotalSize,
		ChunkSize:    req.ChunkSize,
		ExpectedHash: req.Hash,
		Buffer:       make([]byte, 0, req.TotalSize),
		NextExpected: 0,
		StartedAt:    t.now(),
	}

	return AckSuccess, ""
}

// Chunk appends one chunk to the transfer for token. index must equal
// the next expected chunk index.
func (t *TransferTable) Chunk(token [SessionTokenSize]byte, index uint32, data []byte) (ok bool, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, exists := t.transfers[token]
	if !exists {
		return false, "no transfer in progress for this session"
	}

	if index != tr.NextExpected {
		return false, fmt.Sprintf("Expected chunk %d, got %d", tr.NextExpected, index)
	}

	if uint64(len(tr.Buffer))+uint64(len(data)) > tr.TotalSize {
		delete(t.transfers, token)
		return false, "chunk overruns declared total_size"
	}

	tr.Buffer = append(tr.Buffer, data...)
	tr.NextExpected++

	return true, ""
}

// EndResult is the outcome of ending a transfer.
type EndResult struct {
	Ack     Ack
	Error   string
	Buffer  []byte
	Dest    string
}

// End closes the transfer for token, verifying size (and optionally
// hash) before handing the accumulated buffer back to the caller to
// write to disk. The transfer entry is always removed, success or
// failure, per spec.md §3/§4.E.
func (t *TransferTable) End(token [SessionTokenSize]byte, verifyHash bool) EndResult {
	t.mu.Lock()
	tr, exists := t.transfers[token]
	if exists {
		delete(t.transfers, token)
	}
	t.mu.Unlock()

	if !exists {
		return EndResult{Ack: AckCommandIgnored, Error: "no transfer in progress for this session"}
	}

	if uint64(len(tr.Buffer)) != tr.TotalSize {
		return EndResult{Ack: AckRuntimeError, Error: "accumulated size does not match total_size"}
	}

	if verifyHash {
		sum := sha256.Sum256(tr.Buffer)
		if !bytes.Equal(sum[:], tr.ExpectedHash[:]) {
			return EndResult{Ack: AckRuntimeError, Error: "sha256 mismatch"}
		}
	}

	return EndResult{Ack: AckSuccess, Buffer: tr.Buffer, Dest: tr.DestPath}
}

// Abort discards any in-progress transfer for token without writing
// anything. Nothing in the dispatcher calls it: an expired session or a
// dropped connection leaves its transfer entry in place.
func (t *TransferTable) Abort(token [SessionTokenSize]byte) (partial int, had bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, exists := t.transfers[token]
	if !exists {
		return 0, false
	}

	delete(t.transfers, token)

	return len(tr.Buffer), true
}

// Len returns the number of in-progress transfers.
func (t *TransferTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.transfers)
}
