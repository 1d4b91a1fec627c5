package tgproto

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/royna2544/tgbotd/essentials"
)

// ClientOpts configures a Client's wire behaviour. Zero value is valid:
// every field falls back to the matching tgproto default.
type ClientOpts struct {
	// MaxDataSize bounds payload bodies this client will accept on a
	// reply (DefaultMaxDataSize if zero).
	MaxDataSize uint64

	// PayloadType is used for every outgoing request. Replies mirror it,
	// except OPEN_SESSION_ACK, which is always JSON, and the frames of a
	// chunked server-send, which are always binary.
	PayloadType PayloadType
}

// Client drives the wire protocol from the outside: the CLI's `Client`
// subcommand tree and any future GUI use this instead of talking to a
// raw socket, the same way the daemon's own handlers never touch
// net.Conn directly.
type Client struct {
	codec       *codec
	payloadType PayloadType

	token [SessionTokenSize]byte
	nonce uint64
}

// Dial opens network/addr (e.g. "tcp", "127.0.0.1:4443") and wraps it
// for framed I/O. It does not open a session - call OpenSession next.
func Dial(ctx context.Context, network, addr string, opts ClientOpts) (*Client, error) {
	var d net.Dialer

	nc, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("tgproto: cannot dial %s %s: %w", network, addr, err)
	}

	return NewClient(nc, opts), nil
}

// NewClient wraps an already-established net.Conn. Exposed separately
// from Dial so callers that already own a connection (a listener test,
// a Unix socket accepted elsewhere) don't have to redial.
func NewClient(nc net.Conn, opts ClientOpts) *Client {
	pt := opts.PayloadType
	if !pt.Valid() {
		pt = PayloadJSON
	}

	return &Client{
		codec:       newCodec(newConn(essentials.WrapConn(nc)), opts.MaxDataSize),
		payloadType: pt,
	}
}

// Close closes the underlying connection without sending CLOSE_SESSION.
// Callers that want the daemon to drop the session first should call
// CloseSession.
func (c *Client) Close() error {
	return c.codec.conn.Close() //nolint: wrapcheck
}

func (c *Client) nextNonce() uint64 {
	return atomic.AddUint64(&c.nonce, 1)
}

// call writes one request and reads back exactly one reply, decoding it
// against the command table. It is the building block every higher
// level Client method is expressed in terms of.
func (c *Client) call(cmd Command, v interface{}, body []byte) (Packet, interface{}, []byte, error) {
	payload, err := encodeReply(c.payloadType, v, body)
	if err != nil {
		return Packet{}, nil, nil, fmt.Errorf("tgproto: cannot encode %s request: %w", cmd, err)
	}

	req := Packet{
		Command:      cmd,
		PayloadType:  c.payloadType,
		Nonce:        c.nextNonce(),
		SessionToken: c.token,
		Payload:      payload,
	}

	if err := c.codec.Write(req); err != nil {
		return Packet{}, nil, nil, fmt.Errorf("tgproto: cannot send %s: %w", cmd, err)
	}

	reply, err := c.codec.Read()
	if err != nil {
		return Packet{}, nil, nil, fmt.Errorf("tgproto: cannot read %s reply: %w", cmd, err)
	}

	decoded, replyBody, err := decodePayload(reply)
	if err != nil {
		return Packet{}, nil, nil, fmt.Errorf("tgproto: cannot decode %s reply: %w", cmd, err)
	}

	return reply, decoded, replyBody, nil
}

// genericAck unwraps a reply that is required to be a GenericAck into a
// plain error, the shape most of the simple commands reply with.
func genericAck(decoded interface{}, err error) error {
	if err != nil {
		return err
	}

	ack, ok := decoded.(GenericAck)
	if !ok {
		return fmt.Errorf("tgproto: expected GenericAck, got %T", decoded)
	}

	if ack.Result != AckSuccess {
		return fmt.Errorf("tgproto: %s: %s", ack.Result, ack.Error)
	}

	return nil
}

// OpenSession negotiates a fresh session token. It must be called once,
// before any other Client method.
func (c *Client) OpenSession() error {
	_, decoded, _, err := c.call(CmdOpenSession, nil, nil)
	if err != nil {
		return err
	}

	ack, ok := decoded.(OpenSessionAck)
	if !ok {
		return fmt.Errorf("tgproto: OPEN_SESSION_ACK: expected OpenSessionAck, got %T", decoded)
	}

	raw, err := hexDecode(ack.SessionToken)
	if err != nil || len(raw) != SessionTokenSize {
		return fmt.Errorf("tgproto: OPEN_SESSION_ACK: malformed session_token %q", ack.SessionToken)
	}

	copy(c.token[:], raw)
	atomic.StoreUint64(&c.nonce, 0)

	return nil
}

// CloseSession tells the daemon to drop this session, then forgets the
// local token. The connection itself is left open; call Close to tear
// it down too.
func (c *Client) CloseSession() error {
	_, decoded, _, err := c.call(CmdCloseSession, nil, nil)
	if err := genericAck(decoded, err); err != nil {
		return err
	}

	c.token = [SessionTokenSize]byte{}

	return nil
}

// GetUptime asks the daemon how long it has been running.
func (c *Client) GetUptime() (string, error) {
	_, decoded, _, err := c.call(CmdGetUptime, nil, nil)
	if err != nil {
		return "", err
	}

	cb, ok := decoded.(GetUptimeCallback)
	if !ok {
		return "", fmt.Errorf("tgproto: GET_UPTIME: expected GetUptimeCallback, got %T", decoded)
	}

	return cb.Uptime, nil
}

// WriteMsg sends WRITE_MSG_TO_CHAT_ID.
func (c *Client) WriteMsg(chatID int64, message string) error {
	_, decoded, _, err := c.call(CmdWriteMsgToChatID, WriteMsgToChatID{ChatID: chatID, Message: message}, nil)
	return genericAck(decoded, err)
}

// ObserveChatID sends OBSERVE_CHAT_ID.
func (c *Client) ObserveChatID(chatID int64, observe bool) error {
	_, decoded, _, err := c.call(CmdObserveChatID, ObserveChatID{ChatID: chatID, Observe: observe}, nil)
	return genericAck(decoded, err)
}

// ObserveAllChats sends OBSERVE_ALL_CHATS.
func (c *Client) ObserveAllChats(observe bool) error {
	_, decoded, _, err := c.call(CmdObserveAllChats, ObserveAllChats{Observe: observe}, nil)
	return genericAck(decoded, err)
}

// CtrlSpamBlock sends CTRL_SPAMBLOCK.
func (c *Client) CtrlSpamBlock(mode SpamBlockMode) error {
	_, decoded, _, err := c.call(CmdCtrlSpamBlock, CtrlSpamBlock{Mode: mode}, nil)
	return genericAck(decoded, err)
}

// SendFileToChatID sends SEND_FILE_TO_CHAT_ID.
func (c *Client) SendFileToChatID(chatID int64, fileType FileType, path string) error {
	_, decoded, _, err := c.call(CmdSendFileToChatID, SendFileToChatID{ChatID: chatID, FileType: fileType, Path: path}, nil)
	return genericAck(decoded, err)
}

// PushFile implements the legacy eager push: data is attached to the
// TRANSFER_FILE request itself, so the daemon writes it to req.Dst
// without any further negotiation.
func (c *Client) PushFile(req FileTransferMeta, data []byte) error {
	if !req.HashIgnore {
		req.Hash = sha256.Sum256(data)
	}

	_, decoded, _, err := c.call(CmdTransferFile, req, data)

	return genericAck(decoded, err)
}

// RequestFile implements TRANSFER_FILE_REQUEST: below the daemon's
// chunking threshold it gets the whole body back attached to a single
// TRANSFER_FILE reply; above it, the daemon takes over the connection
// and drives a BEGIN/CHUNK/END push that receiveChunkedPush answers.
func (c *Client) RequestFile(req FileTransferMeta) ([]byte, error) {
	reply, decoded, body, err := c.call(CmdTransferFileRequest, req, nil)
	if err != nil {
		return nil, err
	}

	switch typed := decoded.(type) {
	case FileTransferMeta:
		if !req.HashIgnore {
			if got := sha256.Sum256(body); got != typed.Hash {
				return nil, fmt.Errorf("tgproto: TRANSFER_FILE: body does not match declared hash")
			}
		}

		return body, nil
	case FileTransferBegin:
		return c.receiveChunkedPush(typed, reply.SessionToken)
	case GenericAck:
		return nil, fmt.Errorf("tgproto: TRANSFER_FILE_REQUEST: %s: %s", typed.Result, typed.Error)
	default:
		return nil, fmt.Errorf("tgproto: TRANSFER_FILE_REQUEST: unexpected reply type %T", decoded)
	}
}

// receiveChunkedPush is the client-side mirror of the daemon's
// serveChunkedPush: read CHUNK, answer with a FileTransferChunkResponse,
// repeat until END, verifying the accumulated buffer's size and hash.
func (c *Client) receiveChunkedPush(begin FileTransferBegin, token [SessionTokenSize]byte) ([]byte, error) {
	buf := make([]byte, 0, begin.TotalSize)

	for {
		pkt, err := c.codec.Read()
		if err != nil {
			return nil, fmt.Errorf("tgproto: chunked receive: %w", err)
		}

		decoded, _, err := decodePayload(pkt)
		if err != nil {
			return nil, fmt.Errorf("tgproto: chunked receive: %w", err)
		}

		switch v := decoded.(type) {
		case FileTransferChunk:
			ok := uint64(len(buf))+uint64(len(v.Data)) <= begin.TotalSize
			if ok {
				buf = append(buf, v.Data...)
			}

			respPayload, err := encodeReply(pkt.PayloadType, FileTransferChunkResponse{
				Index: int64(v.Index),
				OK:    ok,
			}, nil)
			if err != nil {
				return nil, fmt.Errorf("tgproto: cannot encode chunk response: %w", err)
			}

			if err := c.codec.Write(Packet{
				Command:      CmdTransferFileChunkResponse,
				PayloadType:  pkt.PayloadType,
				SessionToken: token,
				Payload:      respPayload,
			}); err != nil {
				return nil, fmt.Errorf("tgproto: cannot write chunk response: %w", err)
			}

			if !ok {
				return nil, fmt.Errorf("tgproto: chunk %d overruns declared total_size", v.Index)
			}
		case FileTransferEnd:
			if uint64(len(buf)) != begin.TotalSize {
				return nil, fmt.Errorf("tgproto: chunked receive: got %d bytes, want %d", len(buf), begin.TotalSize)
			}

			if v.VerifyHash {
				if got := sha256.Sum256(buf); got != begin.Hash {
					return nil, fmt.Errorf("tgproto: chunked receive: sha256 mismatch")
				}
			}

			return buf, nil
		default:
			return nil, fmt.Errorf("tgproto: chunked receive: unexpected packet %T", decoded)
		}
	}
}

// UploadFile drives the client-initiated chunked upload
// (BEGIN/CHUNK/END, spec.md §4.E "client-send direction"): the
// inverse of receiveChunkedPush, used for files too large to attach to
// a single PushFile request.
func (c *Client) UploadFile(dst string, data []byte, chunkSize uint32) error {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	hash := sha256.Sum256(data)

	_, decoded, _, err := c.call(CmdTransferFileBegin, FileTransferBegin{
		Dst:       dst,
		TotalSize: uint64(len(data)),
		ChunkSize: chunkSize,
		Hash:      hash,
	}, nil)
	if err := genericAck(decoded, err); err != nil {
		return fmt.Errorf("tgproto: TRANSFER_FILE_BEGIN: %w", err)
	}

	total := uint32((uint64(len(data)) + uint64(chunkSize) - 1) / uint64(chunkSize))

	for idx := uint32(0); idx < total; idx++ {
		start := uint64(idx) * uint64(chunkSize)
		end := start + uint64(chunkSize)

		if end > uint64(len(data)) {
			end = uint64(len(data))
		}

		_, decoded, _, err := c.call(CmdTransferFileChunk, FileTransferChunk{Index: idx, Data: data[start:end]}, nil)
		if err != nil {
			return fmt.Errorf("tgproto: TRANSFER_FILE_CHUNK %d: %w", idx, err)
		}

		resp, ok := decoded.(FileTransferChunkResponse)
		if !ok {
			return fmt.Errorf("tgproto: TRANSFER_FILE_CHUNK %d: expected FileTransferChunkResponse, got %T", idx, decoded)
		}

		if !resp.OK {
			return fmt.Errorf("tgproto: TRANSFER_FILE_CHUNK %d rejected: %s", idx, resp.Error)
		}
	}

	_, decoded, _, err = c.call(CmdTransferFileEnd, FileTransferEnd{VerifyHash: true}, nil)

	return genericAck(decoded, err)
}

// Deadline arranges for the next Read/Write on the underlying
// connection to fail after d, the way a CLI client bounds a single
// request-reply round trip.
func (c *Client) Deadline(d time.Duration) error {
	return c.codec.conn.SetDeadline(time.Now().Add(d)) //nolint: wrapcheck
}
