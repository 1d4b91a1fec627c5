package tgproto

import (
	"context"
	"errors"
	"fmt"
)

// handlerResult is what a handler hands back to the dispatcher: the
// reply payload (nil for "send a plain GenericAck"), an attached body
// for file pushes, and whether the handler already wrote its own
// reply(ies) directly on the connection (the chunked server-send path,
// spec.md §4.E).
type handlerResult struct {
	reply       interface{}
	body        []byte
	selfWritten bool
}

func ackResult(ack Ack, msg string) handlerResult {
	if ack == AckSuccess {
		return handlerResult{reply: genericAckSuccess()}
	}

	return handlerResult{reply: genericAckErr(ack, msg)}
}

// handlerFunc is the shape every per-command adapter satisfies. sess is
// nil only for OPEN_SESSION, the one command that runs before a session
// exists.
type handlerFunc func(ctx context.Context, d *Dispatcher, c *dispatchConn, sess *Session, decoded interface{}, body []byte) (handlerResult, error)

var handlerTable = map[Command]handlerFunc{
	CmdOpenSession:         handleOpenSession,
	CmdCloseSession:        handleCloseSession,
	CmdWriteMsgToChatID:    handleWriteMsgToChatID,
	CmdCtrlSpamBlock:       handleCtrlSpamBlock,
	CmdObserveChatID:       handleObserveChatID,
	CmdObserveAllChats:     handleObserveAllChats,
	CmdSendFileToChatID:    handleSendFileToChatID,
	CmdGetUptime:           handleGetUptime,
	CmdTransferFile:        handleTransferFile,
	CmdTransferFileRequest: handleTransferFileRequest,
	CmdTransferFileBegin:   handleTransferFileBegin,
	CmdTransferFileChunk:   handleTransferFileChunk,
	CmdTransferFileEnd:     handleTransferFileEnd,
}

func handleOpenSession(ctx context.Context, d *Dispatcher, c *dispatchConn, _ *Session, _ interface{}, _ []byte) (handlerResult, error) {
	sess, err := d.sessions.Open()
	if err != nil {
		return handlerResult{}, fmt.Errorf("cannot open session: %w", err)
	}

	d.events.Send(ctx, NewEventSessionOpened(c.streamID))

	return handlerResult{reply: OpenSessionAck{
		SessionToken:   hexEncode(sess.Token[:]),
		ExpirationTime: sess.ExpiresAt.Unix(),
	}}, nil
}

func handleCloseSession(ctx context.Context, d *Dispatcher, c *dispatchConn, sess *Session, _ interface{}, _ []byte) (handlerResult, error) {
	d.sessions.Close(sess.Token)
	d.events.Send(ctx, NewEventSessionClosed(c.streamID, "close"))

	return ackResult(AckSuccess, ""), nil
}

func handleWriteMsgToChatID(ctx context.Context, d *Dispatcher, _ *dispatchConn, _ *Session, decoded interface{}, _ []byte) (handlerResult, error) {
	req, ok := decoded.(WriteMsgToChatID)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	if err := d.bot.SendMessage(ctx, req.ChatID, req.Message); err != nil {
		return ackResult(AckTgAPIException, err.Error()), nil
	}

	return ackResult(AckSuccess, ""), nil
}

func handleCtrlSpamBlock(_ context.Context, d *Dispatcher, _ *dispatchConn, _ *Session, decoded interface{}, _ []byte) (handlerResult, error) {
	req, ok := decoded.(CtrlSpamBlock)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	if err := d.spam.SetMode(req.Mode); err != nil {
		return ackResult(AckInvalidArgument, err.Error()), nil
	}

	return ackResult(AckSuccess, ""), nil
}

func handleObserveChatID(_ context.Context, d *Dispatcher, _ *dispatchConn, _ *Session, decoded interface{}, _ []byte) (handlerResult, error) {
	req, ok := decoded.(ObserveChatID)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	if d.observer.IsObservingAll() {
		return ackResult(AckCommandIgnored, "CMD_OBSERVE_ALL_CHATS active"), nil
	}

	var (
		applied bool
		err     error
	)

	if req.Observe {
		applied, err = d.observer.StartObserving(req.ChatID)
	} else {
		applied, err = d.observer.StopObserving(req.ChatID)
	}

	if err != nil {
		return ackResult(AckRuntimeError, err.Error()), nil
	}

	if !applied {
		return ackResult(AckCommandIgnored, "no state change"), nil
	}

	return ackResult(AckSuccess, ""), nil
}

func handleObserveAllChats(_ context.Context, d *Dispatcher, _ *dispatchConn, _ *Session, decoded interface{}, _ []byte) (handlerResult, error) {
	req, ok := decoded.(ObserveAllChats)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	if _, err := d.observer.ObserveAll(req.Observe); err != nil {
		return ackResult(AckRuntimeError, err.Error()), nil
	}

	return ackResult(AckSuccess, ""), nil
}

func handleSendFileToChatID(ctx context.Context, d *Dispatcher, _ *dispatchConn, _ *Session, decoded interface{}, _ []byte) (handlerResult, error) {
	req, ok := decoded.(SendFileToChatID)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	if !d.fs.Exists(req.Path) {
		return ackResult(AckInvalidArgument, fmt.Sprintf("no such file: %s", req.Path)), nil
	}

	var err error

	switch req.FileType {
	case FileTypeDocument:
		err = d.bot.SendDocument(ctx, req.ChatID, req.Path, "")
	case FileTypePhoto:
		err = d.bot.SendPhoto(ctx, req.ChatID, req.Path, "")
	case FileTypeVideo:
		err = d.bot.SendVideo(ctx, req.ChatID, req.Path, "")
	case FileTypeSticker:
		err = d.bot.SendSticker(ctx, req.ChatID, req.Path)
	case FileTypeAnimation:
		err = d.bot.SendAnimation(ctx, req.ChatID, req.Path, "")
	case FileTypeDice:
		err = d.bot.SendDice(ctx, req.ChatID)
	default:
		return ackResult(AckInvalidArgument, fmt.Sprintf("unknown file type %d", req.FileType)), nil
	}

	if err != nil {
		return ackResult(AckTgAPIException, err.Error()), nil
	}

	return ackResult(AckSuccess, ""), nil
}

func handleGetUptime(_ context.Context, d *Dispatcher, _ *dispatchConn, _ *Session, _ interface{}, _ []byte) (handlerResult, error) {
	return handlerResult{reply: GetUptimeCallback{Uptime: d.bot.GetUptime()}}, nil
}

// handleTransferFile implements the legacy client-driven push: the
// request itself carries the file body (spec.md §4.A table row 1), so
// unlike TRANSFER_FILE_REQUEST there is nothing to read off disk here —
// the attached body is written straight to req.Dst and, unless the
// caller opted out, checked against req.Hash before being acked.
func handleTransferFile(_ context.Context, d *Dispatcher, _ *dispatchConn, _ *Session, decoded interface{}, body []byte) (handlerResult, error) {
	req, ok := decoded.(FileTransferMeta)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	if req.DryRun {
		return ackResult(AckSuccess, ""), nil
	}

	if !req.Overwrite && d.fs.Exists(req.Dst) {
		return ackResult(AckClientError, fmt.Sprintf("%s already exists", req.Dst)), nil
	}

	if !req.HashIgnore {
		if got := d.fs.SHA256(body); got != req.Hash {
			return ackResult(AckClientError, "attached body does not match req.Hash"), nil
		}
	}

	if err := d.fs.WriteFile(req.Dst, body); err != nil {
		return ackResult(AckRuntimeError, err.Error()), nil
	}

	return ackResult(AckSuccess, ""), nil
}

// handleTransferFileRequest is the "dry" negotiation entry point: below
// ChunkedTransferThreshold it replies with a single TRANSFER_FILE
// carrying the whole body of req.Src (doTransferPush); above
// it, it takes over the connection and drives the BEGIN/CHUNK/END
// exchange itself (spec.md §4.E "Server-send direction").
func handleTransferFileRequest(ctx context.Context, d *Dispatcher, c *dispatchConn, sess *Session, decoded interface{}, _ []byte) (handlerResult, error) {
	req, ok := decoded.(FileTransferMeta)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	data, err := d.fs.ReadFile(req.Src)
	if err != nil {
		return ackResult(AckRuntimeError, err.Error()), nil
	}

	if uint64(len(data)) < d.config.ChunkedTransferThreshold {
		return doTransferPush(ctx, d, c, sess, decoded, data)
	}

	if req.DryRun {
		return ackResult(AckSuccess, ""), nil
	}

	if err := d.serveChunkedPush(ctx, c, sess, req, data); err != nil {
		return handlerResult{}, err
	}

	return handlerResult{selfWritten: true}, nil
}

// doTransferPush reads req.Src and replies TRANSFER_FILE with the whole
// body attached. dataHint, when non-nil, is reused instead of reading
// the file a second time (TRANSFER_FILE_REQUEST already read it once to
// decide whether the size crosses ChunkedTransferThreshold).
func doTransferPush(_ context.Context, d *Dispatcher, _ *dispatchConn, _ *Session, decoded interface{}, dataHint []byte) (handlerResult, error) {
	req, ok := decoded.(FileTransferMeta)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	data := dataHint

	if data == nil {
		var err error

		data, err = d.fs.ReadFile(req.Src)
		if err != nil {
			return ackResult(AckRuntimeError, err.Error()), nil
		}
	}

	if req.DryRun {
		return ackResult(AckSuccess, ""), nil
	}

	if !req.HashIgnore {
		req.Hash = d.fs.SHA256(data)
	}

	return handlerResult{reply: req, body: data}, nil
}

func handleTransferFileBegin(ctx context.Context, d *Dispatcher, c *dispatchConn, sess *Session, decoded interface{}, _ []byte) (handlerResult, error) {
	req, ok := decoded.(FileTransferBegin)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	ack, msg := d.transfers.Begin(sess.Token, req)

	if ack == AckSuccess {
		d.events.Send(ctx, NewEventTransferBegin(c.streamID, req.TotalSize, req.ChunkSize))
	}

	return ackResult(ack, msg), nil
}

func handleTransferFileChunk(ctx context.Context, d *Dispatcher, c *dispatchConn, sess *Session, decoded interface{}, _ []byte) (handlerResult, error) {
	req, ok := decoded.(FileTransferChunk)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	ok2, errMsg := d.transfers.Chunk(sess.Token, req.Index, req.Data)

	d.events.Send(ctx, NewEventTransferChunk(c.streamID, req.Index, ok2))

	return handlerResult{reply: FileTransferChunkResponse{
		Index: int64(req.Index),
		OK:    ok2,
		Error: errMsg,
	}}, nil
}

func handleTransferFileEnd(ctx context.Context, d *Dispatcher, c *dispatchConn, sess *Session, decoded interface{}, _ []byte) (handlerResult, error) {
	req, ok := decoded.(FileTransferEnd)
	if !ok {
		return handlerResult{}, errInvalidDecoded
	}

	result := d.transfers.End(sess.Token, req.VerifyHash)

	d.events.Send(ctx, NewEventTransferEnd(c.streamID, result.Ack))

	if result.Ack != AckSuccess {
		return ackResult(result.Ack, result.Error), nil
	}

	if err := d.fs.WriteFile(result.Dest, result.Buffer); err != nil {
		return ackResult(AckRuntimeError, err.Error()), nil
	}

	return ackResult(AckSuccess, ""), nil
}

var errInvalidDecoded = errors.New("tgproto: decoded payload has unexpected type for this command")
