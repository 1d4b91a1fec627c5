package tgproto

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/royna2544/tgbotd/essentials"
)

// Dispatcher is the command-plane server: it accepts connections,
// frames packets, verifies sessions and dispatches each command to its
// handler (spec.md §4.D), adapted from the teacher's mtglib.Proxy.
type Dispatcher struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup

	bot      BotAPI
	observer Observer
	spam     SpamBlock
	fs       FileSystem

	sessions    *SessionTable
	transfers   *TransferTable
	antiReplay  AntiReplayCache
	allowlist   *IPList
	blocklist   *IPList
	rateLimiter *RateLimiter

	events EventStream
	logger essentials.Logger
	config ServerConfig

	workerPool *ants.PoolWithFunc
}

// NewServer builds a Dispatcher from opts. The worker pool backing
// handler dispatch is sized by opts.Concurrency (DefaultConcurrency if
// unset), mirroring mtglib.NewProxy.
func NewServer(opts ServerOpts) (*Dispatcher, error) {
	if err := opts.valid(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		ctx:         ctx,
		ctxCancel:   cancel,
		bot:         opts.BotAPI,
		observer:    opts.Observer,
		spam:        opts.SpamBlock,
		fs:          opts.FileSystem,
		sessions:    NewSessionTable(opts.getConfig().SessionTTL),
		transfers:   NewTransferTable(),
		antiReplay:  opts.AntiReplayCache,
		allowlist:   opts.IPAllowlist,
		blocklist:   opts.IPBlocklist,
		rateLimiter: opts.RateLimiter,
		events:      opts.EventStream,
		logger:      opts.Logger.Named("dispatcher"),
		config:      opts.getConfig(),
	}

	pool, err := ants.NewPoolWithFunc(opts.getConcurrency(),
		func(arg interface{}) {
			task := arg.(*dispatchTask) //nolint: forcetypeassert
			task.done <- runHandlerSafely(task)
		},
		ants.WithLogger(antsLogAdapter{opts.Logger.Named("ants")}),
		ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("cannot create worker pool: %w", err)
	}

	d.workerPool = pool

	return d, nil
}

// antsLogAdapter satisfies ants.Logger on top of essentials.Logger.
type antsLogAdapter struct {
	logger essentials.Logger
}

func (a antsLogAdapter) Printf(format string, args ...interface{}) {
	a.logger.Info(fmt.Sprintf(format, args...))
}

// dispatchConn bundles the per-connection state: its framed codec, its
// traffic accounting, and a remote-IP-derived log context and stream id
// (TCP vs UDP datagram boundaries are handled by the listener, not here).
type dispatchConn struct {
	codec    *codec
	traffic  *connTraffic
	streamID string
	remoteIP net.IP
	logger   essentials.Logger
}

// ServeConn serves one already-accepted connection until it errors out
// or the dispatcher is shut down. IP allow/block-listing and rate
// limiting are expected to have been applied by the caller (listener or
// Serve) before invoking this, mirroring the teacher's ServeConn
// contract ("we do not check IP blocklist... here").
func (d *Dispatcher) ServeConn(c essentials.Conn) {
	d.wg.Add(1)
	defer d.wg.Done()

	remoteIP := remoteIPOf(c)
	streamID := newStreamID()

	cn := newConn(c)
	traffic := newConnTraffic(cn, streamID, d.events, d.ctx)
	cd := newCodec(cn, d.config.MaxDataSize)

	dc := &dispatchConn{
		codec:    cd,
		traffic:  traffic,
		streamID: streamID,
		remoteIP: remoteIP,
		logger:   d.logger.BindStr("ip", hashIP(remoteIP)).BindStr("stream", streamID),
	}

	d.events.Send(d.ctx, NewEventConnStart(streamID, remoteIP))
	dc.logger.Info("connection started")

	defer func() {
		traffic.FlushTraffic()
		traffic.Close()
		d.events.Send(d.ctx, NewEventConnFinish(streamID))
		dc.logger.Info("connection finished")
	}()

	if d.config.HandshakeTimeout > 0 {
		traffic.SetDeadline(time.Now().Add(d.config.HandshakeTimeout)) //nolint: errcheck
	}

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		packet, err := dc.codec.Read()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				dc.logger.InfoError("connection closed", err)
			}

			return
		}

		if !d.handlePacket(dc, packet) {
			return
		}

		// The handshake deadline covers the first packet; from then on
		// the idle deadline is renewed after every packet.
		if d.config.ConnectionIdleTimeout > 0 {
			traffic.SetDeadline(time.Now().Add(d.config.ConnectionIdleTimeout)) //nolint: errcheck
		}
	}
}

// handlePacket processes exactly one request and writes exactly one
// reply, unless the handler already owns the connection (the chunked
// server-send path). Returns false when the connection must be torn
// down.
func (d *Dispatcher) handlePacket(dc *dispatchConn, packet Packet) bool {
	entry, known := commandTable[packet.Command]
	if !known || entry.IsInternal {
		dc.logger.Warning(fmt.Sprintf("rejected unknown or internal command %d", packet.Command))
		return false
	}

	var sess *Session

	if packet.Command != CmdOpenSession {
		result := d.sessions.Verify(packet.SessionToken, packet.Nonce)

		if result != VerifyOK {
			d.events.Send(d.ctx, NewEventReplay(dc.streamID, result))
			dc.logger.Warning(fmt.Sprintf("session verify failed: %s", result))

			if result == VerifyStaleNonce {
				// spec.md §4.B: a stale nonce is logged and the packet is
				// dropped, not merely rejected, to defeat replays.
				return true
			}

			if result == VerifyExpired {
				// Verify has just erased the expired entry: lazy expiry.
				d.events.Send(d.ctx, NewEventSessionClosed(dc.streamID, "expired"))
			}

			// Unknown/Expired reply with GenericAck.error and keep the
			// connection open (spec.md §7).
			return d.writeReply(dc, packet, ackResult(AckRuntimeError, "session "+result.String()))
		}

		if d.antiReplay.SeenBefore(replayDigest(packet.SessionToken, packet.Nonce)) {
			d.events.Send(d.ctx, NewEventReplay(dc.streamID, VerifyStaleNonce))
			dc.logger.Warning("replay cache rejected nonce")

			return true
		}

		s, ok := d.sessions.Get(packet.SessionToken)
		if !ok {
			return true
		}

		sess = s
	}

	decoded, body, err := decodePayload(packet)
	if err != nil {
		dc.logger.InfoError("cannot decode payload", err)
		return d.writeReply(dc, packet, ackResult(AckInvalidArgument, err.Error()))
	}

	start := time.Now()

	outcome := d.dispatch(dc, sess, packet.Command, decoded, body)
	if outcome.err != nil {
		dc.logger.WarningError("handler error", outcome.err)
		d.events.Send(d.ctx, NewEventCommand(dc.streamID, packet.Command, AckRuntimeError, time.Since(start)))

		return d.writeReply(dc, packet, ackResult(AckRuntimeError, outcome.err.Error()))
	}

	d.events.Send(d.ctx, NewEventCommand(dc.streamID, packet.Command, ackOf(outcome.result), time.Since(start)))

	if outcome.result.selfWritten {
		return true
	}

	return d.writeReply(dc, packet, outcome.result)
}

func ackOf(r handlerResult) Ack {
	if ga, ok := r.reply.(GenericAck); ok {
		return ga.Result
	}

	return AckSuccess
}

// dispatchTask is the unit of work handed to the worker pool: enough
// context for the pooled goroutine to run the handler and report back
// on done, so the connection's reader loop can block for the result and
// preserve per-connection reply ordering (spec.md §5) while still
// bounding total concurrent handler work process-wide.
type dispatchTask struct {
	ctx     context.Context
	d       *Dispatcher
	c       *dispatchConn
	sess    *Session
	cmd     Command
	decoded interface{}
	body    []byte
	done    chan dispatchOutcome
}

type dispatchOutcome struct {
	result handlerResult
	err    error
}

func (d *Dispatcher) dispatch(c *dispatchConn, sess *Session, cmd Command, decoded interface{}, body []byte) dispatchOutcome {
	task := &dispatchTask{
		ctx:     d.ctx,
		d:       d,
		c:       c,
		sess:    sess,
		cmd:     cmd,
		decoded: decoded,
		body:    body,
		done:    make(chan dispatchOutcome, 1),
	}

	if err := d.workerPool.Invoke(task); err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			// No protocol concept of "server busy" for a single command;
			// run inline rather than drop the request.
			return runHandlerSafely(task)
		}

		return dispatchOutcome{err: fmt.Errorf("cannot schedule handler: %w", err)}
	}

	return <-task.done
}

// runHandlerSafely invokes the registered handler for task.cmd, turning
// a panic into RuntimeError per spec.md §7 ("An exception escaping a
// handler is caught at the dispatcher").
func runHandlerSafely(task *dispatchTask) (outcome dispatchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = dispatchOutcome{result: ackResult(AckRuntimeError, fmt.Sprintf("panic: %v", r))}
		}
	}()

	fn, ok := handlerTable[task.cmd]
	if !ok {
		return dispatchOutcome{result: ackResult(AckCommandIgnored, "no handler registered for "+task.cmd.String())}
	}

	result, err := fn(task.ctx, task.d, task.c, task.sess, task.decoded, task.body)
	if err != nil {
		return dispatchOutcome{err: err}
	}

	return dispatchOutcome{result: result}
}

func (d *Dispatcher) writeReply(dc *dispatchConn, req Packet, result handlerResult) bool {
	replyCmd := replyCommandFor(req.Command, result.reply)

	// OpenSessionAck has no binary wire shape (spec.md §6 lists none for
	// it); always hand it back as JSON regardless of the request's
	// payload type.
	payloadType := req.PayloadType
	if replyCmd == CmdOpenSessionAck {
		payloadType = PayloadJSON
	}

	payload, err := encodeReply(payloadType, result.reply, result.body)
	if err != nil {
		dc.logger.WarningError("cannot encode reply", err)
		return false
	}

	reply := Packet{
		Command:      replyCmd,
		PayloadType:  payloadType,
		Nonce:        req.Nonce,
		SessionToken: req.SessionToken,
		Payload:      payload,
	}

	if err := dc.codec.Write(reply); err != nil {
		dc.logger.WarningError("cannot write reply", err)
		return false
	}

	return true
}

// replyCommandFor picks the wire command tag for a reply given what the
// handler produced, since a GenericAck and a typed reply (e.g.
// OpenSessionAck) use different command codes on the wire.
func replyCommandFor(req Command, reply interface{}) Command {
	switch reply.(type) {
	case OpenSessionAck:
		return CmdOpenSessionAck
	case GetUptimeCallback:
		return CmdGetUptimeCallback
	case FileTransferMeta:
		return CmdTransferFile
	case FileTransferChunkResponse:
		return CmdTransferFileChunkResponse
	default:
		return CmdGenericAck
	}
}

// Serve accepts connections from listener until it errors or the
// dispatcher is shut down, applying the IP allow/block list and rate
// limiter to every accepted connection before starting a ServeConn
// goroutine for it (mirrors mtglib.Proxy.Serve).
func (d *Dispatcher) Serve(listener net.Listener) error {
	d.wg.Add(1)
	defer d.wg.Done()

	for {
		c, err := listener.Accept()
		if err != nil {
			select {
			case <-d.ctx.Done():
				return nil
			default:
				return fmt.Errorf("cannot accept a new connection: %w", err)
			}
		}

		ec, ok := c.(essentials.Conn)
		if !ok {
			c.Close()
			continue
		}

		ip := remoteIPOf(ec)

		if d.allowlist != nil && !d.allowlist.empty && !d.allowlist.Contains(ip) {
			ec.Close()
			d.events.Send(d.ctx, NewEventIPBlocked(newStreamID(), ip, false))

			continue
		}

		if d.blocklist != nil && d.blocklist.Contains(ip) {
			ec.Close()
			d.events.Send(d.ctx, NewEventIPBlocked(newStreamID(), ip, true))

			continue
		}

		if d.rateLimiter != nil && !d.rateLimiter.Allow(ip) {
			ec.Close()
			d.events.Send(d.ctx, NewEventRateLimited(newStreamID(), ip))

			continue
		}

		go d.ServeConn(ec)
	}
}

// Shutdown cancels every in-flight connection's context and waits for
// them to finish, then releases the worker pool. Does not close the
// listener.
func (d *Dispatcher) Shutdown() {
	d.ctxCancel()
	d.wg.Wait()
	d.workerPool.Release()

	if d.rateLimiter != nil {
		d.rateLimiter.Stop()
	}
}

// serveChunkedPush drives the server-send chunked exchange directly.
// Each write takes the connection's write lock on its own; replies stay
// in order because the connection's read loop is blocked waiting for
// this handler until the exchange ends (spec.md §4.E).
func (d *Dispatcher) serveChunkedPush(_ context.Context, c *dispatchConn, sess *Session, req FileTransferMeta, data []byte) error {
	chunkSize := d.config.DefaultChunkSize
	hash := sha256.Sum256(data)

	begin := FileTransferBegin{
		Dst:       req.Dst,
		TotalSize: uint64(len(data)),
		ChunkSize: chunkSize,
		Hash:      hash,
	}

	if err := c.codec.Write(Packet{
		Command:      CmdTransferFileBegin,
		PayloadType:  PayloadBinary,
		SessionToken: sess.Token,
		Payload:      begin.encodeBinary(),
	}); err != nil {
		return fmt.Errorf("cannot write transfer begin: %w", err)
	}

	total := uint32((uint64(len(data)) + uint64(chunkSize) - 1) / uint64(chunkSize))

	for idx := uint32(0); idx < total; idx++ {
		start := uint64(idx) * uint64(chunkSize)
		end := start + uint64(chunkSize)

		if end > uint64(len(data)) {
			end = uint64(len(data))
		}

		chunk := FileTransferChunk{Index: idx, Data: data[start:end]}

		if err := c.codec.Write(Packet{
			Command:      CmdTransferFileChunk,
			PayloadType:  PayloadBinary,
			SessionToken: sess.Token,
			Payload:      chunk.encodeBinary(),
		}); err != nil {
			return fmt.Errorf("cannot write chunk %d: %w", idx, err)
		}

		resp, err := c.codec.Read()
		if err != nil {
			return fmt.Errorf("cannot read chunk response %d: %w", idx, err)
		}

		decoded, _, err := decodePayload(resp)
		if err != nil {
			return fmt.Errorf("cannot decode chunk response %d: %w", idx, err)
		}

		cr, ok := decoded.(FileTransferChunkResponse)
		if ok && !cr.OK {
			return fmt.Errorf("client rejected chunk %d: %s", idx, cr.Error)
		}

		if idx%10 == 0 || idx == total-1 {
			c.logger.Debug(fmt.Sprintf("sent chunk %d/%d", idx+1, total))
		}
	}

	end := FileTransferEnd{VerifyHash: true}

	return c.codec.Write(Packet{
		Command:      CmdTransferFileEnd,
		PayloadType:  PayloadBinary,
		SessionToken: sess.Token,
		Payload:      end.encodeBinary(),
	})
}

func remoteIPOf(c net.Conn) net.IP {
	switch addr := c.RemoteAddr().(type) {
	case *net.TCPAddr:
		return addr.IP
	case *net.UDPAddr:
		return addr.IP
	default:
		return nil
	}
}

func newStreamID() string {
	var b [16]byte

	_, _ = rand.Read(b[:])

	return hexEncode(b[:])
}

func replayDigest(token [SessionTokenSize]byte, nonce uint64) []byte {
	buf := make([]byte, SessionTokenSize+8)
	copy(buf, token[:])
	binary.LittleEndian.PutUint64(buf[SessionTokenSize:], nonce)

	return buf
}
