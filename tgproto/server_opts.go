package tgproto

import (
	"errors"

	"github.com/royna2544/tgbotd/essentials"
)

// Errors returned by ServerOpts.valid, mirroring the teacher's per-field
// "is not defined" sentinels in mtglib/errors.go.
var (
	ErrBotAPINotDefined      = errors.New("tgproto: bot API is not defined")
	ErrObserverNotDefined    = errors.New("tgproto: observer is not defined")
	ErrSpamBlockNotDefined   = errors.New("tgproto: spam block is not defined")
	ErrFileSystemNotDefined  = errors.New("tgproto: file system is not defined")
	ErrAntiReplayNotDefined  = errors.New("tgproto: anti-replay cache is not defined")
	ErrEventStreamNotDefined = errors.New("tgproto: event stream is not defined")
	ErrLoggerNotDefined      = errors.New("tgproto: logger is not defined")
)

// ServerOpts configures a Server. Fields with no default must be set by
// the caller; everything else falls back to ServerConfig / the listed
// package default, following the teacher's ProxyOpts convention of one
// struct covering both mandatory collaborators and optional tunables.
type ServerOpts struct {
	// BotAPI is the Telegram Bot API façade. Mandatory.
	BotAPI BotAPI

	// Observer tracks which chats are being watched. Mandatory.
	Observer Observer

	// SpamBlock holds the anti-spam enforcement mode. Mandatory.
	SpamBlock SpamBlock

	// FileSystem backs TRANSFER_FILE*/SEND_FILE_TO_CHAT_ID. Mandatory.
	FileSystem FileSystem

	// AntiReplayCache is the secondary probabilistic replay defense.
	// Mandatory.
	AntiReplayCache AntiReplayCache

	// EventStream receives every protocol-level event. Mandatory; pass
	// NoopEventStream{} to discard.
	EventStream EventStream

	// Logger is the base logger every subsystem binds fields onto.
	// Mandatory.
	Logger essentials.Logger

	// IPAllowlist, if non-empty, is the only set of IPs whose
	// connections Serve accepts; a nil or empty list allows every IP
	// (spec.md §4.B enrichment, see SPEC_FULL.md §NEW).
	IPAllowlist *IPList

	// IPBlocklist rejects any IP it contains, checked after the
	// allowlist.
	IPBlocklist *IPList

	// RateLimiter, if set, throttles accepted connections per IP.
	RateLimiter *RateLimiter

	// Concurrency sizes the handler worker pool. Defaults to
	// DefaultConcurrency.
	Concurrency uint

	// Config carries the timeouts and thresholds from ServerConfig.
	// Defaults to DefaultServerConfig().
	Config *ServerConfig
}

// DefaultConcurrency is the worker pool size used when ServerOptssets
// none, matching the teacher's mtglib.DefaultConcurrency.
const DefaultConcurrency = 8192

func (o ServerOpts) valid() error {
	switch {
	case o.BotAPI == nil:
		return ErrBotAPINotDefined
	case o.Observer == nil:
		return ErrObserverNotDefined
	case o.SpamBlock == nil:
		return ErrSpamBlockNotDefined
	case o.FileSystem == nil:
		return ErrFileSystemNotDefined
	case o.AntiReplayCache == nil:
		return ErrAntiReplayNotDefined
	case o.EventStream == nil:
		return ErrEventStreamNotDefined
	case o.Logger == nil:
		return ErrLoggerNotDefined
	}

	return nil
}

func (o ServerOpts) getConcurrency() int {
	if o.Concurrency == 0 {
		return DefaultConcurrency
	}

	return int(o.Concurrency)
}

func (o ServerOpts) getConfig() ServerConfig {
	if o.Config != nil {
		return *o.Config
	}

	return DefaultServerConfig()
}
