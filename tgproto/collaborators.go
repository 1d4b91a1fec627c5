package tgproto

import "context"

// BotAPI is the Telegram Bot API façade handlers call into. Per
// spec.md §1 its implementation is an external collaborator; only this
// interface is part of the protocol subsystem. See internal/telegram
// for the gotd/td-backed implementation.
type BotAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string) error

	SendPhoto(ctx context.Context, chatID int64, fileOrID, caption string) error
	SendVideo(ctx context.Context, chatID int64, fileOrID, caption string) error
	SendSticker(ctx context.Context, chatID int64, fileOrID string) error
	SendAnimation(ctx context.Context, chatID int64, fileOrID, caption string) error
	SendDocument(ctx context.Context, chatID int64, fileOrID, caption string) error
	SendDice(ctx context.Context, chatID int64) error

	DownloadFile(ctx context.Context, path, fileID string) (bool, error)

	// GetUptime returns a string matching `Uptime: HH:MM:SS`, measured
	// from the daemon's own start time (spec.md §8 scenario 1), not from
	// any Telegram API call.
	GetUptime() string
}

// Observer tracks which chats the bot is actively observing, including
// the exclusive "observe all" mode (spec.md §4.F / §8 scenario 5).
type Observer interface {
	StartObserving(chatID int64) (bool, error)
	StopObserving(chatID int64) (bool, error)
	ObserveAll(enable bool) (bool, error)
	IsObservingAll() bool
}

// SpamBlock holds the current anti-spam enforcement mode.
type SpamBlock interface {
	SetMode(mode SpamBlockMode) error
}

// FileSystem is the abstracted storage layer handlers use to read an
// upload source or write a transfer destination (spec.md §6 fs.*).
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	SHA256(data []byte) [32]byte
	Exists(path string) bool
}

// AntiReplayCache is the secondary replay defense consulted after the
// per-session nonce check passes (spec.md §9): a probabilistic cache of
// session-token-plus-nonce digests. A nonce reused under a different
// session token is a different digest and is not flagged, and packets
// for a closed session fail Verify before the cache is asked. See
// package antireplay for
// the stable-bloom-filter-backed implementation.
type AntiReplayCache interface {
	SeenBefore(digest []byte) bool
}
