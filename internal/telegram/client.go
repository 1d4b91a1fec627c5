// Package telegram implements tgproto.BotAPI against the real Telegram
// Bot API via gotd/td, so the daemon binary has something real behind
// WRITE_MSG/SEND_FILE_TO_CHAT_ID/etc rather than a stub.
package telegram

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"

	tgnetwork "github.com/royna2544/tgbotd/network"
)

// Client wraps a gotd/td telegram.Client and message.Sender to satisfy
// tgproto.BotAPI.
type Client struct {
	apiID      int
	apiHash    string
	botToken   string
	sessionDir string

	raw     *telegram.Client
	sender  *message.Sender
	peerMgr *peers.Manager

	startedAt time.Time
}

// New builds a Client. netw, when non-nil, routes every MTProto DC
// connection through it (TFO dialer, the cooldown circuit breaker and
// DNS-over-HTTPS cache network.Network assembles from conf.Network.*),
// rather than gotd/td's own plain dialer — the config-file counterparts
// of the client driver's TGBOTD_PROXY/TGBOTD_DNS_MODE knobs steer the
// daemon's outbound leg to Telegram. Call Run to authenticate
// and block serving Telegram's connection until ctx is cancelled.
func New(apiID int, apiHash, botToken, sessionDir string, netw tgnetwork.Network) (*Client, error) {
	if err := os.MkdirAll(sessionDir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create session dir: %w", err)
	}

	opts := telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: filepath.Join(sessionDir, "session.json"),
		},
	}

	if netw != nil {
		opts.Resolver = dcs.Plain(dcs.PlainOptions{
			Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return netw.DialContext(ctx, network, addr)
			},
		})
	}

	raw := telegram.NewClient(apiID, apiHash, opts)

	return &Client{
		apiID:      apiID,
		apiHash:    apiHash,
		botToken:   botToken,
		sessionDir: sessionDir,
		raw:        raw,
	}, nil
}

// Run authenticates as a bot and blocks until ctx is cancelled or the
// underlying connection fails.
func (c *Client) Run(ctx context.Context) error {
	return c.raw.Run(ctx, func(ctx context.Context) error {
		status, err := c.raw.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("cannot check auth status: %w", err)
		}

		if !status.Authorized {
			if _, err := c.raw.Auth().Bot(ctx, c.botToken); err != nil {
				return fmt.Errorf("bot authentication failed: %w", err)
			}
		}

		api := c.raw.API()
		c.sender = message.NewSender(api)
		c.peerMgr = peers.Options{}.Build(api)
		c.startedAt = time.Now()

		<-ctx.Done()

		return ctx.Err() //nolint: wrapcheck
	})
}

// resolvePeer turns a bot-API-style chat ID into a peer the sender can
// target. Users and basic groups have a positive/small-magnitude ID;
// supergroups and channels are prefixed with -100, matching the
// convention every Bot API client already follows.
func (c *Client) resolvePeer(ctx context.Context, chatID int64) (tg.InputPeerClass, error) {
	switch {
	case chatID > 0:
		user, err := c.peerMgr.ResolveUserID(ctx, chatID)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve user %d: %w", chatID, err)
		}

		return user.InputPeer(), nil
	case chatID <= -1_000_000_000_000:
		channel, err := c.peerMgr.ResolveChannelID(ctx, -chatID-1_000_000_000_000)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve channel %d: %w", chatID, err)
		}

		return channel.InputPeer(), nil
	default:
		chat, err := c.peerMgr.ResolveChatID(ctx, -chatID)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve chat %d: %w", chatID, err)
		}

		return chat.InputPeer(), nil
	}
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	peer, err := c.resolvePeer(ctx, chatID)
	if err != nil {
		return err
	}

	if _, err := c.sender.To(peer).Text(ctx, text); err != nil {
		return fmt.Errorf("cannot send message: %w", err)
	}

	return nil
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileOrID, caption string) error {
	return c.sendUpload(ctx, chatID, fileOrID, caption, func(b *message.Builder, f message.MediaOption) (tg.UpdatesClass, error) {
		return b.Media(ctx, f)
	})
}

func (c *Client) SendVideo(ctx context.Context, chatID int64, fileOrID, caption string) error {
	return c.SendDocument(ctx, chatID, fileOrID, caption)
}

func (c *Client) SendSticker(ctx context.Context, chatID int64, fileOrID string) error {
	return c.SendDocument(ctx, chatID, fileOrID, "")
}

func (c *Client) SendAnimation(ctx context.Context, chatID int64, fileOrID, caption string) error {
	return c.SendDocument(ctx, chatID, fileOrID, caption)
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, fileOrID, caption string) error {
	peer, err := c.resolvePeer(ctx, chatID)
	if err != nil {
		return err
	}

	upload, err := message.NewUploader(c.sender.Upload()).FromPath(ctx, fileOrID)
	if err != nil {
		return fmt.Errorf("cannot upload %s: %w", fileOrID, err)
	}

	builder := c.sender.To(peer)
	if caption != "" {
		_, err = builder.Media(ctx, message.UploadedDocument(upload, message.Text(ctx, caption)))
	} else {
		_, err = builder.Media(ctx, message.UploadedDocument(upload))
	}

	if err != nil {
		return fmt.Errorf("cannot send document: %w", err)
	}

	return nil
}

func (c *Client) SendDice(ctx context.Context, chatID int64) error {
	peer, err := c.resolvePeer(ctx, chatID)
	if err != nil {
		return err
	}

	if _, err := c.sender.To(peer).Dice(ctx, "🎲"); err != nil {
		return fmt.Errorf("cannot send dice: %w", err)
	}

	return nil
}

// DownloadFile fetches nothing: it always returns false and a
// not-implemented error naming the file_id. It lives here since
// fetching the Telegram file itself is a Bot-API concern.
func (c *Client) DownloadFile(ctx context.Context, path, fileID string) (bool, error) {
	return false, fmt.Errorf("DownloadFile: not implemented for raw file_id %s (need gotd/td downloader wiring)", fileID)
}

// GetUptime is measured locally, from process start, matching
// GET_UPTIME_CALLBACK being a daemon property rather than a Telegram
// API call.
func (c *Client) GetUptime() string {
	d := time.Since(c.startedAt)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	return fmt.Sprintf("Uptime: %02d:%02d:%02d", h, m, s)
}

type mediaSender = func(b *message.Builder, f message.MediaOption) (tg.UpdatesClass, error)

func (c *Client) sendUpload(ctx context.Context, chatID int64, fileOrID, caption string, send mediaSender) error {
	peer, err := c.resolvePeer(ctx, chatID)
	if err != nil {
		return err
	}

	upload, err := message.NewUploader(c.sender.Upload()).FromPath(ctx, fileOrID)
	if err != nil {
		return fmt.Errorf("cannot upload %s: %w", fileOrID, err)
	}

	var media message.MediaOption
	if caption != "" {
		media = message.UploadedPhoto(upload, message.Text(ctx, caption))
	} else {
		media = message.UploadedPhoto(upload)
	}

	if _, err := send(c.sender.To(peer), media); err != nil {
		return fmt.Errorf("cannot send media: %w", err)
	}

	return nil
}
