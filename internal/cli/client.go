package cli

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/royna2544/tgbotd/network"
	"github.com/royna2544/tgbotd/tgproto"
)

const clientDialTimeout = 5 * time.Second

// Environment variables the client driver falls back to when --addr
// isn't given, following the original socket client's own
// environment-based transport selection (IPV4_ADDRESS/IPV6_ADDRESS/
// PORT_NUM/USE_UDP). Symbolic hostnames are accepted here too, falling
// through to network.Network's cached resolver — literal IPs were the
// only thing the original client understood.
const (
	envIPv4Address = "IPV4_ADDRESS"
	envIPv6Address = "IPV6_ADDRESS"
	envPortNum     = "PORT_NUM"
	envUseUDP      = "USE_UDP"

	// TGBOTD_PROXY/TGBOTD_DNS_MODE/TGBOTD_DOH_IP configure the
	// network.Network the client driver dials through: an optional
	// upstream SOCKS5 proxy (any other scheme only adds the cooldown
	// circuit breaker to a direct dial), and DNS-over-HTTPS (default) vs.
	// plain system DNS for a symbolic --addr host.
	envProxyURL = "TGBOTD_PROXY"
	envDNSMode  = "TGBOTD_DNS_MODE"
	envDOHIP    = "TGBOTD_DOH_IP"

	defaultClientPort   = "3129"
	defaultDOHIPAddress = "1.1.1.1"
)

// Client is the command-line driver tree wrapping tgproto.Client, for
// manually exercising a running daemon (spec.md §4.G).
type Client struct {
	Addr    string `kong:"help='Daemon address (host:port or /path/to.sock). Falls back to IPV4_ADDRESS/IPV6_ADDRESS+PORT_NUM if empty.'"` //nolint: lll
	Network string `kong:"default='tcp',help='Dial network: tcp, tcp4, tcp6, unix.'"`                                                       //nolint: lll

	WriteMsg    ClientWriteMsg    `kong:"cmd,help='Send a text message to a chat.'"`
	Observe     ClientObserve     `kong:"cmd,help='Start or stop observing a chat.'"`
	ObserveAll  ClientObserveAll  `kong:"cmd,help='Toggle observe-all mode.'"`
	SpamBlock   ClientSpamBlock   `kong:"cmd,help='Set the spam-block mode.'"`
	SendFile    ClientSendFile    `kong:"cmd,help='Send a file to a chat via the bot.'"`
	PushFile    ClientPushFile    `kong:"cmd,help='Upload a local file to the daemon.'"`
	RequestFile ClientRequestFile `kong:"cmd,help='Download a file from the daemon.'"`
	Uptime      ClientUptime      `kong:"cmd,help='Print the daemon uptime.'"`
}

// resolveTarget picks the dial network and address: the explicit --addr
// flag if given, otherwise IPV4_ADDRESS/IPV6_ADDRESS+PORT_NUM (and
// USE_UDP for datagram transport), matching the original client's
// environment-based connection detection.
func (c Client) resolveTarget() (dialNetwork, addr string, err error) {
	if c.Addr != "" {
		dialNetwork = c.Network
		if dialNetwork == "" {
			dialNetwork = "tcp"
		}

		return dialNetwork, c.Addr, nil
	}

	port := os.Getenv(envPortNum)
	if port == "" {
		port = defaultClientPort
	}

	useUDP := os.Getenv(envUseUDP) == "1" || os.Getenv(envUseUDP) == "true"

	if host := os.Getenv(envIPv4Address); host != "" {
		return pickNetwork("tcp4", "udp4", useUDP), net.JoinHostPort(host, port), nil
	}

	if host := os.Getenv(envIPv6Address); host != "" {
		return pickNetwork("tcp6", "udp6", useUDP), net.JoinHostPort(host, port), nil
	}

	return "", "", fmt.Errorf("no daemon address given: pass --addr or set %s/%s", envIPv4Address, envIPv6Address)
}

func pickNetwork(tcpKind, udpKind string, useUDP bool) string {
	if useUDP {
		return udpKind
	}

	return tcpKind
}

// buildNetwork assembles the network.Network the client dials through:
// TCP Fast Open enabled, optionally routed through TGBOTD_PROXY, using
// DNS-over-HTTPS unless TGBOTD_DNS_MODE=plain. Only used for tcp*
// targets — network.Network doesn't model unix sockets, so those dial
// directly.
func buildNetwork() (network.Network, error) {
	dialer, err := network.NewDefaultDialerWithTFO(clientDialTimeout, 0, true)
	if err != nil {
		return nil, fmt.Errorf("cannot build dialer: %w", err)
	}

	if raw := os.Getenv(envProxyURL); raw != "" {
		proxyURL, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %s: %w", envProxyURL, err)
		}

		base := dialer

		if proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h" {
			username := proxyURL.User.Username()
			password, _ := proxyURL.User.Password()
			base = network.NewSOCKS5Dialer(proxyURL.Host, username, password, clientDialTimeout)
		}

		dialer = network.NewProxyDialer(base, proxyURL)
	}

	dohIP := os.Getenv(envDOHIP)
	if dohIP == "" {
		dohIP = defaultDOHIPAddress
	}

	netw, err := network.NewNetworkWithDNSMode(dialer, "tgbotd-client", dohIP,
		network.DefaultHTTPTimeout, os.Getenv(envDNSMode) == "plain")
	if err != nil {
		return nil, fmt.Errorf("cannot build network: %w", err)
	}

	return netw, nil
}

func (c Client) dial() (*tgproto.Client, error) {
	dialNetwork, addr, err := c.resolveTarget()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), clientDialTimeout)
	defer cancel()

	var nc net.Conn

	switch dialNetwork {
	case "tcp", "tcp4", "tcp6":
		var netw network.Network

		netw, err = buildNetwork()
		if err == nil {
			nc, err = netw.DialContext(ctx, dialNetwork, addr)
		}
	default:
		// network.Network only models TCP; unix sockets and UDP
		// (USE_UDP) dial directly, bypassing the proxy/DNS-cache
		// stack entirely.
		var d net.Dialer

		nc, err = d.DialContext(ctx, dialNetwork, addr)
	}

	if err != nil {
		return nil, fmt.Errorf("cannot dial %s %s: %w", dialNetwork, addr, err)
	}

	client := tgproto.NewClient(nc, tgproto.ClientOpts{})

	if err := client.OpenSession(); err != nil {
		client.Close()

		return nil, fmt.Errorf("cannot open session: %w", err)
	}

	return client, nil
}

type ClientWriteMsg struct {
	ChatID int64  `kong:"required,arg"`
	Text   string `kong:"required,arg"`
}

func (w ClientWriteMsg) Run(cli *CLI, version string) error {
	client, err := cli.Client.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.WriteMsg(w.ChatID, w.Text); err != nil {
		return fmt.Errorf("write_msg failed: %w", err)
	}

	return nil
}

type ClientObserve struct {
	ChatID  int64 `kong:"required,arg"`
	Observe bool  `kong:"default='true'"`
}

func (o ClientObserve) Run(cli *CLI, version string) error {
	client, err := cli.Client.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ObserveChatID(o.ChatID, o.Observe); err != nil {
		return fmt.Errorf("observe_chat_id failed: %w", err)
	}

	return nil
}

type ClientObserveAll struct {
	Observe bool `kong:"default='true'"`
}

func (o ClientObserveAll) Run(cli *CLI, version string) error {
	client, err := cli.Client.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ObserveAllChats(o.Observe); err != nil {
		return fmt.Errorf("observe_all_chats failed: %w", err)
	}

	return nil
}

type ClientSpamBlock struct {
	Mode uint32 `kong:"required,arg,help='0=off, 1=log_only, 2=delete_and_mute, 3=ban_sender (see tgproto.SpamBlockMode).'"`
}

func (s ClientSpamBlock) Run(cli *CLI, version string) error {
	client, err := cli.Client.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.CtrlSpamBlock(tgproto.SpamBlockMode(s.Mode)); err != nil {
		return fmt.Errorf("ctrl_spamblock failed: %w", err)
	}

	return nil
}

type ClientSendFile struct {
	ChatID int64  `kong:"required,arg"`
	Type   uint8  `kong:"required,arg,help='0=document,1=photo,2=video,3=sticker,4=animation,5=dice.'"` //nolint: lll
	Path   string `kong:"required,arg"`
}

func (s ClientSendFile) Run(cli *CLI, version string) error {
	client, err := cli.Client.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.SendFileToChatID(s.ChatID, tgproto.FileType(s.Type), s.Path); err != nil {
		return fmt.Errorf("send_file_to_chat_id failed: %w", err)
	}

	return nil
}

type ClientPushFile struct {
	Src string `kong:"required,arg,type='existingfile'"`
	Dst string `kong:"required,arg"`
}

func (p ClientPushFile) Run(cli *CLI, version string) error {
	data, err := os.ReadFile(p.Src)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", p.Src, err)
	}

	client, err := cli.Client.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	req := tgproto.FileTransferMeta{Dst: p.Dst}

	if len(data) >= tgproto.ChunkedTransferThreshold {
		if err := client.UploadFile(p.Dst, data, tgproto.DefaultChunkSize); err != nil {
			return fmt.Errorf("transfer_file (chunked) failed: %w", err)
		}

		return nil
	}

	if err := client.PushFile(req, data); err != nil {
		return fmt.Errorf("transfer_file failed: %w", err)
	}

	return nil
}

type ClientRequestFile struct {
	Src string `kong:"required,arg"`
	Dst string `kong:"required,arg"`
}

func (r ClientRequestFile) Run(cli *CLI, version string) error {
	client, err := cli.Client.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	data, err := client.RequestFile(tgproto.FileTransferMeta{Src: r.Src})
	if err != nil {
		return fmt.Errorf("transfer_file_request failed: %w", err)
	}

	if err := os.WriteFile(r.Dst, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", r.Dst, err)
	}

	return nil
}

type ClientUptime struct{}

func (ClientUptime) Run(cli *CLI, version string) error {
	client, err := cli.Client.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	uptime, err := client.GetUptime()
	if err != nil {
		return fmt.Errorf("get_uptime failed: %w", err)
	}

	fmt.Println(uptime)

	return nil
}
