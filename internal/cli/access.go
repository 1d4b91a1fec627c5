package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/royna2544/tgbotd/tgproto"
)

// Access opens a session against a running daemon and prints the
// daemon address, the daemon's uptime and the time OPEN_SESSION took,
// so an operator can confirm a daemon is reachable. The session token
// itself is not printed.
type Access struct {
	Addr    string `kong:"required,arg,help='Daemon address (host:port or /path/to.sock).'"`
	Network string `kong:"default='tcp',help='Dial network: tcp, tcp4, tcp6, unix.'"` //nolint: lll
}

func (a Access) Run(cli *CLI, version string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientDialTimeout)
	defer cancel()

	client, err := tgproto.Dial(ctx, a.Network, a.Addr, tgproto.ClientOpts{})
	if err != nil {
		return fmt.Errorf("cannot dial %s %s: %w", a.Network, a.Addr, err)
	}
	defer client.Close()

	start := time.Now()

	if err := client.OpenSession(); err != nil {
		return fmt.Errorf("cannot open session: %w", err)
	}

	latency := time.Since(start)

	uptime, err := client.GetUptime()
	if err != nil {
		return fmt.Errorf("cannot get uptime: %w", err)
	}

	fmt.Printf("daemon:  %s %s\n", a.Network, a.Addr)
	fmt.Printf("%s\n", uptime)
	fmt.Printf("latency: %s\n", latency)

	return client.CloseSession()
}
