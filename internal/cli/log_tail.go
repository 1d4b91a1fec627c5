package cli

import (
	"fmt"
	"net"
	"os"

	"github.com/royna2544/tgbotd/tgproto"
)

// LogTail connects to a daemon's log fan-out listener and prints each
// record as it arrives, the client-side counterpart to
// tgproto.LogFanoutSink.
type LogTail struct {
	Addr    string `kong:"required,arg,help='Log fanout address (host:port).'"`
	Network string `kong:"default='tcp',help='Dial network: tcp, tcp4, tcp6, unix.'"` //nolint: lll
}

func (t LogTail) Run(cli *CLI, version string) error {
	conn, err := net.Dial(t.Network, t.Addr)
	if err != nil {
		return fmt.Errorf("cannot dial %s %s: %w", t.Network, t.Addr, err)
	}
	defer conn.Close()

	for {
		record, err := tgproto.ReadLogFrame(conn)
		if err != nil {
			return fmt.Errorf("log tail stopped: %w", err)
		}

		os.Stdout.Write(record) //nolint: errcheck
	}
}
