package cli

import "github.com/alecthomas/kong"

type CLI struct {
	GenerateConfig GenerateConfig   `kong:"cmd,help='Print a config file skeleton.'"`
	Access         Access           `kong:"cmd,help='Open a session against a running daemon and print its uptime.'"` //nolint: lll
	Run            Run              `kong:"cmd,help='Run the daemon from a config file.'"`
	SimpleRun      SimpleRun        `kong:"cmd,help='Run the daemon from flags, no config file.'"`
	Health         Health           `kong:"cmd,help='Check daemon health via the metrics endpoint.'"`
	Client         Client           `kong:"cmd,help='Drive a running daemon by hand.'"`
	LogTail        LogTail          `kong:"cmd,help='Tail a daemon log fan-out stream.'"`
	Version        kong.VersionFlag `kong:"help='Print version.',short='v'"`
}
