// Command tgbotd runs the daemon, or one of its auxiliary subcommands
// (config generation, health checks, a manual client driver, log tail).
package main

import (
	"github.com/alecthomas/kong"

	"github.com/royna2544/tgbotd/internal/cli"
)

var version = "dev"

func main() {
	c := &cli.CLI{}

	ctx := kong.Parse(c,
		kong.Name("tgbotd"),
		kong.Description("Telegram control-plane daemon and client."),
		kong.UsageOnError(),
		kong.Vars{"version": version})

	ctx.FatalIfErrorf(ctx.Run(c, version))
}
