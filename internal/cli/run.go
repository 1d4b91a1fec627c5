package cli

import (
	"fmt"

	"github.com/royna2544/tgbotd/internal/utils"
)

// Run starts the daemon from a config file, serving until SIGINT/SIGTERM.
type Run struct {
	ConfigPath string `kong:"arg,required,type='existingfile',help='Path to config file.',name='config-path'"` //nolint: lll
}

func (r Run) Run(cli *CLI, version string) error {
	conf, err := utils.ReadConfig(r.ConfigPath)
	if err != nil {
		return fmt.Errorf("cannot parse config: %w", err)
	}

	return runDaemon(conf, version)
}
