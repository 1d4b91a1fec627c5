package cli

import (
	"encoding/json"
	"fmt"

	"github.com/royna2544/tgbotd/internal/config"
)

// SimpleRun starts the daemon from command-line flags instead of a
// config file, for quick manual runs (mirrors the teacher's
// SimpleRun accepting flags where Run wants a config path).
type SimpleRun struct {
	BotToken string `kong:"required,help='Telegram bot token.'"`
	APIID    int    `kong:"required,help='Telegram API ID.'"`
	APIHash  string `kong:"required,help='Telegram API hash.'"`
	BindTo   string `kong:"default='0.0.0.0:3129',help='tcp4 bind address.'"`
	Debug    bool   `kong:"help='Enable debug logging.'"`
}

func (r SimpleRun) Run(cli *CLI, version string) error {
	conf, err := r.toConfig()
	if err != nil {
		return err
	}

	return runDaemon(conf, version)
}

// toConfig builds a Config by round-tripping through JSON: the typed
// wrapper fields (TypeBool, TypeHostPort, ...) only expose
// UnmarshalJSON, not a constructor, so this is the supported way to
// build one outside of reading a file.
func (r SimpleRun) toConfig() (*config.Config, error) {
	doc := map[string]interface{}{
		"debug": r.Debug,
		"telegram": map[string]interface{}{
			"botToken": r.BotToken,
			"apiId":    r.APIID,
			"apiHash":  r.APIHash,
		},
		"listen": map[string]interface{}{
			"tcp4": r.BindTo,
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("cannot build config document: %w", err)
	}

	conf, err := config.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("cannot build config from flags: %w", err)
	}

	return conf, nil
}
