// Package utils carries small helpers shared by the cli commands that
// don't warrant their own package.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/royna2544/tgbotd/internal/config"
)

// ReadConfig loads a Config from path, picking the JSON or TOML decoder
// by file extension (.toml/.tml select TOML, everything else is treated
// as JSON).
func ReadConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return config.ParseTOML(data)
	default:
		return config.Parse(data)
	}
}
