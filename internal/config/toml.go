package config

import (
	"fmt"

	"github.com/pelletier/go-toml"
)

// ParseTOML decodes a TOML config document and validates it. The
// teacher's go.mod has carried go-toml since before this fork but never
// had a caller for it; utils.ReadConfig calls ParseTOML for .toml/.tml
// paths, giving operators who prefer TOML over JSON config files a real
// entry point.
func ParseTOML(data []byte) (*Config, error) {
	conf := &Config{}

	if err := toml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("cannot parse toml config: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return conf, nil
}
