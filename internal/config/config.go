// Package config parses and validates the daemon's JSON (or, via
// toml.go, TOML) configuration file into a typed Config, following the
// teacher's TypeXxx wrapper pattern (each field distinguishes "unset"
// from its zero value so Get(default) can apply a sane fallback).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Optional marks a config section that is skipped unless explicitly
// enabled, mirroring the teacher's Optional.
type Optional struct {
	Enabled TypeBool `json:"enabled"`
}

// ListConfig is a CIDR allow/block list source: either a local file
// path or an HTTP(S) URL serving a newline-delimited CIDR list,
// refreshed every UpdateEach (adapted from the teacher's blocklist
// downloader, generalized to allow-lists too). The daemon parses these
// sections but does not load them: runDaemon builds both IP lists empty
// and nothing fetches the URLs.
type ListConfig struct {
	Optional

	URLs       []TypeBlocklistURI `json:"urls"`
	UpdateEach TypeDuration       `json:"updateEach"`
}

// Config is the daemon's full configuration.
type Config struct {
	Debug TypeBool `json:"debug"`

	Telegram struct {
		BotToken string `json:"botToken"`
		APIID    int    `json:"apiId"`
		APIHash  string `json:"apiHash"`
	} `json:"telegram"`

	Listen struct {
		TCP4 TypeHostPort `json:"tcp4"`
		TCP6 TypeHostPort `json:"tcp6"`
		UDP4 TypeHostPort `json:"udp4"`
		UDP6 TypeHostPort `json:"udp6"`
		Unix string       `json:"unix"`
	} `json:"listen"`

	Session struct {
		TTL               TypeDuration `json:"ttl"`
		HandshakeTimeout  TypeDuration `json:"handshakeTimeout"`
		IdleTimeout       TypeDuration `json:"idleTimeout"`
	} `json:"session"`

	Transfer struct {
		ChunkSize   TypeChunkSize         `json:"chunkSize"`
		Threshold   TypeTransferThreshold `json:"threshold"`
		MaxDataSize TypeBytes             `json:"maxDataSize"`
	} `json:"transfer"`

	Concurrency TypeConcurrency `json:"concurrency"`

	Defense struct {
		AntiReplay struct {
			Optional

			MaxSize   TypeBytes     `json:"maxSize"`
			ErrorRate TypeErrorRate `json:"errorRate"`
		} `json:"antiReplay"`
		Blocklist ListConfig `json:"blocklist"`
		Allowlist ListConfig `json:"allowlist"`
	} `json:"defense"`

	RateLimit struct {
		Optional

		PerSecond TypeRateLimit   `json:"perSecond"`
		Burst     TypeConcurrency `json:"burst"`
	} `json:"rateLimit"`

	LogFanout struct {
		Optional

		BindTo TypeHostPort `json:"bindTo"`
	} `json:"logFanout"`

	Stats struct {
		Prometheus struct {
			Optional

			BindTo       TypeHostPort     `json:"bindTo"`
			HTTPPath     TypeHTTPPath     `json:"httpPath"`
			MetricPrefix TypeMetricPrefix `json:"metricPrefix"`
		} `json:"prometheus"`
	} `json:"stats"`

	Network struct {
		DNSMode TypeDNSMode `json:"dnsMode"`
		DOHIP   string      `json:"dohIp"`
		Proxy   string      `json:"proxy"`
	} `json:"network"`
}

// Validate checks cross-field invariants Set/UnmarshalJSON can't catch
// in isolation (e.g. "required when a sibling section is enabled").
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.botToken is required")
	}

	if c.Listen.TCP4.Get("") == "" && c.Listen.TCP6.Get("") == "" &&
		c.Listen.UDP4.Get("") == "" && c.Listen.UDP6.Get("") == "" &&
		c.Listen.Unix == "" {
		return fmt.Errorf("at least one of listen.{tcp4,tcp6,udp4,udp6,unix} is required")
	}

	if c.RateLimit.Enabled.Get(false) && c.RateLimit.PerSecond.Value > 0 {
		if c.RateLimit.Burst.Value == 0 {
			return fmt.Errorf("rateLimit.burst must be > 0 when rate limiting is enabled")
		}
	}

	if c.Stats.Prometheus.Enabled.Get(false) && c.Stats.Prometheus.BindTo.Get("") == "" {
		return fmt.Errorf("stats.prometheus.bindTo is required when prometheus is enabled")
	}

	if c.LogFanout.Enabled.Get(false) && c.LogFanout.BindTo.Get("") == "" {
		return fmt.Errorf("logFanout.bindTo is required when logFanout is enabled")
	}

	return nil
}

// Parse decodes a JSON config document and validates it.
func Parse(data []byte) (*Config, error) {
	conf := &Config{}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(conf); err != nil {
		return nil, fmt.Errorf("cannot parse json config: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return conf, nil
}

// String renders the config as JSON with the bot token masked, for
// safe startup logging (mirrors the teacher's Config.String masking
// Secret).
func (c *Config) String() string {
	safe := *c
	if safe.Telegram.BotToken != "" {
		safe.Telegram.BotToken = "***"
	}

	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(safe); err != nil {
		return "{}"
	}

	return buf.String()
}
