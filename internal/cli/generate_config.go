package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

// GenerateConfig prints a config skeleton an operator can fill in and
// pass to Run. There is no "secret" to mint in this protocol (no wire
// encryption, no peer-identity auth — spec.md's stated non-goals), so
// unlike the teacher's generate-secret this scaffolds the whole config
// document instead of a single token.
type GenerateConfig struct {
	Out string `kong:"help='Write to this path instead of stdout.'"`
}

func (g GenerateConfig) Run(cli *CLI, version string) error {
	skeleton := map[string]interface{}{
		"debug": false,
		"telegram": map[string]interface{}{
			"botToken": "",
			"apiId":    0,
			"apiHash":  "",
		},
		"listen": map[string]interface{}{
			"tcp4": "0.0.0.0:3129",
			"tcp6": "",
			"udp4": "",
			"udp6": "",
			"unix": "",
		},
		"session": map[string]interface{}{
			"ttl":              "1h",
			"handshakeTimeout": "30s",
			"idleTimeout":      "5m",
		},
		"transfer": map[string]interface{}{
			"chunkSize":   "1MB",
			"threshold":   "10MB",
			"maxDataSize": "64MB",
		},
		"concurrency": 8192,
		"defense": map[string]interface{}{
			"antiReplay": map[string]interface{}{
				"enabled":   true,
				"maxSize":   "1MB",
				"errorRate": 0.01,
			},
			"blocklist": map[string]interface{}{"enabled": false, "urls": []string{}},
			"allowlist": map[string]interface{}{"enabled": false, "urls": []string{}},
		},
		"rateLimit": map[string]interface{}{
			"enabled":   false,
			"perSecond": 0,
			"burst":     0,
		},
		"logFanout": map[string]interface{}{
			"enabled": false,
			"bindTo":  "",
		},
		"stats": map[string]interface{}{
			"prometheus": map[string]interface{}{
				"enabled":      false,
				"bindTo":       "0.0.0.0:9401",
				"httpPath":     "/metrics",
				"metricPrefix": "tgbotd",
			},
		},
		"network": map[string]interface{}{
			"dnsMode": "doh",
			"dohIp":   "1.1.1.1",
			"proxy":   "",
		},
	}

	data, err := json.MarshalIndent(skeleton, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot render config skeleton: %w", err)
	}

	data = append(data, '\n')

	if g.Out == "" {
		_, err = os.Stdout.Write(data)
	} else {
		err = os.WriteFile(g.Out, data, 0o600)
	}

	if err != nil {
		return fmt.Errorf("cannot write config skeleton: %w", err)
	}

	return nil
}
