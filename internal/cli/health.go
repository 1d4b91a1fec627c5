package cli

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/royna2544/tgbotd/internal/utils"
)

// healthCheckTimeout bounds how long a single healthcheck probe waits
// for a response, so a hung daemon fails the check instead of stalling
// docker's healthcheck runner.
const healthCheckTimeout = 5 * time.Second

// Health verifies the daemon is reachable, for use from a Dockerfile
// HEALTHCHECK or docker-compose healthcheck entry.
//
// It prefers the Prometheus metrics endpoint when enabled (a 200 from
// /metrics means the event loop is alive); otherwise it falls back to a
// plain TCP connect against the tcp4 listener, or the tcp6 one when no
// tcp4 listener is configured. UDP and unix listeners are not checked.
type Health struct {
	ConfigPath string `kong:"arg,required,type='existingfile',help='Path to config file.',name='config-path'"` //nolint: lll
}

func (h Health) Run(cli *CLI, version string) error {
	conf, err := utils.ReadConfig(h.ConfigPath)
	if err != nil {
		return fmt.Errorf("cannot parse config: %w", err)
	}

	if conf.Stats.Prometheus.Enabled.Get(false) {
		bindTo := conf.Stats.Prometheus.BindTo.Get("0.0.0.0:9401")
		httpPath := conf.Stats.Prometheus.HTTPPath.Get("/metrics")

		_, port, _ := net.SplitHostPort(bindTo)
		if port == "" {
			port = "9401"
		}

		url := fmt.Sprintf("http://127.0.0.1:%s%s", port, httpPath)

		return checkHTTP(url)
	}

	bindTo := conf.Listen.TCP4.Get("")
	if bindTo == "" {
		bindTo = conf.Listen.TCP6.Get("")
	}

	if bindTo == "" {
		return fmt.Errorf("no tcp listener configured to health check")
	}

	return checkTCP(bindTo)
}

// checkHTTP verifies an HTTP endpoint answers with 200 OK.
func checkHTTP(url string) error {
	client := &http.Client{
		Timeout: healthCheckTimeout,
	}

	resp, err := client.Get(url) //nolint: noctx
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body) //nolint: errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	return nil
}

// checkTCP verifies a TCP port accepts connections.
func checkTCP(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, healthCheckTimeout)
	if err != nil {
		return fmt.Errorf("health check TCP connect failed: %w", err)
	}

	conn.Close()

	return nil
}
