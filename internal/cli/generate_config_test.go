package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/royna2544/tgbotd/internal/config"
)

func TestGenerateConfigSkeletonMatchesConfigShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := (GenerateConfig{Out: path}).Run(nil, "test"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var conf config.Config

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&conf); err != nil {
		t.Fatalf("skeleton does not decode cleanly into config.Config: %v", err)
	}

	if conf.Listen.TCP4.Get("") != "0.0.0.0:3129" {
		t.Fatalf("listen.tcp4 = %q, want 0.0.0.0:3129", conf.Listen.TCP4.Get(""))
	}

	if conf.Stats.Prometheus.MetricPrefix.Get("") != "tgbotd" {
		t.Fatalf("stats.prometheus.metricPrefix = %q, want tgbotd", conf.Stats.Prometheus.MetricPrefix.Get(""))
	}
}
