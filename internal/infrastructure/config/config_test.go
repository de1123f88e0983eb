package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[kraken]
enabled = true
ws_url = "wss://ws.kraken.com"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.TickInterval() != time.Minute {
		t.Errorf("tick default: expected 1m, got %v", cfg.TickInterval())
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("driver default: expected sqlite, got %s", cfg.Storage.Driver)
	}
	if cfg.CooldownTTL() != time.Hour {
		t.Errorf("cooldown default: expected 1h, got %v", cfg.CooldownTTL())
	}
	if cfg.PriceTTL() != 5*time.Minute {
		t.Errorf("price ttl default: expected 5m, got %v", cfg.PriceTTL())
	}
	if cfg.App.LogLevel != "info" {
		t.Errorf("log level default: expected info, got %s", cfg.App.LogLevel)
	}
}

func TestLoadNormalizesPairs(t *testing.T) {
	path := writeConfig(t, `
[kraken]
enabled = true
ws_url = "wss://ws.kraken.com"
extra_pairs = [" xbt/usd ", "ETH/USD", "xbt/usd", ""]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	got := cfg.Kraken.ExtraPairs
	if len(got) != 2 || got[0] != "XBT/USD" || got[1] != "ETH/USD" {
		t.Errorf("pairs not normalized: %v", got)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad driver", "[storage]\ndriver = \"mongo\"\n"},
		{"postgres without dsn", "[storage]\ndriver = \"postgres\"\n"},
		{"kraken enabled without url", "[kraken]\nenabled = true\n"},
		{"quotes enabled without url", "[quotes]\nenabled = true\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("missing file should fail")
	}
}
