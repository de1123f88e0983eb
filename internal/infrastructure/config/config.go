package config

import (
	"errors"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		TickSecs int    `toml:"tick_secs"`
		LogLevel string `toml:"log_level"`
	} `toml:"app"`

	Kraken struct {
		Enabled     bool     `toml:"enabled"`
		WsURL       string   `toml:"ws_url"`
		ExtraPairs  []string `toml:"extra_pairs"`
		SoftMsgRate int      `toml:"soft_msg_rate"`
		HardMsgRate int      `toml:"hard_msg_rate"`
	} `toml:"kraken"`

	Quotes struct {
		Enabled  bool   `toml:"enabled"`
		BaseURL  string `toml:"base_url"`
		PollSecs int    `toml:"poll_secs"`
	} `toml:"quotes"`

	Storage struct {
		Driver      string `toml:"driver"` // sqlite | postgres
		SQLitePath  string `toml:"sqlite_path"`
		PostgresDSN string `toml:"postgres_dsn"`
	} `toml:"storage"`

	Redis struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
		DB      int    `toml:"db"`
		Prefix  string `toml:"prefix"`
	} `toml:"redis"`

	Notify struct {
		WebhookURL string `toml:"webhook_url"`
	} `toml:"notify"`

	Alerts struct {
		CooldownMins int `toml:"cooldown_mins"`
		PriceTTLSecs int `toml:"price_ttl_secs"`
	} `toml:"alerts"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.TickSecs <= 0 {
		cfg.App.TickSecs = 60
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Quotes.PollSecs <= 0 {
		cfg.Quotes.PollSecs = 60
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/dipwatch.db"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "dipwatch"
	}
	if cfg.Alerts.CooldownMins <= 0 {
		cfg.Alerts.CooldownMins = 60
	}
	if cfg.Alerts.PriceTTLSecs <= 0 {
		cfg.Alerts.PriceTTLSecs = 300
	}
	cfg.Kraken.ExtraPairs = normalizePairs(cfg.Kraken.ExtraPairs)
}

func validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return errors.New("storage.driver must be sqlite or postgres")
	}
	if cfg.Storage.Driver == "postgres" && strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
		return errors.New("storage.postgres_dsn empty but driver is postgres")
	}
	if cfg.Kraken.Enabled && strings.TrimSpace(cfg.Kraken.WsURL) == "" {
		return errors.New("kraken.ws_url empty but enabled")
	}
	if cfg.Quotes.Enabled && strings.TrimSpace(cfg.Quotes.BaseURL) == "" {
		return errors.New("quotes.base_url empty but enabled")
	}
	return nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.App.TickSecs) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Quotes.PollSecs) * time.Second
}

func (c *Config) CooldownTTL() time.Duration {
	return time.Duration(c.Alerts.CooldownMins) * time.Minute
}

func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Alerts.PriceTTLSecs) * time.Second
}

func normalizePairs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
