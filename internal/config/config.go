package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	API struct {
		BaseURL         string `yaml:"base_url"`
		MicrositeName   string `yaml:"microsite_name"`
		ChannelCode     string `yaml:"channel_code"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Session struct {
		CredentialPath   string `yaml:"credential_path"`
		GuardGraceMillis int    `yaml:"guard_grace_millis"`
	} `yaml:"session"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Login struct {
		RatePerMinute int `yaml:"rate_per_minute"`
		Burst         int `yaml:"burst"`
	} `yaml:"login"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.API.MicrositeName == "" {
		cfg.API.MicrositeName = "TheHungryUnicorn"
	}
	if cfg.API.ChannelCode == "" {
		cfg.API.ChannelCode = "ONLINE"
	}
	if cfg.Session.CredentialPath == "" {
		cfg.Session.CredentialPath = "data/credential"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Session.CredentialPath), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

// GuardGrace is the short hold before the dashboard guard decides, giving
// session initialization a chance to finish so a fresh credential is not
// mistaken for a missing one.
func (c *Config) GuardGrace() time.Duration {
	if c.Session.GuardGraceMillis <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(c.Session.GuardGraceMillis) * time.Millisecond
}
