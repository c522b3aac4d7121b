// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token              string `yaml:"token"`
	Username           string `yaml:"username"`
	Workers            int    `yaml:"workers"` // background job workers
	QueueSize          int    `yaml:"queue_size"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"` // 0 disables
	PollTimeout        int    `yaml:"poll_timeout"`          // seconds
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // catalog cache lifetime
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool { return r.URL != "" }

type StateConfig struct {
	Backend string `yaml:"backend"` // memory|redis
}

type MailConfig struct {
	Disabled bool          `yaml:"disabled"` // log instead of sending
	SMTPHost string        `yaml:"smtp_host"`
	SMTPPort int           `yaml:"smtp_port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Sender   string        `yaml:"sender"`
	Subject  string        `yaml:"subject"`
	Timeout  time.Duration `yaml:"timeout"`
}

type FlowConfig struct {
	TokenTTL            time.Duration `yaml:"token_ttl"`
	CursorTTL           time.Duration `yaml:"cursor_ttl"`
	PageSize            int           `yaml:"page_size"`
	Production          bool          `yaml:"production"` // shows theme choice controls
	CustomThemeCategory int           `yaml:"custom_theme_category"`
	NewsChannelURL      string        `yaml:"news_channel_url"`
	BroadcastOnStart    bool          `yaml:"broadcast_on_start"`
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	Language            string        `yaml:"language"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	State    StateConfig    `yaml:"state"`
	Mail     MailConfig     `yaml:"mail"`
	Flow     FlowConfig     `yaml:"flow"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes a YAML document, fills defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.QueueSize <= 0 {
		cfg.Bot.QueueSize = 64
	}
	if cfg.Bot.RateLimitPerMinute < 0 {
		cfg.Bot.RateLimitPerMinute = 0
	}
	if cfg.Bot.PollTimeout <= 0 {
		cfg.Bot.PollTimeout = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 9090
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL, 24*time.Hour)
	if cfg.State.Backend == "" {
		cfg.State.Backend = "memory"
	}
	cfg.State.Backend = strings.ToLower(cfg.State.Backend)

	if cfg.Mail.SMTPPort <= 0 {
		cfg.Mail.SMTPPort = 465
	}
	if cfg.Mail.Subject == "" {
		cfg.Mail.Subject = "Код подтверждения"
	}
	cfg.Mail.Timeout = normalizeTTL(cfg.Mail.Timeout, 15*time.Second)

	cfg.Flow.TokenTTL = normalizeTTL(cfg.Flow.TokenTTL, 600*time.Second)
	cfg.Flow.CursorTTL = normalizeTTL(cfg.Flow.CursorTTL, 1800*time.Second)
	cfg.Flow.SweepInterval = normalizeTTL(cfg.Flow.SweepInterval, time.Minute)
	if cfg.Flow.PageSize <= 0 {
		cfg.Flow.PageSize = 5
	}
	if cfg.Flow.CustomThemeCategory <= 0 {
		cfg.Flow.CustomThemeCategory = 6
	}
	if cfg.Flow.Language == "" {
		cfg.Flow.Language = "ru"
	}
}

func (cfg *Config) validate() error {
	if cfg.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	switch cfg.State.Backend {
	case "memory":
	case "redis":
		if !cfg.Redis.Enabled() {
			return errors.New("state.backend=redis requires redis.url")
		}
	default:
		return fmt.Errorf("state.backend: unknown backend %q", cfg.State.Backend)
	}
	if !cfg.Mail.Disabled && (cfg.Mail.SMTPHost == "" || cfg.Mail.Sender == "") {
		return errors.New("mail.smtp_host and mail.sender are required unless mail.disabled is set")
	}
	return nil
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
