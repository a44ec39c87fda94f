package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. IMKIT_SDK_TOKEN.
const EnvPrefix = "IMKIT"

// Config is the root configuration for imkit.
type Config struct {
	App       AppConfig       `mapstructure:"app" yaml:"app"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	SDK       SDKConfig       `mapstructure:"sdk" yaml:"sdk"`
	Telegram  TelegramConfig  `mapstructure:"telegram" yaml:"telegram"`
	Discord   DiscordConfig   `mapstructure:"discord" yaml:"discord"`
	Slack     SlackConfig     `mapstructure:"slack" yaml:"slack"`
	WebSocket WebSocketConfig `mapstructure:"websocket" yaml:"websocket"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Env  string `mapstructure:"env" yaml:"env"`
}

// LumberjackConfig configures the rolling log file. An empty Filename
// disables file output.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize" yaml:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge" yaml:"maxAge"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

type LoggingConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"` // console | json
	File   LumberjackConfig `mapstructure:"file" yaml:"file"`
}

type StoreConfig struct {
	Driver  string `mapstructure:"driver" yaml:"driver"` // memory | sqlite
	Path    string `mapstructure:"path" yaml:"path"`
	Fixture string `mapstructure:"fixture" yaml:"fixture,omitempty"` // optional YAML seed loaded at startup
}

type SDKConfig struct {
	Token         string        `mapstructure:"token" yaml:"token"`
	CacheUserInfo bool          `mapstructure:"cacheUserInfo" yaml:"cacheUserInfo"`
	QueueSize     int           `mapstructure:"queueSize" yaml:"queueSize"`
	LookupTimeout time.Duration `mapstructure:"lookupTimeout" yaml:"lookupTimeout"`
}

type TelegramConfig struct {
	Enabled   bool     `mapstructure:"enabled" yaml:"enabled"`
	Token     string   `mapstructure:"token" yaml:"token"`
	AllowFrom []string `mapstructure:"allowFrom" yaml:"allowFrom"`
}

type DiscordConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Token   string `mapstructure:"token" yaml:"token"`
	GuildID string `mapstructure:"guildId" yaml:"guildId,omitempty"`
}

type SlackConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	BotToken string `mapstructure:"botToken" yaml:"botToken"`
	AppToken string `mapstructure:"appToken" yaml:"appToken"`
}

type WebSocketConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// DefaultConfigDir returns ~/.imkit, or .imkit if there is no home directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".imkit"
	}
	return filepath.Join(home, ".imkit")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Load reads path (YAML, TOML or JSON by extension) and applies IMKIT_*
// environment overrides. A missing file is not an error: defaults and the
// environment are used instead.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(ExpandPath(path))
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Store.Path = ExpandPath(cfg.Store.Path)
	cfg.Store.Fixture = ExpandPath(cfg.Store.Fixture)
	cfg.Logging.File.Filename = ExpandPath(cfg.Logging.File.Filename)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Lookup returns the raw value at a dotted key after defaults, file and
// environment have been merged.
func Lookup(path, key string) (any, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(ExpandPath(path))
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if !v.IsSet(key) {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return v.Get(key), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.env", d.App.Env)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file.filename", d.Logging.File.Filename)
	v.SetDefault("logging.file.maxSize", d.Logging.File.MaxSizeMB)
	v.SetDefault("logging.file.maxBackups", d.Logging.File.MaxBackups)
	v.SetDefault("logging.file.maxAge", d.Logging.File.MaxAgeDays)
	v.SetDefault("logging.file.compress", d.Logging.File.Compress)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.fixture", d.Store.Fixture)

	v.SetDefault("sdk.token", d.SDK.Token)
	v.SetDefault("sdk.cacheUserInfo", d.SDK.CacheUserInfo)
	v.SetDefault("sdk.queueSize", d.SDK.QueueSize)
	v.SetDefault("sdk.lookupTimeout", d.SDK.LookupTimeout)

	v.SetDefault("telegram.enabled", d.Telegram.Enabled)
	v.SetDefault("telegram.token", d.Telegram.Token)
	v.SetDefault("telegram.allowFrom", d.Telegram.AllowFrom)

	v.SetDefault("discord.enabled", d.Discord.Enabled)
	v.SetDefault("discord.token", d.Discord.Token)
	v.SetDefault("discord.guildId", d.Discord.GuildID)

	v.SetDefault("slack.enabled", d.Slack.Enabled)
	v.SetDefault("slack.botToken", d.Slack.BotToken)
	v.SetDefault("slack.appToken", d.Slack.AppToken)

	v.SetDefault("websocket.enabled", d.WebSocket.Enabled)
	v.SetDefault("websocket.addr", d.WebSocket.Addr)
	v.SetDefault("websocket.path", d.WebSocket.Path)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Save writes cfg as YAML, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has usable values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.Store.Driver {
	case "memory":
	case "sqlite":
		if cfg.Store.Path == "" {
			errs = append(errs, "store.path is required for the sqlite driver")
		}
	default:
		errs = append(errs, "store.driver must be one of: memory, sqlite")
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, "logging.format must be one of: console, json")
	}

	if cfg.SDK.QueueSize < 1 {
		errs = append(errs, "sdk.queueSize must be >= 1")
	}
	if cfg.SDK.LookupTimeout <= 0 {
		errs = append(errs, "sdk.lookupTimeout must be positive")
	}

	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required when telegram is enabled")
	}
	if cfg.Discord.Enabled && cfg.Discord.Token == "" {
		errs = append(errs, "discord.token is required when discord is enabled")
	}
	if cfg.Slack.Enabled && (cfg.Slack.BotToken == "" || cfg.Slack.AppToken == "") {
		errs = append(errs, "slack.botToken and slack.appToken are required when slack is enabled")
	}
	if cfg.WebSocket.Enabled && cfg.WebSocket.Addr == "" {
		errs = append(errs, "websocket.addr is required when websocket is enabled")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Sanitize returns a copy with secrets masked, for display.
func Sanitize(cfg *Config) *Config {
	c := *cfg
	c.SDK.Token = mask(c.SDK.Token)
	c.Telegram.Token = mask(c.Telegram.Token)
	c.Telegram.AllowFrom = append([]string(nil), cfg.Telegram.AllowFrom...)
	c.Discord.Token = mask(c.Discord.Token)
	c.Slack.BotToken = mask(c.Slack.BotToken)
	c.Slack.AppToken = mask(c.Slack.AppToken)
	return &c
}

func mask(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "****"
}

// ExpandPath resolves a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
