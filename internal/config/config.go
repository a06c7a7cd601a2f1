// Package config implements the viper-backed configuration layer §4's
// ambient stack calls for: config file values override defaults, and
// environment variables (SCRIBE_*) override config file keys (see Load
// for the limits of that), grounded on
// marmos91-dittofs/pkg/config/config.go's precedence chain and
// mapstructure decode-hook convention, scaled down to this system's
// narrower surface.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full static configuration of one scribe daemon.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Monitor    MonitorConfig    `mapstructure:"monitor" yaml:"monitor"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	Auth       AuthConfig       `mapstructure:"auth" yaml:"auth"`
	Session    SessionConfig    `mapstructure:"session" yaml:"session"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator" yaml:"coordinator"`
}

// LoggingConfig controls zap's output (§ ambient stack: structured
// logging is carried regardless of which feature Non-goals exclude).
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // json, console
}

// ServerConfig is the application (API) HTTP server.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	DevMode         bool          `mapstructure:"dev_mode" yaml:"dev_mode"`
	StaticDir       string        `mapstructure:"static_dir" yaml:"static_dir"`
}

// MonitorConfig is the separate monitor HTTP server (§6).
type MonitorConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// StorageConfig selects and configures the file store backend
// (internal/store's MemStore vs BadgerStore).
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // "memory" or "badger"
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// RedisConfig is consulted only when a component is configured to use
// its Redis-backed implementation (RedisNotifier, RedisAuthority).
type RedisConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// AuthConfig configures the token authority.
type AuthConfig struct {
	Backend     string   `mapstructure:"backend" yaml:"backend"` // "memory" or "redis"
	RootSecrets []string `mapstructure:"root_secrets" yaml:"root_secrets"`
	DevMode     bool     `mapstructure:"dev_mode" yaml:"dev_mode"`
}

// SessionConfig configures the idle-sweep background task.
type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// CoordinatorConfig configures the per-document update retry budget.
type CoordinatorConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// Load starts from the defaults and overlays configPath (or the default
// search path when empty). Environment variables prefixed SCRIBE_
// override keys that the config file sets; when no config file is found
// the defaults are returned unchanged and the environment is not read.
// No CLI flags are bound here.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if !found {
		return cfg, nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	return cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: failed to read config file: %w", err)
	}
	return true, nil
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scribe")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "scribe")
}

// DefaultConfigPath returns where Load looks when configPath is empty.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPS:    200,
			RateLimitBurst:  400,
		},
		Monitor: MonitorConfig{ListenAddr: ":8081"},
		Storage: StorageConfig{Backend: "memory", Dir: "./data"},
		Redis:   RedisConfig{Addr: "localhost:6379", KeyPrefix: "scribe"},
		Auth:    AuthConfig{Backend: "memory"},
		Session: SessionConfig{
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Coordinator: CoordinatorConfig{MaxAttempts: 25},
	}
}
