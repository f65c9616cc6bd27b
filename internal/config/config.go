// Package config loads and validates linkprobe configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. LINKPROBE_CHECKER_RATE_LIMIT.
const EnvPrefix = "LINKPROBE"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Checker  CheckerConfig  `mapstructure:"checker"`
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Progress ProgressConfig `mapstructure:"progress"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// CheckerConfig governs the fetch pipeline.
type CheckerConfig struct {
	RateLimit      int    `mapstructure:"rate_limit"`
	Concurrency    int    `mapstructure:"concurrency"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxTitleLength int    `mapstructure:"max_title_length"`
	UserAgent      string `mapstructure:"user_agent"`
	QueueDepth     int    `mapstructure:"queue_depth"`
}

// InputConfig locates the URL list.
type InputConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig locates the result logs.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig selects the zap encoder and where log lines go. An empty
// OutputPaths keeps zap's default of stderr.
type LoggingConfig struct {
	Development bool     `mapstructure:"development"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// ProgressConfig selects progress sinks.
type ProgressConfig struct {
	Bar       bool `mapstructure:"bar"`
	LogEvents bool `mapstructure:"log_events"`
}

// MetricsConfig controls the optional /metrics listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk and environment using a fresh Viper.
func Load(path string) (Config, error) {
	return LoadFrom(viper.New(), path)
}

// LoadFrom builds a Config from v, which may already carry bound CLI flags.
// path is optional; when set the file must exist and parse.
func LoadFrom(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("checker.rate_limit", 5)
	v.SetDefault("checker.concurrency", 0)
	v.SetDefault("checker.timeout_seconds", 15)
	v.SetDefault("checker.max_title_length", 100)
	v.SetDefault("checker.user_agent", "linkprobe/0.1")
	v.SetDefault("checker.queue_depth", 64)
	v.SetDefault("input.path", "input.txt")
	v.SetDefault("output.dir", "output")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{})
	v.SetDefault("progress.bar", true)
	v.SetDefault("progress.log_events", false)
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Checker.RateLimit <= 0 {
		return fmt.Errorf("checker.rate_limit must be > 0")
	}
	if c.Checker.Concurrency < 0 {
		return fmt.Errorf("checker.concurrency must be >= 0")
	}
	if c.Checker.TimeoutSeconds <= 0 {
		return fmt.Errorf("checker.timeout_seconds must be > 0")
	}
	if c.Checker.MaxTitleLength < 0 {
		return fmt.Errorf("checker.max_title_length must be >= 0")
	}
	if c.Checker.QueueDepth < 0 {
		return fmt.Errorf("checker.queue_depth must be >= 0")
	}
	if strings.TrimSpace(c.Input.Path) == "" {
		return fmt.Errorf("input.path is required")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir is required")
	}
	return nil
}

// Timeout converts the per-request timeout into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Checker.TimeoutSeconds) * time.Second
}

// Workers reports the worker pool size. It defaults to the rate limit since
// extra workers would only wait on permits.
func (c Config) Workers() int {
	if c.Checker.Concurrency > 0 {
		return c.Checker.Concurrency
	}
	return c.Checker.RateLimit
}
