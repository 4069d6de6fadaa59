// Package config loads pipeline settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration accepts YAML durations either as strings ("5s", "250ms") or as
// plain nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration value at line %d", value.Line)
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the runtime settings of the request pipeline.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	RefreshPath string        `yaml:"refresh_path"`
	Request     RequestConfig `yaml:"request"`
	Queue       QueueConfig   `yaml:"queue"`
	Probe       ProbeConfig   `yaml:"probe"`
}

type RequestConfig struct {
	Timeout     Duration `yaml:"timeout"`
	MaxRetries  int      `yaml:"max_retries"`
	BackoffBase Duration `yaml:"backoff_base"`
	BackoffCap  Duration `yaml:"backoff_cap"`
}

type QueueConfig struct {
	Capacity     int      `yaml:"capacity"`
	MaxRetries   int      `yaml:"max_retries"`
	RedrainDelay Duration `yaml:"redrain_delay"`
}

type ProbeConfig struct {
	// URL defaults to the base URL when unset.
	URL      string   `yaml:"url"`
	Interval Duration `yaml:"interval"`
}

// RefreshURL joins the base URL and the refresh path.
func (c Config) RefreshURL() string {
	return strings.TrimSuffix(c.BaseURL, "/") + c.RefreshPath
}

// LoadFromFile loads settings from a YAML file. A missing file is not an
// error; defaults and environment overrides still apply.
func LoadFromFile(path string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = "/auth/refresh"
	}
	if cfg.Request.Timeout == 0 {
		cfg.Request.Timeout = Duration(30 * time.Second)
	}
	if cfg.Request.MaxRetries == 0 {
		cfg.Request.MaxRetries = 2
	}
	if cfg.Request.BackoffBase == 0 {
		cfg.Request.BackoffBase = Duration(1 * time.Second)
	}
	if cfg.Request.BackoffCap == 0 {
		cfg.Request.BackoffCap = Duration(5 * time.Second)
	}
	if cfg.Queue.Capacity == 0 {
		cfg.Queue.Capacity = 50
	}
	if cfg.Queue.MaxRetries == 0 {
		cfg.Queue.MaxRetries = 3
	}
	if cfg.Queue.RedrainDelay == 0 {
		cfg.Queue.RedrainDelay = Duration(1 * time.Second)
	}
	if cfg.Probe.Interval == 0 {
		cfg.Probe.Interval = Duration(30 * time.Second)
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("HTTPKIT_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("HTTPKIT_REFRESH_PATH"); v != "" {
		cfg.RefreshPath = v
	}
	if v := os.Getenv("HTTPKIT_PROBE_URL"); v != "" {
		cfg.Probe.URL = v
	}
	if v := os.Getenv("HTTPKIT_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Request.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("HTTPKIT_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Queue.Capacity = n
		}
	}
	return cfg
}
