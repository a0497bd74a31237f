// Package config loads scenewalk's application settings: YAML file first,
// SCENEWALK_* environment variables on top.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/scenewalk/internal/core/camera"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/internal/core/registry"
)

const EnvPrefix = "SCENEWALK_"

// Backend kinds.
const (
	BackendProcess = "process"
	BackendRemote  = "remote"
	BackendQUIC    = "quic"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Log     LogConfig     `json:"log" yaml:"log" envPrefix:"LOG_"`
	Backend BackendConfig `json:"backend" yaml:"backend" envPrefix:"BACKEND_"`
	Target  TargetConfig  `json:"target" yaml:"target" envPrefix:"TARGET_"`
	Scan    ScanConfig    `json:"scan" yaml:"scan" envPrefix:"SCAN_"`
	// LayoutFile overrides the built-in offsets when set.
	LayoutFile string `json:"layout_file,omitempty" yaml:"layout_file,omitempty" env:"LAYOUT_FILE"`
}

type LogConfig struct {
	Level       string `json:"level" yaml:"level" env:"LEVEL"`
	Development bool   `json:"development" yaml:"development" env:"DEVELOPMENT"`
}

type BackendConfig struct {
	Kind    string        `json:"kind" yaml:"kind" env:"KIND"`
	PID     int           `json:"pid,omitempty" yaml:"pid,omitempty" env:"PID"`
	URL     string        `json:"url,omitempty" yaml:"url,omitempty" env:"URL"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
	// CAFile is a PEM bundle trusted for the quic backend's server certificate.
	CAFile string `json:"ca_file,omitempty" yaml:"ca_file,omitempty" env:"CA_FILE"`
	// Insecure skips server certificate verification for the quic backend.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty" env:"INSECURE"`
}

// TargetConfig holds addresses as strings so they can be written in hex.
type TargetConfig struct {
	Bootstrap string `json:"bootstrap,omitempty" yaml:"bootstrap,omitempty" env:"BOOTSTRAP"`
	Registry  string `json:"registry,omitempty" yaml:"registry,omitempty" env:"REGISTRY"`
}

type ScanConfig struct {
	Schema        string   `json:"schema" yaml:"schema" env:"SCHEMA"`
	Workers       int      `json:"workers" yaml:"workers" env:"WORKERS"`
	ManagedPolicy string   `json:"managed_policy" yaml:"managed_policy" env:"MANAGED_POLICY"`
	EnabledPolicy string   `json:"enabled_policy" yaml:"enabled_policy" env:"ENABLED_POLICY"`
	BucketTypes   []string `json:"bucket_types,omitempty" yaml:"bucket_types,omitempty" env:"BUCKET_TYPES" envSeparator:","`
}

func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info"},
		Backend: BackendConfig{Kind: BackendProcess, Timeout: 5 * time.Second},
		Scan: ScanConfig{
			Schema:        "auto",
			Workers:       4,
			ManagedPolicy: "keep",
			EnabledPolicy: "open",
		},
	}
}

// Load reads path (when non-empty), applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := decodeYAML(f, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Backend.Kind {
	case BackendProcess:
		if c.Backend.PID < 0 {
			return fmt.Errorf("%w: backend.pid must not be negative", ErrInvalidConfig)
		}
	case BackendRemote, BackendQUIC:
		if c.Backend.URL == "" {
			return fmt.Errorf("%w: backend.url is required for the %s backend", ErrInvalidConfig, c.Backend.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown backend kind %q", ErrInvalidConfig, c.Backend.Kind)
	}
	if _, _, err := c.Target.Addresses(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := registry.ParseSchema(c.Scan.Schema); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := registry.ParseManagedPolicy(c.Scan.ManagedPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := camera.ParseEnabledPolicy(c.Scan.EnabledPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("%w: scan.workers must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Addresses parses the bootstrap and registry addresses; empty strings yield zero.
func (t TargetConfig) Addresses() (bootstrap, reg memory.Address, err error) {
	if t.Bootstrap != "" {
		if bootstrap, err = memory.ParseAddress(t.Bootstrap); err != nil {
			return 0, 0, fmt.Errorf("target.bootstrap: %w", err)
		}
	}
	if t.Registry != "" {
		if reg, err = memory.ParseAddress(t.Registry); err != nil {
			return 0, 0, fmt.Errorf("target.registry: %w", err)
		}
	}
	return bootstrap, reg, nil
}
