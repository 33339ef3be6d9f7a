// Package config loads the engine configuration.
//
// Configuration comes from a YAML file at $PROPGATE_CONFIG, or
// ~/.propgate/config.yaml when that variable is unset, with a few
// PROPGATE_* environment variables applied on top.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig              = "PROPGATE_CONFIG"
	EnvDataDir             = "PROPGATE_DATA_DIR"
	EnvMaxRepairIterations = "PROPGATE_MAX_REPAIR_ITERATIONS"
	EnvLogLevel            = "PROPGATE_LOG_LEVEL"
	EnvMetricsAddr         = "PROPGATE_METRICS_ADDR"
)

// ConfigFile is the config file name inside the data directory.
const ConfigFile = "config.yaml"

// ErrRepairBudgetUnset is returned when no repair bound is configured.
// The bound has no default; the operator must choose one.
var ErrRepairBudgetUnset = errors.New("max_repair_iterations is not configured")

// --- Collaborator kind enum ---

// CollaboratorKind selects how a knowledge collaborator is reached.
type CollaboratorKind string

const (
	KindFile CollaboratorKind = "file"
	KindHTTP CollaboratorKind = "http"
)

var validKinds = map[CollaboratorKind]bool{
	KindFile: true,
	KindHTTP: true,
}

// Collaborator describes one knowledge source. Order in Config is query
// order.
type Collaborator struct {
	Name  string           `yaml:"name"`
	Kind  CollaboratorKind `yaml:"kind"`
	Scope string           `yaml:"scope"`
	// Dir is the directory of YAML parameter sheets (file kind).
	Dir string `yaml:"dir,omitempty"`
	// Endpoint is the search URL (http kind).
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Config is the full engine configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`
	// MaxRepairIterations bounds the repair loop. Nil means unset.
	MaxRepairIterations *int           `yaml:"max_repair_iterations"`
	LookupTimeout       time.Duration  `yaml:"lookup_timeout"`
	LookupWorkers       int            `yaml:"lookup_workers"`
	Policy              string         `yaml:"policy"`
	Collaborators       []Collaborator `yaml:"collaborators"`
	LogLevel            string         `yaml:"log_level"`
	MetricsAddr         string         `yaml:"metrics_addr"`
}

// DefaultConfig returns the defaults: data under ~/.propgate, 5s lookup
// timeout, 4 lookup workers, placeholder policy, info logging. The repair
// bound is left unset.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:       filepath.Join(home, ".propgate"),
		LookupTimeout: 5 * time.Second,
		LookupWorkers: 4,
		Policy:        "placeholder",
		LogLevel:      "info",
	}
}

// Load reads the config file, applies environment overrides and
// validates the result. A missing default file is not an error; a
// missing file named by $PROPGATE_CONFIG is.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path, explicit := os.Getenv(EnvConfig), true
	if path == "" {
		path, explicit = filepath.Join(cfg.DataDir, ConfigFile), false
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = Parse(data); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. It does not validate.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvMaxRepairIterations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxRepairIterations, err)
		}
		c.MaxRepairIterations = &n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.MetricsAddr = v
	}
	return nil
}

// Validate checks the configuration and returns every problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is empty"))
	}
	switch {
	case c.MaxRepairIterations == nil:
		errs = append(errs, ErrRepairBudgetUnset)
	case *c.MaxRepairIterations < 0:
		errs = append(errs, fmt.Errorf("max_repair_iterations must be >= 0, got %d", *c.MaxRepairIterations))
	}
	if c.LookupTimeout <= 0 {
		errs = append(errs, fmt.Errorf("lookup_timeout must be positive, got %s", c.LookupTimeout))
	}
	if c.LookupWorkers < 1 {
		errs = append(errs, fmt.Errorf("lookup_workers must be >= 1, got %d", c.LookupWorkers))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	names := make(map[string]bool, len(c.Collaborators))
	for i, col := range c.Collaborators {
		if col.Name == "" {
			errs = append(errs, fmt.Errorf("collaborators[%d]: name is empty", i))
		} else if names[col.Name] {
			errs = append(errs, fmt.Errorf("collaborators[%d]: duplicate name %q", i, col.Name))
		}
		names[col.Name] = true

		if !validKinds[col.Kind] {
			errs = append(errs, fmt.Errorf("collaborators[%d]: unknown kind %q (allowed: file, http)", i, col.Kind))
			continue
		}
		if col.Kind == KindFile && col.Dir == "" {
			errs = append(errs, fmt.Errorf("collaborators[%d]: file collaborator needs dir", i))
		}
		if col.Kind == KindHTTP && col.Endpoint == "" {
			errs = append(errs, fmt.Errorf("collaborators[%d]: http collaborator needs endpoint", i))
		}
	}
	return errors.Join(errs...)
}

// RepairBudget returns the configured repair bound, or 0 when unset.
func (c Config) RepairBudget() int {
	if c.MaxRepairIterations == nil {
		return 0
	}
	return *c.MaxRepairIterations
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q (allowed: debug, info, warn, error)", c.LogLevel)
}

// NewLogger returns a JSON logger writing to w at the configured level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
