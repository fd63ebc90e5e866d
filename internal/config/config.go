// Package config loads kpx settings from .kpx.toml or .kpx.yaml files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File names searched by Discover, in order
var FileNames = []string{".kpx.toml", ".kpx.yaml", ".kpx.yml"}

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Config controls how kpx reads boards and reports results.
type Config struct {
	// Extraction settings
	OutlineLayer string `toml:"outline_layer" yaml:"outline_layer"` // Layer holding the board edge (default: Edge.Cuts)

	// Reporting
	Format         string `toml:"format" yaml:"format"`                   // table or json (default: table)
	OnlyReferences string `toml:"only_references" yaml:"only_references"` // If set, only report designators matching this regex
	LogLevel       string `toml:"log_level" yaml:"log_level"`             // debug, info, warn or error (default: warn)

	// Result cache; empty disables it
	CachePath string `toml:"cache_path" yaml:"cache_path"`

	// Watch mode
	Watch      bool `toml:"watch" yaml:"watch"`             // Re-run when the input changes (default: false)
	DebounceMS int  `toml:"debounce_ms" yaml:"debounce_ms"` // Quiet period before a re-run (default: 200)

	// Internal compiled regex
	refRegex *regexp.Regexp
	level    slog.Level
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() *Config {
	return &Config{
		OutlineLayer: "Edge.Cuts",
		Format:       FormatTable,
		LogLevel:     "warn",
		DebounceMS:   200,
		level:        slog.LevelWarn,
	}
}

// Validate checks the configuration for errors and compiles any regex patterns.
func (c *Config) Validate() error {
	if c.OutlineLayer == "" {
		c.OutlineLayer = "Edge.Cuts"
	}
	if c.DebounceMS < 1 {
		c.DebounceMS = 200
	}

	c.Format = strings.ToLower(c.Format)
	switch c.Format {
	case "":
		c.Format = FormatTable
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.Format, FormatTable, FormatJSON)
	}

	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if err := c.level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	// Compile reference filter regex if provided
	c.refRegex = nil
	if c.OnlyReferences != "" {
		regex, err := regexp.Compile(c.OnlyReferences)
		if err != nil {
			return fmt.Errorf("invalid only_references pattern: %w", err)
		}
		c.refRegex = regex
	}

	return nil
}

// Level returns the slog level named by LogLevel. Valid after Validate.
func (c *Config) Level() slog.Level {
	return c.level
}

// Debounce returns the watch quiet period
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// ShouldReport returns true if the given reference designator passes the
// OnlyReferences filter.
func (c *Config) ShouldReport(ref string) bool {
	if c.refRegex == nil {
		return true // No filter, report everything
	}
	return c.refRegex.MatchString(ref)
}

// Load reads a TOML or YAML config file, chosen by extension, on top of the
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover returns the first config file from FileNames found in dir or
// any of its parents, or "" when there is none.
func Discover(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
