// Package config loads dxm-build-texture settings: built-in defaults, an
// optional TOML file, then DXM_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/gibbed/Gibbed.DXM/pkg/utils/permissions"
)

// Environment overrides
const (
	EnvConfig    = "DXM_CONFIG"
	EnvOutputDir = "DXM_OUTPUT_DIR"
	EnvWorkers   = "DXM_WORKERS"
	EnvLogLevel  = "DXM_LOG_LEVEL"
)

// Output controls where and how entries are written.
type Output struct {
	// Dir receives derived output paths. Empty means next to the input.
	Dir      string `toml:"dir"`
	Prefix   string `toml:"prefix"`
	Suffix   string `toml:"suffix"`
	FileMode string `toml:"file_mode"`
}

// Build tunes the pipeline.
type Build struct {
	// Workers bounds parallel resampling and compression. 0 means one per CPU.
	Workers int `toml:"workers"`
}

// Logging selects log level and format.
type Logging struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Config is the full tool configuration.
type Config struct {
	Output  Output  `toml:"output"`
	Build   Build   `toml:"build"`
	Logging Logging `toml:"logging"`
}

// Load resolves and parses the configuration. An explicit path must exist;
// without one, DXM_CONFIG and then the platform default location are tried,
// and a missing default file simply means built-in defaults. It returns the
// path that was read, or "" when no file was used.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	if resolved != "" {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

func resolveConfigPath(path string) (string, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config %s: %w", path, err)
		}
		return path, nil
	}

	def := DefaultConfigPath()
	info, err := os.Stat(def)
	switch {
	case err == nil && !info.IsDir():
		return def, nil
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return "", nil
	default:
		return "", fmt.Errorf("stat config: %w", err)
	}
}

func (c *Config) applyEnv() error {
	if dir := os.Getenv(EnvOutputDir); dir != "" {
		c.Output.Dir = dir
	}
	if w := os.Getenv(EnvWorkers); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvWorkers, w, err)
		}
		c.Build.Workers = n
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// FileMode returns the parsed output file mode.
func (c *Config) FileMode() os.FileMode {
	mode, err := permissions.ParseFileMode(c.Output.FileMode)
	if err != nil {
		return permissions.DefaultFilePerms
	}
	return mode
}
