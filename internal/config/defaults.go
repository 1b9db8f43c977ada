package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/gibbed/Gibbed.DXM/pkg/texentry"
	"github.com/gibbed/Gibbed.DXM/pkg/utils/permissions"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Output: Output{
			Prefix:   texentry.DefaultOutputPrefix,
			Suffix:   texentry.DefaultOutputSuffix,
			FileMode: permissions.FormatOctal(permissions.DefaultFilePerms),
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// DefaultConfigPath returns the platform config file location.
func DefaultConfigPath() string {
	return filepath.Join(ConfigRoot(), "config.toml")
}

// ConfigRoot returns the per-user configuration directory.
func ConfigRoot() string {
	switch runtime.GOOS {
	case "darwin":
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Application Support", "dxm")
		}
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "dxm")
		}
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "dxm")
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", "dxm")
		}
	}

	// Fallback to temp directory
	return filepath.Join(os.TempDir(), "dxm")
}
