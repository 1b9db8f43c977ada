package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
)

// Environment variables read by this package
const (
	EnvLogLevel = "DXM_LOG_LEVEL"
	EnvJSONLog  = "DXM_JSON_LOG"
)

// LinePrefix marks every human-readable log line.
const LinePrefix = "🧱 "

// DefaultLevel is used when no flag, environment or config sets a level.
const DefaultLevel = "info"

// NewLogger creates a new hclog logger with standard settings. level may
// carry a "json:" prefix to force JSON output.
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	jsonFormat, level := ParseLevel(level)
	if os.Getenv(EnvJSONLog) == "1" {
		jsonFormat = true
	}

	color := hclog.ColorOff
	if !jsonFormat && isTerminal(output) {
		color = hclog.ForceColor
	}

	// Add prefix for non-JSON output
	if !jsonFormat {
		output = NewPrefixWriter(LinePrefix, output)
	}

	opts := &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		Color:      color,
		TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	}

	return hclog.New(opts)
}

// GetLogLevel returns the configured log level from environment
func GetLogLevel() string {
	return os.Getenv(EnvLogLevel)
}

// ParseLevel splits an optional "json:" prefix off a level string.
func ParseLevel(level string) (jsonFormat bool, name string) {
	if rest, ok := strings.CutPrefix(level, "json:"); ok {
		return true, rest
	}
	return false, level
}

// ResolveLevel picks the effective level and reports where it came from.
// Precedence: explicit flag, verbose flag, environment, config file, default.
func ResolveLevel(flagLevel string, verbose bool, configLevel string) (level, source string) {
	switch {
	case flagLevel != "":
		return flagLevel, "flag"
	case verbose:
		return "debug", "verbose"
	case GetLogLevel() != "":
		return GetLogLevel(), "env"
	case configLevel != "":
		return configLevel, "config"
	default:
		return DefaultLevel, "default"
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
