package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/gibbed/Gibbed.DXM/pkg/logging"
	"github.com/gibbed/Gibbed.DXM/pkg/utils/permissions"
)

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Build.Workers < 0 {
		errs = append(errs, fmt.Errorf("build.workers must be >= 0, got %d", c.Build.Workers))
	}

	mode, err := permissions.ParseFileMode(c.Output.FileMode)
	if err != nil {
		errs = append(errs, fmt.Errorf("output.file_mode: %w", err))
	} else if !permissions.IsOwnerWritable(mode) {
		errs = append(errs, fmt.Errorf("output.file_mode %s is not owner-writable", permissions.FormatOctal(mode)))
	}

	if strings.ContainsAny(c.Output.Prefix, `/\`) {
		errs = append(errs, fmt.Errorf("output.prefix %q must not contain path separators", c.Output.Prefix))
	}
	if strings.ContainsAny(c.Output.Suffix, `/\`) {
		errs = append(errs, fmt.Errorf("output.suffix %q must not contain path separators", c.Output.Suffix))
	}
	if !strings.HasPrefix(c.Output.Suffix, ".") {
		errs = append(errs, fmt.Errorf("output.suffix %q must start with a dot", c.Output.Suffix))
	}

	if c.Logging.Level != "" {
		_, level := logging.ParseLevel(c.Logging.Level)
		if hclog.LevelFromString(level) == hclog.NoLevel {
			errs = append(errs, fmt.Errorf("logging.level %q is not a known level", c.Logging.Level))
		}
	}

	return errors.Join(errs...)
}
