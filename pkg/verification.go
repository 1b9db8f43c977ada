package pkg

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/gibbed/Gibbed.DXM/pkg/texentry"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/format_v1"
)

// VerifyEntryWithLogger verifies an entry and logs every check.
func VerifyEntryWithLogger(entryPath string, logger hclog.Logger) (*texentry.Report, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	schema, err := format_v1.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load format schema: %w", err)
	}

	logger.Info("Verifying entry integrity", "path", entryPath)

	report, err := texentry.VerifyFile(schema, entryPath)
	if report == nil {
		logger.Error("Failed to read entry", "error", err)
		return nil, err
	}

	failed := 0
	for _, c := range report.Checks {
		if c.Err != nil {
			failed++
			logger.Error("Check failed", "check", c.Name, "error", c.Err)
			continue
		}
		logger.Info("✓ Check passed", "check", c.Name)
	}

	if failed == 0 {
		logger.Info("✓ Entry verification passed",
			"entry", report.EntryName,
			"id", report.Identifier.String(),
			"checksum", report.Checksum)
	} else {
		logger.Error("✗ Entry verification failed", "error_count", failed)
	}
	return report, err
}
