// Package permissions provides utilities for parsing and handling file permissions
package permissions

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default permission constants for written entries and their directories
const (
	DefaultFilePerms os.FileMode = 0o644
	DefaultDirPerms  os.FileMode = 0o755
)

// ParseFileMode parses an octal permission string into a file mode.
// Handles formats like "644", "0644", "0o644". An empty string yields
// DefaultFilePerms. Only permission bits are accepted.
func ParseFileMode(s string) (os.FileMode, error) {
	if s == "" {
		return DefaultFilePerms, nil
	}

	digits := strings.TrimPrefix(strings.ToLower(s), "0o")
	if len(digits) > 1 {
		digits = strings.TrimLeft(digits, "0")
		if digits == "" {
			digits = "0"
		}
	}

	val, err := strconv.ParseUint(digits, 8, 32)
	if err != nil {
		return DefaultFilePerms, fmt.Errorf("invalid permission string %q: %w", s, err)
	}
	if val > 0o777 {
		return DefaultFilePerms, fmt.Errorf("invalid permission string %q: only permission bits are allowed", s)
	}
	return os.FileMode(val), nil
}

// FormatOctal formats a permission value as an octal string
func FormatOctal(perm os.FileMode) string {
	return fmt.Sprintf("0%o", perm.Perm())
}

// IsOwnerWritable checks if permissions let the owner replace the file
func IsOwnerWritable(perm os.FileMode) bool {
	return perm&0o200 != 0
}
