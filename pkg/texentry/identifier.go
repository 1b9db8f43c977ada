package texentry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/format_v1"
)

// Identifier is a texture number in [0, 999].
type Identifier uint16

// NewIdentifier range-checks n.
func NewIdentifier(n int) (Identifier, error) {
	if n < MinIdentifier || n > MaxIdentifier {
		return 0, fmt.Errorf("%d: %w", n, dxmerrors.ErrIdentifierRange)
	}
	return Identifier(n), nil
}

// ParseIdentifier parses a decimal identifier. Only ASCII digits are
// accepted: leading zeros are fine, signs and spaces are not.
func ParseIdentifier(s string) (Identifier, error) {
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, fmt.Errorf("%q: %w", s, dxmerrors.ErrIdentifierFormat)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%q: %w", s, dxmerrors.ErrIdentifierRange)
		}
		return 0, fmt.Errorf("%q: %w", s, dxmerrors.ErrIdentifierFormat)
	}
	return NewIdentifier(n)
}

// String renders the identifier as three zero-padded digits.
func (id Identifier) String() string {
	return fmt.Sprintf("%03d", uint16(id))
}

// Bytes returns the ASCII rendering written into identifier fields.
func (id Identifier) Bytes() []byte {
	return []byte(id.String())
}

// Valid reports whether the identifier is in range.
func (id Identifier) Valid() bool {
	return int(id) <= MaxIdentifier
}

// PatchIdentifier writes the identifier into every identifier entry of the
// table. All entries are resolved before the first write, so a failure leaves
// the buffer unchanged.
func PatchIdentifier(buf *OutputBuffer, table *format_v1.PatchTable, id Identifier) error {
	if !id.Valid() {
		return fmt.Errorf("%d: %w", uint16(id), dxmerrors.ErrIdentifierRange)
	}
	value := id.Bytes()

	entries := table.Kind(format_v1.KindIdentifier)
	if len(entries) == 0 {
		return fmt.Errorf("no identifier fields declared: %w", dxmerrors.ErrInvariantViolation)
	}
	for _, e := range entries {
		if e.Length != len(value) {
			return fmt.Errorf("%s is %d bytes, identifier renders to %d: %w",
				e, e.Length, len(value), dxmerrors.ErrInvariantViolation)
		}
		if _, err := buf.Layout().Resolve(e); err != nil {
			return err
		}
	}

	for _, e := range entries {
		if err := buf.Write(e, value); err != nil {
			return err
		}
	}
	return nil
}
