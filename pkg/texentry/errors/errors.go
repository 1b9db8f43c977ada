// Package errors holds the sentinel errors shared by the texture entry
// pipeline. Callers wrap them with fmt.Errorf("...: %w", err) and match with
// errors.Is.
package errors

import "errors"

var (
	// Validation errors 📝
	ErrIdentifierFormat = errors.New("❌ identifier is not a number")
	ErrIdentifierRange  = errors.New("❌ identifier out of range (0-999)")
	ErrUsage            = errors.New("❌ invalid arguments")

	// Invariant violations 💥
	ErrInvariantViolation = errors.New("💥 internal invariant violated")
	ErrPlanOrder          = errors.New("💥 integrity plan order violated")
	ErrFieldOutOfBounds   = errors.New("💥 patch field outside its segment")
	ErrTemplateChecksum   = errors.New("💥 template checksum mismatch")
	ErrUnknownSegment     = errors.New("💥 unknown segment")
	ErrUnknownField       = errors.New("💥 unknown patch field")

	// Output errors 💾
	ErrOutputLocked      = errors.New("❌ output is locked by another writer")
	ErrInsufficientSpace = errors.New("❌ insufficient disk space")

	// Verification errors 🔍
	ErrDigestMismatch     = errors.New("❌ digest mismatch")
	ErrIdentifierMismatch = errors.New("❌ identifier fields disagree")
	ErrLayoutMismatch     = errors.New("❌ layout fields disagree")
	ErrEntrySize          = errors.New("❌ unexpected entry size")
)
