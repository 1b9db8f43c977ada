package texentry

// Core constants that never change
// For configurable defaults, see internal/config; file modes live in
// pkg/utils/permissions

const (
	// Identifier range, rendered as three zero-padded ASCII digits
	MinIdentifier     = 0
	MaxIdentifier     = 999
	DefaultIdentifier = "13"

	// Output naming
	DefaultOutputPrefix = "texture_"
	DefaultOutputSuffix = ".dxmentry"

	// Disk space headroom over the entry size
	DiskSpaceMultiplier = 2
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitPanic       = 101
	ExitFormatError = 102 // internal invariant violated
	ExitInvalidArgs = 105
	ExitIOError     = 106
)
