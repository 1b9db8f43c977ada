// Package codec block-compresses RGBA mip levels into fixed-ratio BCn
// payloads. Output size is a pure function of (width, height, format), so
// destinations are always allocated up front with StorageSize and never grown.
package codec

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
)

// Format identifies a block compression format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatBC1            // DXT1, 8 bytes per 4x4 block, opaque
	FormatBC2            // DXT3, 16 bytes per block, explicit 4-bit alpha
	FormatBC3            // DXT5, 16 bytes per block, interpolated alpha
)

// DXGI_FORMAT values for the supported formats
const (
	DXGI_FORMAT_BC1_UNORM = 71
	DXGI_FORMAT_BC2_UNORM = 74
	DXGI_FORMAT_BC3_UNORM = 77
)

// BlockEdge is the edge length of a compression block in pixels.
const BlockEdge = 4

func (f Format) String() string {
	switch f {
	case FormatBC1:
		return "bc1"
	case FormatBC2:
		return "bc2"
	case FormatBC3:
		return "bc3"
	default:
		return "unknown"
	}
}

// BlockBytes returns the encoded size of one 4x4 block.
func (f Format) BlockBytes() int {
	switch f {
	case FormatBC1:
		return 8
	case FormatBC2, FormatBC3:
		return 16
	default:
		return 0
	}
}

// DXGIFormat returns the DXGI_FORMAT enum value for the format.
func (f Format) DXGIFormat() uint32 {
	switch f {
	case FormatBC1:
		return DXGI_FORMAT_BC1_UNORM
	case FormatBC2:
		return DXGI_FORMAT_BC2_UNORM
	case FormatBC3:
		return DXGI_FORMAT_BC3_UNORM
	default:
		return 0
	}
}

// ParseFormat accepts "bc1".."bc3" and the DXT aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "bc1", "dxt1":
		return FormatBC1, nil
	case "bc2", "dxt3":
		return FormatBC2, nil
	case "bc3", "dxt5":
		return FormatBC3, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown block format %q", s)
	}
}

// StorageSize returns the exact compressed size of a width x height image.
// Partial blocks are padded to a full block, and images smaller than one
// block still occupy one block.
func StorageSize(width, height int, format Format) int {
	bx := (width + BlockEdge - 1) / BlockEdge
	by := (height + BlockEdge - 1) / BlockEdge
	if bx < 1 {
		bx = 1
	}
	if by < 1 {
		by = 1
	}
	return bx * by * format.BlockBytes()
}

// ChainSize returns the total compressed size of a square mip chain starting
// at baseSize and halving for the given number of levels.
func ChainSize(baseSize, levels int, format Format) int {
	total := 0
	for k := 0; k < levels; k++ {
		size := baseSize >> k
		if size < 1 {
			size = 1
		}
		total += StorageSize(size, size, format)
	}
	return total
}

// Codec compresses one RGBA image into a caller-provided buffer.
type Codec interface {
	// Format returns the block format this codec produces
	Format() Format

	// Name returns the human-readable name
	Name() string

	// StorageSize returns the exact output size for the given dimensions
	StorageSize(width, height int) int

	// CompressInto encodes pix (RGBA, 4 bytes per pixel, tightly packed)
	// into dst, which must be exactly StorageSize(width, height) bytes.
	CompressInto(dst, pix []byte, width, height int) error
}

// BaseCodec provides the format-derived parts of a Codec.
type BaseCodec struct {
	format Format
}

func (c *BaseCodec) Format() Format {
	return c.format
}

func (c *BaseCodec) Name() string {
	return strings.ToUpper(c.format.String())
}

func (c *BaseCodec) StorageSize(width, height int) int {
	return StorageSize(width, height, c.format)
}

// checkBuffers validates input and output lengths before any block is written.
func (c *BaseCodec) checkBuffers(dst, pix []byte, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%s: invalid dimensions %dx%d", c.Name(), width, height)
	}
	if len(pix) != width*height*4 {
		return fmt.Errorf("%s: pixel buffer is %d bytes, want %d for %dx%d",
			c.Name(), len(pix), width*height*4, width, height)
	}
	if want := c.StorageSize(width, height); len(dst) != want {
		return fmt.Errorf("%s: destination is %d bytes, storage size is %d: %w",
			c.Name(), len(dst), want, dxmerrors.ErrInvariantViolation)
	}
	return nil
}

var (
	registryMu sync.RWMutex
	registry   = map[Format]Codec{}
)

// Register makes a codec available through New.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Format()] = c
}

// New returns the registered codec for a format.
func New(format Format) (Codec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[format]
	if !ok {
		return nil, fmt.Errorf("no codec registered for %s", format)
	}
	return c, nil
}

// Registered lists registered formats in ascending order.
func Registered() []Format {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Format, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
