package codec

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/gibbed/Gibbed.DXM/pkg/texentry/mipmap"
)

// Extent locates one compressed level inside a chain payload.
type Extent struct {
	Level  int
	Size   int
	Offset int
	Length int
}

// PlanChain lays out compressed levels back to back, largest first, and
// returns the extents and the total payload size.
func PlanChain(c Codec, sizes []int) ([]Extent, int) {
	extents := make([]Extent, len(sizes))
	offset := 0
	for k, size := range sizes {
		n := c.StorageSize(size, size)
		extents[k] = Extent{Level: k, Size: size, Offset: offset, Length: n}
		offset += n
	}
	return extents, offset
}

// CompressChain compresses every level into one contiguous payload. Levels
// are compressed concurrently, each into its own pre-reserved range, so the
// output does not depend on scheduling.
func CompressChain(ctx context.Context, c Codec, levels []mipmap.Level, workers int, logger hclog.Logger) ([]byte, []Extent, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if workers <= 0 {
		workers = 1
	}

	sizes := make([]int, len(levels))
	for k, lvl := range levels {
		if k > 0 && lvl.Size >= levels[k-1].Size {
			return nil, nil, fmt.Errorf("level %d (%d) is not smaller than level %d (%d)",
				k, lvl.Size, k-1, levels[k-1].Size)
		}
		sizes[k] = lvl.Size
	}

	extents, total := PlanChain(c, sizes)
	payload := make([]byte, total)
	logger.Debug("🗜️ Compressing mip chain", "codec", c.Name(), "levels", len(levels), "bytes", total)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k, ext := range extents {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dst := payload[ext.Offset : ext.Offset+ext.Length]
			if err := c.CompressInto(dst, levels[k].Pix, ext.Size, ext.Size); err != nil {
				return fmt.Errorf("level %d: %w", k, err)
			}
			logger.Trace("🗜️ Level compressed", "level", k, "size", ext.Size, "offset", ext.Offset, "length", ext.Length)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return payload, extents, nil
}
