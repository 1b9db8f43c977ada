// Package mipmap builds square mip chains from a decoded source image.
//
// Each level is resampled directly from the source with a Lanczos-3 filter
// under wrap-around edge handling, so levels never inherit each other's
// filtering error and can be produced in parallel.
package mipmap

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Level is one square mip level as tightly packed RGBA (4 bytes per pixel,
// stride 4*Size).
type Level struct {
	Index int
	Size  int
	Pix   []byte
}

// Result is a built chain, largest level first.
type Result struct {
	Levels   []Level
	Warnings []string
}

// Sizes returns the edge length of each level of a chain: baseSize, baseSize/2,
// ... down to 1 for a full chain.
func Sizes(baseSize, levels int) []int {
	out := make([]int, levels)
	for k := range out {
		out[k] = max(baseSize>>k, 1)
	}
	return out
}

// Builder produces mip chains of a fixed shape.
type Builder struct {
	baseSize int
	levels   int
	workers  int
	filter   resize.InterpolationFunction
	logger   hclog.Logger
}

// NewBuilder returns a builder for levels square levels starting at baseSize.
// baseSize must be a power of two with at least levels-1 halvings.
func NewBuilder(baseSize, levels, workers int, logger hclog.Logger) (*Builder, error) {
	if baseSize <= 0 || baseSize&(baseSize-1) != 0 {
		return nil, fmt.Errorf("base size %d is not a power of two", baseSize)
	}
	if levels <= 0 || baseSize>>(levels-1) < 1 {
		return nil, fmt.Errorf("%d levels do not fit a %d base", levels, baseSize)
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Builder{
		baseSize: baseSize,
		levels:   levels,
		workers:  workers,
		filter:   resize.Lanczos3,
		logger:   logger,
	}, nil
}

// Sizes returns this builder's level sizes.
func (b *Builder) Sizes() []int {
	return Sizes(b.baseSize, b.levels)
}

// Build resamples src into every level. A source that is not baseSize x
// baseSize is stretched to fit and reported in Result.Warnings.
func (b *Builder) Build(ctx context.Context, src image.Image) (*Result, error) {
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("source image is empty")
	}

	res := &Result{Levels: make([]Level, b.levels)}
	if bounds.Dx() != b.baseSize || bounds.Dy() != b.baseSize {
		msg := fmt.Sprintf("source is %dx%d, expected %dx%d; resampling to fit",
			bounds.Dx(), bounds.Dy(), b.baseSize, b.baseSize)
		res.Warnings = append(res.Warnings, msg)
		b.logger.Warn("⚠️ Non-nominal source dimensions",
			"width", bounds.Dx(), "height", bounds.Dy(), "expected", b.baseSize)
	}

	source := ToNRGBA(src)
	var (
		tileOnce sync.Once
		tiled    *image.NRGBA
	)
	tiles := func() *image.NRGBA {
		tileOnce.Do(func() { tiled = wrapTile(source) })
		return tiled
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for k, size := range b.Sizes() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var img *image.NRGBA
			if sameSize(source, size) {
				img = clone(source)
			} else {
				img = b.resizeTiled(tiles(), size)
			}
			res.Levels[k] = Level{Index: k, Size: size, Pix: img.Pix}
			b.logger.Trace("🔍 Mip level built", "level", k, "size", size)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build mip chain: %w", err)
	}

	b.logger.Debug("🖼️ Mip chain built", "levels", len(res.Levels), "base", b.baseSize)
	return res, nil
}

// Resize resamples src to size x size with wrap-around edges. A source that
// already has the requested size is copied unchanged.
func (b *Builder) Resize(src image.Image, size int) *image.NRGBA {
	source := ToNRGBA(src)
	if sameSize(source, size) {
		return clone(source)
	}
	return b.resizeTiled(wrapTile(source), size)
}

// resizeTiled scales a 3x3 tiling of the source to 3*size and keeps the
// center tile, which gives the filter wrapped neighbors at every edge.
func (b *Builder) resizeTiled(tiled *image.NRGBA, size int) *image.NRGBA {
	scaled := resize.Resize(uint(3*size), uint(3*size), tiled, b.filter)

	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	origin := scaled.Bounds().Min.Add(image.Pt(size, size))
	draw.Draw(out, out.Bounds(), scaled, origin, draw.Src)
	return out
}

// ToNRGBA converts any image to a non-premultiplied RGBA image anchored at
// the origin with a tight stride.
func ToNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
	return out
}

func sameSize(img *image.NRGBA, size int) bool {
	b := img.Bounds()
	return b.Dx() == size && b.Dy() == size
}

func clone(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}

func wrapTile(src *image.NRGBA) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewNRGBA(image.Rect(0, 0, 3*w, 3*h))
	for ty := 0; ty < 3; ty++ {
		for tx := 0; tx < 3; tx++ {
			r := image.Rect(tx*w, ty*h, (tx+1)*w, (ty+1)*h)
			draw.Draw(out, r, src, image.Point{}, draw.Src)
		}
	}
	return out
}
