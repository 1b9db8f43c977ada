package mipmap

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "mipmap_test",
		Level: hclog.Trace,
	})
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / w), uint8(y * 255 / h), uint8((x + y) % 256), 255})
		}
	}
	return img
}

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestSizes(t *testing.T) {
	assert.Equal(t, []int{1024, 512, 256, 128, 64, 32, 16, 8, 4, 2, 1}, Sizes(1024, 11))
	assert.Equal(t, []int{8, 4, 2, 1}, Sizes(8, 4))
}

func TestNewBuilderValidation(t *testing.T) {
	testCases := []struct {
		name     string
		base     int
		levels   int
		wantFail bool
	}{
		{"nominal", 1024, 11, false},
		{"short chain", 64, 3, false},
		{"not a power of two", 100, 3, true},
		{"too many levels", 8, 5, true},
		{"no levels", 8, 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBuilder(tc.base, tc.levels, 2, testLogger())
			if tc.wantFail {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildNominalSource(t *testing.T) {
	b, err := NewBuilder(64, 7, 4, testLogger())
	require.NoError(t, err)

	src := gradient(64, 64)
	res, err := b.Build(context.Background(), src)
	require.NoError(t, err)

	assert.Empty(t, res.Warnings)
	require.Len(t, res.Levels, 7)
	for k, lvl := range res.Levels {
		assert.Equal(t, k, lvl.Index)
		assert.Equal(t, 64>>k, lvl.Size)
		assert.Len(t, lvl.Pix, lvl.Size*lvl.Size*4)
	}
	assert.Equal(t, src.Pix, res.Levels[0].Pix, "level 0 passes through unchanged")
}

func TestBuildLevelZeroIsACopy(t *testing.T) {
	b, err := NewBuilder(8, 4, 1, testLogger())
	require.NoError(t, err)

	src := gradient(8, 8)
	res, err := b.Build(context.Background(), src)
	require.NoError(t, err)

	res.Levels[0].Pix[0] ^= 0xFF
	assert.NotEqual(t, src.Pix[0], res.Levels[0].Pix[0])
}

func TestBuildNonNominalSourceWarns(t *testing.T) {
	b, err := NewBuilder(32, 6, 2, testLogger())
	require.NoError(t, err)

	res, err := b.Build(context.Background(), gradient(50, 20))
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "50x20")
	require.Len(t, res.Levels, 6)
	assert.Len(t, res.Levels[0].Pix, 32*32*4)
}

func TestBuildDeterministic(t *testing.T) {
	src := gradient(48, 48)

	b1, err := NewBuilder(32, 6, 1, testLogger())
	require.NoError(t, err)
	b4, err := NewBuilder(32, 6, 4, testLogger())
	require.NoError(t, err)

	r1, err := b1.Build(context.Background(), src)
	require.NoError(t, err)
	r4, err := b4.Build(context.Background(), src)
	require.NoError(t, err)

	for k := range r1.Levels {
		assert.Equal(t, r1.Levels[k].Pix, r4.Levels[k].Pix, "level %d", k)
	}
}

func TestResizeUniformStaysUniform(t *testing.T) {
	b, err := NewBuilder(16, 5, 1, testLogger())
	require.NoError(t, err)

	want := color.NRGBA{R: 200, G: 40, B: 90, A: 255}
	out := b.Resize(uniform(16, 16, want), 4)
	require.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())

	// wrapped edges mean no darkening from a clamped or zero border
	for i := 0; i < len(out.Pix); i += 4 {
		assert.InDelta(t, want.R, out.Pix[i], 1)
		assert.InDelta(t, want.G, out.Pix[i+1], 1)
		assert.InDelta(t, want.B, out.Pix[i+2], 1)
		assert.InDelta(t, want.A, out.Pix[i+3], 1)
	}
}

func TestResizeWrapsEdges(t *testing.T) {
	b, err := NewBuilder(16, 5, 1, testLogger())
	require.NoError(t, err)

	// left and right halves differ; a wrapped filter blends them at both
	// vertical edges, so column 0 and column 7 end up symmetric
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := uint8(0)
			if x >= 8 {
				v = 255
			}
			src.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	out := b.Resize(src, 8)
	left := out.NRGBAAt(0, 4).R
	right := out.NRGBAAt(7, 4).R
	assert.InDelta(t, 255-int(left), int(right), 2)
	assert.Greater(t, left, uint8(0), "left edge sees the wrapped right half")
}

func TestBuildCancelled(t *testing.T) {
	b, err := NewBuilder(32, 6, 2, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Build(ctx, gradient(32, 32))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToNRGBANormalizesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 9, 9))
	src.Set(5, 5, color.RGBA{255, 0, 0, 255})

	out := ToNRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(0, 0))
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, gradient(16, 8)))
	require.NoError(t, f.Close())

	img, format, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 16, img.Bounds().Dx())

	_, _, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.png")
	require.NoError(t, os.WriteFile(bogus, []byte("not an image"), 0o644))
	_, _, err = LoadImage(bogus)
	assert.Error(t, err)
}
