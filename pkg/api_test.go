package pkg

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

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry/format_v1"
)

func testLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "pkg_test",
		Level: hclog.Trace,
	})
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestBuildEntryDerivesOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "brick.png")
	writeImage(t, input)
	outDir := filepath.Join(dir, "out")

	res, err := BuildEntry(context.Background(), input, "", BuildOptions{
		Identifier: "42",
		OutputDir:  outDir,
	}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "texture_brick.dxmentry"), res.OutputPath)
	assert.Equal(t, "042", res.Identifier.String())
	assert.Equal(t, "texture_brick", res.EntryName)

	report, err := VerifyEntryWithLogger(res.OutputPath, testLogger())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, res.Identifier, report.Identifier)
}

func TestBuildEntryDefaultIdentifier(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "a.png")
	writeImage(t, input)

	res, err := BuildEntry(context.Background(), input, filepath.Join(dir, "a.dxmentry"), BuildOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "013", res.Identifier.String())
}

func TestBuildEntryRejectsIdentifierFirst(t *testing.T) {
	dir := t.TempDir()

	_, err := BuildEntry(context.Background(), filepath.Join(dir, "missing.png"), "", BuildOptions{Identifier: "x"}, nil)
	assert.ErrorIs(t, err, dxmerrors.ErrIdentifierFormat)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVerifyEntryReportsRenamedEntry(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "a.png")
	writeImage(t, input)
	built := filepath.Join(dir, "first.dxmentry")

	_, err := BuildEntry(context.Background(), input, built, BuildOptions{Identifier: "1"}, nil)
	require.NoError(t, err)

	renamed := filepath.Join(dir, "second.dxmentry")
	require.NoError(t, os.Rename(built, renamed))

	report, err := VerifyEntryWithLogger(renamed, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, dxmerrors.ErrDigestMismatch)
	require.NotNil(t, report)
	assert.False(t, report.OK())
}

func TestVerifyEntryMissingFile(t *testing.T) {
	report, err := VerifyEntryWithLogger(filepath.Join(t.TempDir(), "none"), nil)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDescribeLayout(t *testing.T) {
	schema, layout, err := DescribeLayout()
	require.NoError(t, err)
	assert.Equal(t, 1398832, layout.Size())

	seg, err := layout.Segment(format_v1.Index)
	require.NoError(t, err)
	assert.Equal(t, 1398512, seg.Offset)
	assert.Equal(t, 1398128, schema.Mip.PayloadSize)
}
