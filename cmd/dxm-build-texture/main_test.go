package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gibbed/Gibbed.DXM/pkg/texentry"
	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// isolateEnv keeps user config and environment out of the run.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("APPDATA", filepath.Join(dir, "appdata"))
	t.Setenv("DXM_CONFIG", "")
	t.Setenv("DXM_OUTPUT_DIR", "")
	t.Setenv("DXM_WORKERS", "")
	t.Setenv("DXM_LOG_LEVEL", "")
	t.Setenv("DXM_JSON_LOG", "")
	return dir
}

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 90, A: 255})
		}
	}
	path := filepath.Join(dir, "tile.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUsageErrors(t *testing.T) {
	isolateEnv(t)

	testCases := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"too many arguments", []string{"a.png", "b.dxmentry", "c"}},
		{"unknown flag", []string{"--bogus", "a.png"}},
		{"layout with argument", []string{"layout", "extra"}},
		{"verify without entry", []string{"verify"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, tc.args...)
			assert.Equal(t, texentry.ExitInvalidArgs, res.code)
			assert.Contains(t, res.stderr, "Usage:")
		})
	}
}

func TestBadIdentifierDoesNoIO(t *testing.T) {
	dir := isolateEnv(t)
	input := writeSource(t, dir)
	before := dirEntries(t, dir)

	for _, id := range []string{"abc", "1000", "-1", "+7", "12x"} {
		t.Run(id, func(t *testing.T) {
			res := runCLI(t, "-i", id, input)
			assert.Equal(t, texentry.ExitInvalidArgs, res.code)
			assert.Contains(t, res.stderr, "identifier")
			assert.Equal(t, before, dirEntries(t, dir))
		})
	}
}

func TestMissingInput(t *testing.T) {
	dir := isolateEnv(t)

	res := runCLI(t, filepath.Join(dir, "nope.png"))
	assert.Equal(t, texentry.ExitIOError, res.code)
}

func TestMissingConfigFile(t *testing.T) {
	dir := isolateEnv(t)
	input := writeSource(t, dir)

	res := runCLI(t, "--config", filepath.Join(dir, "missing.toml"), input)
	assert.Equal(t, texentry.ExitInvalidArgs, res.code)
}

func TestBuildAndVerify(t *testing.T) {
	dir := isolateEnv(t)
	input := writeSource(t, dir)

	res := runCLI(t, "-i", "7", "--workers", "2", input)
	require.Equal(t, texentry.ExitSuccess, res.code, res.stderr)

	output := filepath.Join(dir, "texture_tile.dxmentry")
	assert.Contains(t, res.stdout, output)

	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.EqualValues(t, 1398832, info.Size())

	res = runCLI(t, "verify", output)
	assert.Equal(t, texentry.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "007")
	assert.Contains(t, res.stdout, "ok")
	assert.Contains(t, res.stdout, "sha256:")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	data[300000] ^= 0xFF
	require.NoError(t, os.WriteFile(output, data, 0o644))

	res = runCLI(t, "verify", output)
	assert.Equal(t, texentry.ExitFormatError, res.code)
	assert.Contains(t, res.stdout, "FAILED")
}

func TestBuildExplicitOutputAndConfig(t *testing.T) {
	dir := isolateEnv(t)
	input := writeSource(t, dir)

	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[output]\nfile_mode = \"0600\"\n[logging]\nlevel = \"error\"\n"), 0o644))

	output := filepath.Join(dir, "out", "custom.dxmentry")
	res := runCLI(t, "--config", cfgPath, input, output)
	require.Equal(t, texentry.ExitSuccess, res.code, res.stderr)

	info, err := os.Stat(output)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestLayoutCommand(t *testing.T) {
	isolateEnv(t)

	res := runCLI(t, "layout")
	require.Equal(t, texentry.ExitSuccess, res.code, res.stderr)
	for _, want := range []string{"AssetHeader", "DataHeader", "Payload", "ExportBody", "Index", "overlaid", "identifier", "bc3", "1398128"} {
		assert.Contains(t, res.stdout, want)
	}
}

func TestCodecRows(t *testing.T) {
	rows := codecRows(1024, 11, 1398128)
	assert.Equal(t, [][]string{
		{"bc1", "71", "8", "699064", "no"},
		{"bc2", "74", "16", "1398128", "yes"},
		{"bc3", "77", "16", "1398128", "yes"},
	}, rows)
}

func TestVersionFlag(t *testing.T) {
	isolateEnv(t)

	res := runCLI(t, "--version")
	assert.Equal(t, texentry.ExitSuccess, res.code)
	assert.Contains(t, res.stdout, "dxm-build-texture "+version)
}

func TestExitCode(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{nil, texentry.ExitSuccess},
		{fmt.Errorf("x: %w", dxmerrors.ErrUsage), texentry.ExitInvalidArgs},
		{fmt.Errorf("x: %w", dxmerrors.ErrIdentifierFormat), texentry.ExitInvalidArgs},
		{fmt.Errorf("x: %w", dxmerrors.ErrIdentifierRange), texentry.ExitInvalidArgs},
		{fmt.Errorf("x: %w", dxmerrors.ErrInvariantViolation), texentry.ExitFormatError},
		{fmt.Errorf("x: %w", dxmerrors.ErrPlanOrder), texentry.ExitFormatError},
		{fmt.Errorf("x: %w", dxmerrors.ErrTemplateChecksum), texentry.ExitFormatError},
		{errors.Join(errors.New("a"), dxmerrors.ErrDigestMismatch), texentry.ExitFormatError},
		{fmt.Errorf("x: %w", dxmerrors.ErrOutputLocked), texentry.ExitIOError},
		{fmt.Errorf("x: %w", os.ErrNotExist), texentry.ExitIOError},
	}
	for _, tc := range testCases {
		name := "nil"
		if tc.err != nil {
			name = tc.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}
