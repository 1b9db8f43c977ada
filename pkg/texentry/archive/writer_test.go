package archive

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
)

func testWriter() *Writer {
	return NewWriter(hclog.New(&hclog.LoggerOptions{
		Name:  "archive_test",
		Level: hclog.Trace,
	}))
}

// dirEntries lists file names in dir, so tests can assert no temp files were
// left behind.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "texture_a.dxmentry")

	w := testWriter()
	require.NoError(t, w.Write(path, []byte("entry bytes")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "entry bytes", string(got))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	}
	assert.Equal(t, []string{"texture_a.dxmentry", "texture_a.dxmentry" + LockSuffix}, dirEntries(t, filepath.Dir(path)))
}

func TestWriteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texture_a.dxmentry")
	require.NoError(t, os.WriteFile(path, []byte("old content that is longer"), 0o600))

	w := testWriter()
	w.FileMode = 0o640
	require.NoError(t, w.Write(path, []byte("new")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	}
}

func TestWriteRefusesLockedOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texture_a.dxmentry")

	held := flock.New(path + LockSuffix)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	err = testWriter().Write(path, []byte("data"))
	assert.ErrorIs(t, err, dxmerrors.ErrOutputLocked)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteInsufficientSpace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texture_a.dxmentry")

	w := testWriter()
	w.availableSpace = func(string) (int64, error) { return 10, nil }

	err := w.Write(path, make([]byte, 8))
	assert.ErrorIs(t, err, dxmerrors.ErrInsufficientSpace)
	assert.Empty(t, dirEntries(t, dir))
}

func TestWriteIgnoresUnknownSpace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texture_a.dxmentry")

	w := testWriter()
	w.availableSpace = func(string) (int64, error) { return 0, errors.New("statfs unsupported") }

	require.NoError(t, w.Write(path, []byte("data")))
}

func TestWriteFailureLeavesNothing(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("rename over a directory behaves differently on Windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "texture_a.dxmentry")

	// a non-empty directory at the destination makes the final rename fail
	require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0o755))

	err := testWriter().Write(path, []byte("data"))
	require.Error(t, err)
	assert.Equal(t, []string{"texture_a.dxmentry", "texture_a.dxmentry" + LockSuffix}, dirEntries(t, dir))
}

func TestWriteKeepsLockFileAcrossWriters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texture_a.dxmentry")
	w := testWriter()

	require.NoError(t, w.Write(path, []byte("first")))
	lockInfo, err := os.Stat(path + LockSuffix)
	require.NoError(t, err, "lock file stays after a write")

	// a holder of the surviving lock file still excludes the next writer
	held := flock.New(path + LockSuffix)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)

	err = w.Write(path, []byte("second"))
	assert.ErrorIs(t, err, dxmerrors.ErrOutputLocked)
	require.NoError(t, held.Unlock())

	require.NoError(t, w.Write(path, []byte("third")))
	after, err := os.Stat(path + LockSuffix)
	require.NoError(t, err)
	assert.True(t, os.SameFile(lockInfo, after), "writers share one lock inode")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "third", string(got))
}

func TestAvailableDiskSpace(t *testing.T) {
	avail, err := getAvailableDiskSpace(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, avail, int64(0))
}
