// Package archive writes finished entries to disk. A write either replaces
// the destination completely or leaves it untouched; no partial file is ever
// visible at the destination path.
package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/hashicorp/go-hclog"

	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
	"github.com/gibbed/Gibbed.DXM/pkg/utils/permissions"
)

// LockSuffix is appended to the destination path to name its lock file.
const LockSuffix = ".lock"

// Writer writes entry buffers atomically.
type Writer struct {
	FileMode os.FileMode
	DirMode  os.FileMode

	// SpaceMultiplier is the free-space headroom required over the entry size.
	SpaceMultiplier int64

	logger         hclog.Logger
	availableSpace func(path string) (int64, error)
}

// NewWriter returns a writer using the default file and directory modes.
func NewWriter(logger hclog.Logger) *Writer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Writer{
		FileMode:        permissions.DefaultFilePerms,
		DirMode:         permissions.DefaultDirPerms,
		SpaceMultiplier: 2,
		logger:          logger,
		availableSpace:  getAvailableDiskSpace,
	}
}

// Write stores data at path. The destination directory is created if
// missing, a lock on path+LockSuffix is held for the duration (the lock file
// itself is left in place), and the bytes
// land in a temp file next to the destination that is synced and renamed
// over it. On failure the temp file is removed and the destination keeps
// its previous content.
func (w *Writer) Write(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, w.DirMode); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.checkDiskSpace(dir, int64(len(data))); err != nil {
		return err
	}

	lock := flock.New(path + LockSuffix)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", path, dxmerrors.ErrOutputLocked)
	}
	// The lock file is never removed; a waiter may already hold its inode.
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			w.logger.Warn("⚠️ Failed to release output lock", "path", lock.Path(), "error", uerr)
		}
	}()
	w.logger.Trace("🔒 Output lock acquired", "lock", lock.Path())

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
				w.logger.Warn("⚠️ Failed to remove temp file", "path", tmpPath, "error", rmErr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync entry: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close entry: %w", err)
	}
	if err = os.Chmod(tmpPath, w.FileMode); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err = atomicReplace(tmpPath, path, w.logger); err != nil {
		return err
	}

	w.logger.Debug("💾 Entry written", "path", path, "size", humanize.Bytes(uint64(len(data))))
	return nil
}

// checkDiskSpace verifies there is room for the entry plus headroom.
func (w *Writer) checkDiskSpace(dir string, size int64) error {
	needed := size * max(w.SpaceMultiplier, 1)

	available, err := w.availableSpace(dir)
	if err != nil {
		w.logger.Warn("⚠️ Could not check disk space", "error", err)
		return nil // Don't fail if we can't check
	}

	w.logger.Trace("💾 Disk space check",
		"needed", humanize.Bytes(uint64(needed)),
		"available", humanize.Bytes(uint64(max(available, 0))))

	if available < needed {
		w.logger.Error("❌ Insufficient disk space",
			"needed", humanize.Bytes(uint64(needed)),
			"available", humanize.Bytes(uint64(max(available, 0))))
		return fmt.Errorf("need %s, have %s: %w",
			humanize.Bytes(uint64(needed)), humanize.Bytes(uint64(max(available, 0))),
			dxmerrors.ErrInsufficientSpace)
	}
	return nil
}
