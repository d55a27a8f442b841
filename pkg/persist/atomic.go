package persist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Permissions for state files and their directories.
const (
	filePerm = 0o644
	dirPerm  = 0o750
)

// tempPattern names in-flight files; they never carry a state file's canonical name.
const tempPattern = ".tmp-*"

// writeBufSize is the buffer size used when streaming encoded state to disk.
const writeBufSize = 64 * 1024

// WriteFileAtomic writes the output of write to path so that a concurrent or
// later reader observes either the previous content or the complete new
// content, never a partial file. The data is written to a temporary file in
// the same directory, fsynced, and renamed over path.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()

	fail := func(cause error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return cause
	}

	bw := bufio.NewWriterSize(tmp, writeBufSize)

	writeErr := write(bw)
	if writeErr != nil {
		return fail(writeErr)
	}

	flushErr := bw.Flush()
	if flushErr != nil {
		return fail(fmt.Errorf("flush temp file: %w", flushErr))
	}

	syncErr := tmp.Sync()
	if syncErr != nil {
		return fail(fmt.Errorf("sync temp file: %w", syncErr))
	}

	closeErr := tmp.Close()
	if closeErr != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("close temp file: %w", closeErr)
	}

	chmodErr := os.Chmod(tmpPath, filePerm)
	if chmodErr != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("chmod temp file: %w", chmodErr)
	}

	renameErr := os.Rename(tmpPath, path)
	if renameErr != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("rename temp file: %w", renameErr)
	}

	// Best effort: persist the rename itself.
	syncDir(dir)

	return nil
}

// RemoveFile deletes path. A missing file is not an error.
func RemoveFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}

	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}

	_ = d.Sync()
	_ = d.Close()
}
