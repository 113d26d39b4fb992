// Package atomicfile persists byte payloads without ever leaving a
// truncated or half-written target visible.
//
// The payload is written to a sibling temporary file which is then
// renamed over the target.  Readers of the target observe either the
// old content or the new content.
package atomicfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// TempSuffix is appended to the target path, repeatedly if needed, to
// form the temporary path.
const TempSuffix = "~"

// defaultPerm applies when the target does not exist yet.
const defaultPerm fs.FileMode = 0o644

// Swappable for tests that simulate a crash between write and rename,
// or a competing writer grabbing the temporary path.
var (
	rename        = os.Rename
	openExclusive = func(name string, perm fs.FileMode) (*os.File, error) {
		return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	}
)

// Write atomically replaces the file at path with data.
//
// If Write returns an error the target is unchanged.  A temporary file
// created by this call is removed on every exit path; a failure to
// remove it is ignored.  A temporary file created by anyone else is
// never touched.
func Write(path string, data []byte) (err error) {
	tmp := TempPath(path)

	perm := defaultPerm
	if fi, statErr := os.Stat(path); statErr == nil {
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("atomic write %s: not a regular file", path)
		}
		perm = fi.Mode().Perm()
	}

	f, err := openExclusive(tmp, perm)
	if err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}

	// The temp file is ours from here on; after a successful rename it
	// no longer exists under tmp.
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("atomic write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}

	if err := rename(tmp, path); err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}
	renamed = true
	return nil
}

// TempPath returns the first of path+"~", path+"~~", … that does not
// exist on disk.  A stale temporary file left by an earlier crash is
// never reused.
func TempPath(path string) string {
	candidate := path + TempSuffix
	for exists(candidate) {
		candidate += TempSuffix
	}
	return candidate
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
