// Package document models one file sent to the editor: its bytes, where
// it lives on disk (if anywhere) and the hints shown by the editor.
package document

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// StdinToken is the wire token of a buffer that was read from stdin.
const StdinToken = "-"

// stdinLabel replaces the path in the default display name of a stdin
// buffer.
const stdinLabel = "untitled (stdin)"

// Descriptor is one file to transfer.
type Descriptor struct {
	// Payload is the file content.  It is only replaced after a
	// successful save from the editor.
	Payload []byte

	// Path is the filesystem path as given by the user.  Empty means
	// the data came from stdin and has no on-disk identity.
	Path string

	DisplayName string
	FileType    string // empty when absent
	Line        int    // 1-based selection hint; 0 when absent
}

// Options carries the per-file hints from the command line.
type Options struct {
	DisplayName string
	FileType    string
	Line        int
	Hostname    string // used for the default display name
}

// FromFile builds a Descriptor for path.  A file that does not exist
// yet yields an empty payload so the editor can create it.
func FromFile(path string, opts Options) (*Descriptor, error) {
	if path == "" || path == StdinToken {
		return nil, fmt.Errorf("document: %q is not a file path", path)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		data = nil
	default:
		return nil, fmt.Errorf("document: reading %s: %w", path, err)
	}

	return newDescriptor(data, path, opts), nil
}

// FromReader builds a path-less Descriptor from r (normally stdin).
func FromReader(r io.Reader, opts Options) (*Descriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("document: reading stdin: %w", err)
	}
	return newDescriptor(data, "", opts), nil
}

func newDescriptor(data []byte, path string, opts Options) *Descriptor {
	d := &Descriptor{
		Payload:     data,
		Path:        path,
		DisplayName: opts.DisplayName,
		FileType:    opts.FileType,
		Line:        opts.Line,
	}
	if d.DisplayName == "" {
		d.DisplayName = DefaultDisplayName(opts.Hostname, path)
	}
	return d
}

// DefaultDisplayName returns "<hostname>:<path>", or
// "<hostname>:untitled (stdin)" when path is empty.  An empty hostname
// falls back to os.Hostname.
func DefaultDisplayName(hostname, path string) string {
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	if path == "" {
		path = stdinLabel
	}
	return hostname + ":" + path
}

// Token returns the wire identifier: the path, or "-" for stdin.
func (d *Descriptor) Token() string {
	if d.Path == "" {
		return StdinToken
	}
	return d.Path
}

// HasPath reports whether the descriptor can be the target of a save.
func (d *Descriptor) HasPath() bool { return d.Path != "" }

// RealPath returns the absolute form of Path, or "" for stdin buffers.
func (d *Descriptor) RealPath() string {
	if d.Path == "" {
		return ""
	}
	abs, err := filepath.Abs(d.Path)
	if err != nil {
		return d.Path
	}
	return abs
}
