package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"rmate/config"
	"rmate/internal/document"
	"rmate/util"
)

// Input describes the process's standard input.
type Input struct {
	Reader   io.Reader
	Terminal bool   // Reader is an interactive terminal
	Hostname string // for default display names; "" means os.Hostname

	// Prompt receives the "press ^D" hint when stdin is a terminal.
	Prompt io.Writer
}

// Documents turns the files named in cfg into descriptors, applying the
// -m/-t/-l hints by position.  "-" reads stdin, as does an empty file
// list when stdin is not a terminal.
func Documents(cfg *config.Config, in Input, logger *util.Logger) ([]*document.Descriptor, error) {
	paths := cfg.Files
	if len(paths) == 0 {
		if in.Terminal {
			return nil, errors.New("no files given (use --help for usage)")
		}
		paths = []string{document.StdinToken}
	}

	var (
		out      []*document.Descriptor
		sawStdin bool
	)
	for i, path := range paths {
		name, fileType, line := cfg.Hints(i)
		opts := document.Options{
			DisplayName: name,
			FileType:    fileType,
			Line:        line,
			Hostname:    in.Hostname,
		}

		if path == document.StdinToken {
			if sawStdin {
				return nil, errors.New("stdin (-) can only be given once")
			}
			sawStdin = true
			if in.Terminal && in.Prompt != nil {
				fmt.Fprintln(in.Prompt, "Reading from stdin, press ^D to stop")
			}
			logger.Verbose("reading from stdin")
			d, err := document.FromReader(in.Reader, opts)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
			continue
		}

		if err := checkEditable(path, cfg.Force); err != nil {
			return nil, err
		}
		d, err := document.FromFile(path, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// checkEditable rejects paths the editor could never save to.  A path
// that does not exist yet is fine; the first save creates it.
func checkEditable(path string, force bool) error {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	switch {
	case fi.IsDir():
		return fmt.Errorf("%s is a directory", path)
	case !fi.Mode().IsRegular():
		return fmt.Errorf("%s is not a regular file", path)
	}

	if force {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%s is not writable (use -f/--force to open it anyway)", path)
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
