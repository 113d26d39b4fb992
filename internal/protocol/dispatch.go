package protocol

import (
	"context"
	"errors"
	"io"

	"rmate/internal/atomicfile"
	"rmate/internal/document"
	ncerr "rmate/internal/errors"
	"rmate/internal/metrics"
	"rmate/util"
)

// WriteFunc persists a saved payload.
type WriteFunc func(path string, data []byte) error

// Dispatcher serves "save" and "close" commands from the editor until
// the editor closes the socket.
type Dispatcher struct {
	Conn    *Conn
	Write   WriteFunc // defaults to atomicfile.Write
	Logger  *util.Logger
	Metrics *metrics.Collector

	// files maps tokens to the descriptors sent in this session.
	files map[string]*document.Descriptor
}

// NewDispatcher returns a Dispatcher for conn that tracks files by token.
func NewDispatcher(conn *Conn, files []*document.Descriptor,
	logger *util.Logger, m *metrics.Collector) *Dispatcher {

	d := &Dispatcher{
		Conn:    conn,
		Write:   atomicfile.Write,
		Logger:  logger,
		Metrics: m,
		files:   make(map[string]*document.Descriptor, len(files)),
	}
	for _, f := range files {
		d.files[f.Token()] = f
	}
	return d
}

// Run reads commands until the socket is exhausted, then closes the
// connection.  Cancelling ctx closes the socket, which ends the loop.
//
// Problems inside the session (unwritable files, bad frames, unknown
// commands) are logged and never end the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.Conn.Close() //nolint:errcheck

	stop := context.AfterFunc(ctx, func() { d.Conn.Close() }) //nolint:errcheck
	defer stop()

	d.Logger.Verbose("waiting for commands from %s", d.Conn.RemoteAddr())

	for {
		line, err := d.Conn.ReadLine()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				d.Logger.Verbose("editor closed the connection")
			case ctx.Err() != nil:
				d.Logger.Verbose("interrupted: %v", ctx.Err())
			default:
				d.Logger.Warn("connection lost: %v", err)
			}
			return nil
		}
		if line == "" {
			continue
		}

		switch ParseCommand(line) {
		case CommandSave:
			d.handleSave()
		case CommandClose:
			d.handleClose()
		default:
			d.Metrics.UnknownCommand()
			d.Logger.Debug("ignoring unrecognized command %q", line)
		}
	}
}

func (d *Dispatcher) handleSave() {
	blk, err := d.Conn.ReadBlock()
	if err != nil {
		d.Logger.Warn("save: incomplete frame: %v", err)
		return
	}

	token := blk.Token()
	if err := d.save(token, blk.Data); err != nil {
		d.Metrics.SaveFailed(err.Error())
		d.Logger.Error("%v", err)
		return
	}

	d.Metrics.SaveWritten()
	d.Logger.Info("saved %s (%d bytes)", token, len(blk.Data))
	if f, ok := d.files[token]; ok {
		f.Payload = blk.Data
	}
}

// save resolves token to a path and writes data there.
func (d *Dispatcher) save(token string, data []byte) error {
	switch token {
	case "":
		return &ncerr.SaveError{Path: token, Err: errors.New("frame has no token")}
	case document.StdinToken:
		return &ncerr.SaveError{Path: token, Err: ncerr.ErrStdinBuffer}
	}

	write := d.Write
	if write == nil {
		write = atomicfile.Write
	}
	if err := write(token, data); err != nil {
		return &ncerr.SaveError{Path: token, Err: err}
	}
	return nil
}

func (d *Dispatcher) handleClose() {
	blk, err := d.Conn.ReadBlock()
	if err != nil {
		d.Logger.Warn("close: incomplete frame: %v", err)
		return
	}

	d.Metrics.FileClosed()
	d.Logger.Info("closed %s", blk.Token())
}

// File returns the descriptor tracked under token.
func (d *Dispatcher) File(token string) (*document.Descriptor, bool) {
	f, ok := d.files[token]
	return f, ok
}
