package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"rmate/internal/document"
	"rmate/internal/metrics"
	"rmate/internal/protocol"
	"rmate/internal/transport"
	"rmate/util"
)

// DetachedEnv names the environment variable through which a detached
// child learns the descriptor number of the inherited editor socket.
const DetachedEnv = "RMATE_DETACHED_FD"

// errNoDetach is returned by detach when the socket cannot be handed to
// another process.
var errNoDetach = errors.New("connection cannot be handed to a background process")

// EditMode opens files in the remote editor and serves the editor's
// save and close commands.
type EditMode struct {
	Dialer  transport.Dialer
	Network string
	Address string
	Files   []*document.Descriptor
	Wait    bool
	Logger  *util.Logger
	Metrics *metrics.Collector

	// Detach hands the open connection to a background process.  It
	// defaults to re-executing rmate with the socket inherited.
	Detach func(conn *protocol.Conn) error
}

// Run connects, sends every file followed by the batch terminator, and
// then either serves commands until the editor closes the connection
// (Wait) or leaves that to a background process.
func (m *EditMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	conn, err := protocol.Dial(ctx, m.Dialer, m.Network, m.Address, m.Logger, m.Metrics)
	if err != nil {
		return err
	}

	if err := m.sendAll(ctx, conn); err != nil {
		conn.Close() //nolint:errcheck
		return err
	}

	if !m.Wait {
		detach := m.Detach
		if detach == nil {
			detach = func(c *protocol.Conn) error { return detachProcess(c, m.Logger) }
		}
		err := detach(conn)
		if err == nil {
			m.Logger.Verbose("editing continues in the background")
			return nil
		}
		m.Logger.Verbose("staying in the foreground: %v", err)
	}

	return m.serve(ctx, conn)
}

// sendAll writes every "open" frame and the batch terminator.  A
// cancelled ctx closes the socket, unblocking a write the editor is
// not reading.
func (m *EditMode) sendAll(ctx context.Context, conn *protocol.Conn) (err error) {
	stop := conn.Guard(ctx)
	defer func() {
		if !stop() {
			err = fmt.Errorf("send: %w", ctx.Err())
		}
	}()

	for _, f := range m.Files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := conn.SendOpen(f); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	if err := conn.Finish(); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (m *EditMode) serve(ctx context.Context, conn *protocol.Conn) error {
	d := protocol.NewDispatcher(conn, m.Files, m.Logger, m.Metrics)
	err := d.Run(ctx)
	m.Logger.Debug("session summary: %s", m.Metrics.JSON())
	return err
}

// ServeMode is the detached child's half of EditMode: it serves the
// editor's commands over a socket inherited from its parent.
type ServeMode struct {
	FD      uintptr
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Run adopts the inherited socket and serves until the editor closes it.
func (m *ServeMode) Run(ctx context.Context) error {
	f := os.NewFile(m.FD, "editor")
	if f == nil {
		return fmt.Errorf("invalid inherited descriptor %d", m.FD)
	}
	sock, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("inherited descriptor %d: %w", m.FD, err)
	}

	conn := protocol.Resume(sock, m.Logger, m.Metrics)
	err = protocol.NewDispatcher(conn, nil, m.Logger, m.Metrics).Run(ctx)
	m.Logger.Debug("session summary: %s", m.Metrics.JSON())
	return err
}

// ServeDetached runs a ServeMode over fd.
func ServeDetached(ctx context.Context, fd uintptr, logger *util.Logger) error {
	m := &ServeMode{FD: fd, Logger: logger, Metrics: metrics.New()}
	return m.Run(ctx)
}
