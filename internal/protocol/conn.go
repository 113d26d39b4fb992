package protocol

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"rmate/internal/document"
	ncerr "rmate/internal/errors"
	"rmate/internal/metrics"
	"rmate/internal/transport"
	"rmate/util"
)

// State is the lifecycle stage of a Conn.
type State int

const (
	StateConnecting State = iota
	StateHandshaking
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Conn is one editor connection.  It owns the socket for its whole
// lifetime and closes it exactly once.
type Conn struct {
	sock    net.Conn
	ch      *Channel
	addr    string
	logger  *util.Logger
	metrics *metrics.Collector

	mu    sync.Mutex
	state State

	// Greeting is the handshake line sent by the editor.
	Greeting string
}

// Dial connects to the editor through d and performs the handshake.
// Failures are *errors.ConnectionError values.  Cancelling ctx while
// the greeting is pending closes the socket and fails with a
// no-greeting error wrapping ctx.Err().
func Dial(ctx context.Context, d transport.Dialer, network, address string,
	logger *util.Logger, m *metrics.Collector) (*Conn, error) {

	logger.Verbose("connecting to %s (%s)", address, network)

	sock, err := d.Dial(ctx, network, address)
	if err != nil {
		return nil, ncerr.Unreachable(address, err)
	}

	stop := context.AfterFunc(ctx, func() { sock.Close() }) //nolint:errcheck
	c, err := Handshake(sock, logger, m)
	if !stop() {
		// ctx fired; the socket is gone even if a greeting slipped in.
		if c != nil {
			c.Close() //nolint:errcheck
		}
		return nil, ncerr.NoGreeting(address, ctx.Err())
	}
	return c, err
}

// Guard closes the underlying socket if ctx is cancelled before the
// returned stop function is called, failing any blocked read or write.
// The Conn itself stays open until Close.  stop reports whether the
// socket was left alone.
func (c *Conn) Guard(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() { c.sock.Close() }) //nolint:errcheck
}

// Handshake takes ownership of an already-connected socket and waits
// for the editor's greeting line.  If none arrives the socket is closed
// and a no-greeting ConnectionError is returned.
func Handshake(sock net.Conn, logger *util.Logger, m *metrics.Collector) (*Conn, error) {
	c := newConn(sock, logger, m, StateHandshaking)

	line, err := c.ch.ReadLine()
	if err != nil || line == "" {
		c.Close() //nolint:errcheck
		if err == io.EOF {
			err = nil
		}
		return nil, ncerr.NoGreeting(c.addr, err)
	}

	c.Greeting = line
	c.setState(StateOpen)
	c.logger.Info("connected to %s: %s", c.addr, line)
	return c, nil
}

// Resume wraps a socket whose handshake already happened elsewhere
// (the detached child inherits such a socket).
func Resume(sock net.Conn, logger *util.Logger, m *metrics.Collector) *Conn {
	return newConn(sock, logger, m, StateOpen)
}

func newConn(sock net.Conn, logger *util.Logger, m *metrics.Collector, st State) *Conn {
	addr := ""
	if ra := sock.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &Conn{
		sock:    sock,
		ch:      NewChannel(sock, m),
		addr:    addr,
		logger:  logger,
		metrics: m,
		state:   st,
	}
}

// State returns the current lifecycle stage.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Socket exposes the underlying connection, e.g. to hand it to a
// detached process.
func (c *Conn) Socket() net.Conn { return c.sock }

// RemoteAddr returns the editor's address.
func (c *Conn) RemoteAddr() string { return c.addr }

// SendOpen writes one "open" frame for d.  It panics if the connection
// has been closed.
func (c *Conn) SendOpen(d *document.Descriptor) error {
	c.mustBeOpen("send")

	if err := writeOpen(c.ch, d); err != nil {
		return fmt.Errorf("open %s: %w", d.Token(), err)
	}
	c.metrics.FileOpened()
	c.logger.Verbose("sent %s (%d bytes)", d.DisplayName, len(d.Payload))
	return nil
}

// Finish terminates the batch of "open" frames and flushes.  It panics
// if the connection has been closed.
func (c *Conn) Finish() error {
	c.mustBeOpen("finish")

	if err := c.ch.WriteLine(batchEnd); err != nil {
		return err
	}
	return c.ch.Flush()
}

// ReadLine returns the next inbound line; io.EOF once the editor has
// closed the socket.
func (c *Conn) ReadLine() (string, error) { return c.ch.ReadLine() }

// Close flushes pending output, shuts down both directions of the
// socket and closes it.  Errors are swallowed; calling Close again is a
// no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed

	c.ch.Flush() //nolint:errcheck
	if hc, ok := c.sock.(halfCloser); ok {
		hc.CloseWrite() //nolint:errcheck
		hc.CloseRead()  //nolint:errcheck
	}
	c.sock.Close() //nolint:errcheck

	c.logger.Debug("connection to %s closed", c.addr)
	return nil
}

// Release closes this process's handle on the socket without shutting
// the connection down, so another process holding a duplicate of the
// descriptor keeps the session.  The Conn is closed afterwards.
func (c *Conn) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed

	if err := c.ch.Flush(); err != nil {
		c.sock.Close() //nolint:errcheck
		return err
	}
	return c.sock.Close()
}

func (c *Conn) mustBeOpen(op string) {
	if c.State() == StateClosed {
		panic(fmt.Sprintf("protocol: %s: %v", op, ncerr.ErrClosed))
	}
}

// halfCloser is implemented by *net.TCPConn and *net.UnixConn.
type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}
