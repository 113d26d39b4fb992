package protocol

import (
	"bytes"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"rmate/util"
)

func quietLogger() *util.Logger {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}

func bufLogger(verbosity int) (*util.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := util.NewLogger(verbosity)
	l.SetOutput(&buf)
	l.SetTimestamps(false)
	return l, &buf
}

// fakeAddr satisfies net.Addr for scripted connections.
type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

// scriptedConn replays a fixed inbound byte stream, records everything
// written to it and counts Close calls.  Only the methods used by Conn
// are implemented.
type scriptedConn struct {
	net.Conn

	in  io.Reader
	mu  sync.Mutex
	out bytes.Buffer

	closes int
}

func newScriptedConn(inbound string) *scriptedConn {
	return &scriptedConn{in: strings.NewReader(inbound)}
}

func (c *scriptedConn) Read(p []byte) (int, error) { return c.in.Read(p) }

func (c *scriptedConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *scriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *scriptedConn) RemoteAddr() net.Addr { return fakeAddr("editor:52698") }

func (c *scriptedConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func (c *scriptedConn) written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

// startEditor runs handler on the first connection accepted by a
// loopback listener and returns the listener's address.  done is closed
// once handler returns.
func startEditor(t *testing.T, handler func(net.Conn)) (addr string, done <-chan struct{}) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	ch := make(chan struct{})
	go func() {
		defer close(ch)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
		handler(conn)
	}()
	return ln.Addr().String(), ch
}
