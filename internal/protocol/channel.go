package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"rmate/internal/metrics"
)

// Channel reads a socket as a forward-only sequence of trimmed text
// lines, with raw reads for payload sections, and buffers writes.
type Channel struct {
	r       *bufio.Reader
	w       *bufio.Writer
	metrics *metrics.Collector
}

// NewChannel wraps rw.  m may be nil.
func NewChannel(rw io.ReadWriter, m *metrics.Collector) *Channel {
	return &Channel{
		r:       bufio.NewReader(rw),
		w:       bufio.NewWriter(rw),
		metrics: m,
	}
}

// ReadLine returns the next line with surrounding whitespace removed.
// Invalid UTF-8 is replaced with U+FFFD.  A final line without a
// terminator is returned before io.EOF.
func (c *Channel) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	c.metrics.BytesReceived(int64(len(line)))
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(strings.ToValidUTF8(line, "\uFFFD")), nil
}

// ReadRaw reads exactly n bytes, bypassing line decoding.  A short read
// returns the bytes received and io.ErrUnexpectedEOF.
func (c *Channel) ReadRaw(n int64) ([]byte, error) {
	var buf bytes.Buffer
	got, err := io.CopyN(&buf, c.r, n)
	c.metrics.BytesReceived(got)
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return buf.Bytes(), err
}

// WriteLine buffers s followed by a newline.
func (c *Channel) WriteLine(s string) error {
	n, err := c.w.WriteString(s + "\n")
	c.metrics.BytesSent(int64(n))
	return err
}

// WriteRaw buffers p verbatim.
func (c *Channel) WriteRaw(p []byte) error {
	n, err := c.w.Write(p)
	c.metrics.BytesSent(int64(n))
	return err
}

// Flush sends any buffered output.
func (c *Channel) Flush() error { return c.w.Flush() }
