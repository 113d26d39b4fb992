package protocol

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"rmate/internal/document"
	ncerr "rmate/internal/errors"
)

// Block is the body of an inbound frame: its variables and the
// concatenation of all of its data sections.
type Block struct {
	Vars Variables
	Data []byte
}

// Token returns the frame's token variable.
func (b *Block) Token() string { return b.Vars.Get(KeyToken) }

// writeOpen buffers an "open" frame for d.  bufio.Writer errors are
// sticky, so only the last one needs checking.
func writeOpen(ch *Channel, d *document.Descriptor) error {
	ch.WriteLine(cmdOpen) //nolint:errcheck
	for _, v := range OpenVariables(d) {
		ch.WriteLine(v.Key + ": " + v.Value) //nolint:errcheck
	}
	ch.WriteLine(KeyData + ": " + strconv.Itoa(len(d.Payload))) //nolint:errcheck
	if len(d.Payload) > 0 {
		ch.WriteRaw(d.Payload) //nolint:errcheck
	}
	return ch.WriteLine("")
}

// ReadBlock reads "key: value" lines up to the blank terminator line.
// A "data: N" line pulls N raw bytes off the socket.  Lines that do not
// have the expected shape are logged and skipped.
//
// If the socket ends before the terminator the partial block is
// returned with io.ErrUnexpectedEOF.
func (c *Conn) ReadBlock() (*Block, error) {
	b := &Block{}
	for {
		line, err := c.ch.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return b, err
		}
		if line == "" {
			return b, nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			c.malformed(line, "missing ':' separator")
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if name != KeyData {
			b.Vars.Set(name, value)
			continue
		}

		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			c.malformed(line, "data length is not a byte count")
			continue
		}
		chunk, err := c.ch.ReadRaw(n)
		b.Data = append(b.Data, chunk...)
		if err != nil {
			return b, err
		}
	}
}

func (c *Conn) malformed(line, reason string) {
	fe := &ncerr.FrameError{Line: line, Reason: reason}
	c.metrics.MalformedFrame(fe.Error())
	c.logger.Warn("skipping line: %v", fe)
}
