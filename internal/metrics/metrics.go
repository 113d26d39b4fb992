// Package metrics provides lightweight, lock-free counters for tracking
// what happened during one editing session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for an rmate session.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	filesOpened     atomic.Int64
	savesWritten    atomic.Int64
	saveFailures    atomic.Int64
	closes          atomic.Int64
	malformedFrames atomic.Int64
	unknownCommands atomic.Int64
	bytesIn         atomic.Int64
	bytesOut        atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Outbound ─────────────────────────────────────────────────────────

// FileOpened records one "open" frame sent to the editor.
func (c *Collector) FileOpened() {
	if c == nil {
		return
	}
	c.filesOpened.Add(1)
}

// FilesOpened returns the number of "open" frames sent.
func (c *Collector) FilesOpened() int64 {
	if c == nil {
		return 0
	}
	return c.filesOpened.Load()
}

// ── Inbound commands ─────────────────────────────────────────────────

// SaveWritten records a save that reached disk.
func (c *Collector) SaveWritten() {
	if c == nil {
		return
	}
	c.savesWritten.Add(1)
}

// SavesWritten returns the number of successful saves.
func (c *Collector) SavesWritten() int64 {
	if c == nil {
		return 0
	}
	return c.savesWritten.Load()
}

// SaveFailed records a save that could not be written.
func (c *Collector) SaveFailed(msg string) {
	if c == nil {
		return
	}
	c.saveFailures.Add(1)
	c.recordError(msg)
}

// SaveFailures returns the number of failed saves.
func (c *Collector) SaveFailures() int64 {
	if c == nil {
		return 0
	}
	return c.saveFailures.Load()
}

// FileClosed records a "close" command.
func (c *Collector) FileClosed() {
	if c == nil {
		return
	}
	c.closes.Add(1)
}

// Closes returns the number of "close" commands seen.
func (c *Collector) Closes() int64 {
	if c == nil {
		return 0
	}
	return c.closes.Load()
}

// MalformedFrame records a response line that was skipped.
func (c *Collector) MalformedFrame(msg string) {
	if c == nil {
		return
	}
	c.malformedFrames.Add(1)
	c.recordError(msg)
}

// MalformedFrames returns the number of skipped response lines.
func (c *Collector) MalformedFrames() int64 {
	if c == nil {
		return 0
	}
	return c.malformedFrames.Load()
}

// UnknownCommand records a command the dispatcher ignored.
func (c *Collector) UnknownCommand() {
	if c == nil {
		return
	}
	c.unknownCommands.Add(1)
}

// UnknownCommands returns the number of ignored commands.
func (c *Collector) UnknownCommands() int64 {
	if c == nil {
		return 0
	}
	return c.unknownCommands.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

func (c *Collector) recordError(msg string) {
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	FilesOpened      int64  `json:"files_opened"`
	SavesWritten     int64  `json:"saves_written"`
	SaveFailures     int64  `json:"save_failures"`
	Closes           int64  `json:"closes"`
	MalformedFrames  int64  `json:"malformed_frames"`
	UnknownCommands  int64  `json:"unknown_commands"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:          time.Since(c.startTime).Truncate(time.Second).String(),
		FilesOpened:     c.filesOpened.Load(),
		SavesWritten:    c.savesWritten.Load(),
		SaveFailures:    c.saveFailures.Load(),
		Closes:          c.closes.Load(),
		MalformedFrames: c.malformedFrames.Load(),
		UnknownCommands: c.unknownCommands.Load(),
		BytesIn:         c.bytesIn.Load(),
		BytesOut:        c.bytesOut.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
