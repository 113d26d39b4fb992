// Package errors provides domain-specific error types for rmate.
//
// Only connection establishment produces fatal errors.  Everything that
// goes wrong once the editor connection is open (a bad frame, a save
// that cannot be written) is described by a recoverable type so the
// dispatcher can log it and keep serving the session.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrClosed       = errors.New("connection is closed")
	ErrNotConnected = errors.New("not connected")
	ErrStdinBuffer  = errors.New("buffer was read from stdin and has no path on disk")
)

// ── Exit codes ───────────────────────────────────────────────────────

const (
	ExitOK         = 0
	ExitUsage      = 1
	ExitConnection = 2
)

// ── Connection errors ────────────────────────────────────────────────

// Kind classifies a fatal connection failure.
type Kind int

const (
	// KindUnreachable means the socket could not be connected.
	KindUnreachable Kind = iota + 1
	// KindNoGreeting means the editor accepted the connection but sent
	// no handshake line.
	KindNoGreeting
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindNoGreeting:
		return "no-greeting"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ConnectionError is returned when the editor connection cannot be
// established.  It is always fatal for the invocation.
type ConnectionError struct {
	Kind Kind
	Addr string // network address involved
	Err  error  // underlying error (may be nil)
}

func (e *ConnectionError) Error() string {
	s := fmt.Sprintf("connect %s: %s", e.Addr, e.Kind)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// GatewayError reports a failure of the optional SSH gateway used to
// reach the editor.
type GatewayError struct {
	Op   string // "auth", "hostkey", "dial", "handshake"
	Host string
	Port int
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ── Recoverable session errors ───────────────────────────────────────

// SaveError reports a "save" command whose payload could not be
// persisted.  The target file is left in its prior state.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("write-failed %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// FrameError reports a response line that does not have the
// "key: value" shape.
type FrameError struct {
	Line   string
	Reason string
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed-frame %q: %s", e.Line, e.Reason)
}

// ── Configuration errors ─────────────────────────────────────────────

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Unreachable wraps a dial failure.
func Unreachable(addr string, err error) *ConnectionError {
	return &ConnectionError{Kind: KindUnreachable, Addr: addr, Err: err}
}

// NoGreeting reports a connection on which no handshake line arrived.
// err may be nil when the remote simply closed the socket.
func NoGreeting(addr string, err error) *ConnectionError {
	return &ConnectionError{Kind: KindNoGreeting, Addr: addr, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsKind reports whether err is a ConnectionError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// ExitCode maps an error returned from the CLI to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ExitConnection
	}
	return ExitUsage
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use rmate/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
