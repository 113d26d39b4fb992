// Package config defines the runtime configuration for rmate and the
// layered sources it is assembled from.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	ncerr "rmate/internal/errors"
	"rmate/util"
)

// Config holds every tuneable for a single rmate invocation.  The core
// only ever sees the final, merged record.
type Config struct {
	// ── Editor listener ──────────────────────────────────────────────
	Host       string
	Port       int
	UnixSocket string        // preferred over Host/Port when it exists
	Timeout    time.Duration // connect timeout only

	// ── Files ────────────────────────────────────────────────────────
	Files []string // positional arguments; "-" is stdin
	Names []string // -m, applied to Files by position
	Types []string // -t, applied to Files by position
	Lines []int    // -l, applied to Files by position
	Wait  bool
	Force bool

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw [user@]host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Host:    DefaultHost,
		Port:    DefaultPort,
		Timeout: DefaultConnTimeout,
	}
}

// Address returns the TCP address of the editor listener.
func (c *Config) Address() string { return util.FormatAddr(c.Host, c.Port) }

// Hints returns the display name, file type and line given for the
// i-th file.  Missing positions yield zero values.
func (c *Config) Hints(i int) (name, fileType string, line int) {
	if i < len(c.Names) {
		name = c.Names[i]
	}
	if i < len(c.Types) {
		fileType = c.Types[i]
	}
	if i < len(c.Lines) {
		line = c.Lines[i]
	}
	return name, fileType, line
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:@]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ResolveTunnel parses TunnelSpec into the Tunnel* fields.  The user
// defaults to $USER.  It is a no-op when no spec is set.
func (c *Config) ResolveTunnel() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "example: -T admin@bastion.example.com:2222",
		}
	}
	if user == "" {
		user = os.Getenv("USER")
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Failures are *errors.ConfigError values.
func (c *Config) Validate() error {
	if c.Host == "" && c.UnixSocket == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "no editor host configured",
			Hint:    "set --host, RMATE_HOST or host: in ~/.rmate.rc",
		}
	}
	if c.UnixSocket == "" && (c.Port < 1 || c.Port > 65535) {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    fmt.Sprintf("the editor listens on %d by default", DefaultPort),
		}
	}
	if c.Timeout < 0 {
		return &ncerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}

	for _, l := range c.Lines {
		if l < 0 {
			return &ncerr.ConfigError{
				Field:   "line",
				Value:   l,
				Message: "line numbers start at 1",
			}
		}
	}

	slots := len(c.Files)
	if slots == 0 {
		slots = 1 // stdin
	}
	for _, h := range []struct {
		field string
		n     int
	}{{"name", len(c.Names)}, {"type", len(c.Types)}, {"line", len(c.Lines)}} {
		if h.n > slots {
			return &ncerr.ConfigError{
				Field:   h.field,
				Message: fmt.Sprintf("given %d times for %d file(s)", h.n, slots),
				Hint:    "-m, -t and -l apply to the files in the order they are listed",
			}
		}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	return nil
}
