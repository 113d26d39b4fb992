package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, rc file parsing, and environment variable loading.

const (
	// DefaultHost is where the editor listener is expected.
	DefaultHost = "localhost"

	// DefaultPort is the port TextMate, Sublime and VS Code extensions
	// listen on.
	DefaultPort = 52698

	// AutoHost asks for the host to be taken from $SSH_CONNECTION.
	AutoHost = "auto"

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// SystemRCFile is read before the per-user rc file.
	SystemRCFile = "/etc/rmate.rc"

	// UserRCName is the rc file name inside $HOME.
	UserRCName = ".rmate.rc"
)
