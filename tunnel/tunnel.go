// Package tunnel provides an SSH gateway, backed by
// golang.org/x/crypto/ssh, through which the editor's listener can be
// reached when it is not directly routable.
package tunnel

import (
	"context"
	"net"
)

// Tunnel abstracts a gateway through which connections are forwarded.
type Tunnel interface {
	// Connect establishes the tunnel to the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the tunnel.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the tunnel and frees resources.
	Close() error

	// IsAlive reports whether the underlying connection is still up.
	IsAlive() bool
}
