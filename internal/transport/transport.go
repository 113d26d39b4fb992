// Package transport provides abstractions for reaching the editor's
// listener.  Transports handle how the socket is obtained (plain TCP,
// a local unix socket, or a connection forwarded through an SSH
// gateway) independent of the protocol spoken over it.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
