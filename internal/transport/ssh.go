package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"rmate/tunnel"
	"rmate/util"
)

// SSHDialer reaches the editor's listener through an SSH gateway, for
// editors that listen on a host other than the one the user came from.
// The tunnel is connected lazily on the first Dial and torn down on
// Close.
type SSHDialer struct {
	tun       tunnel.Tunnel
	config    *tunnel.SSHConfig
	logger    *util.Logger
	mu        sync.Mutex
	connected bool
}

// NewSSHDialer creates a dialer that forwards connections through an
// SSH gateway.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	return &SSHDialer{
		tun:    tunnel.NewSSHGateway(cfg, logger),
		config: cfg,
		logger: logger,
	}
}

func (d *SSHDialer) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}

	d.logger.Verbose("opening SSH gateway %s@%s:%d",
		d.config.User, d.config.Host, d.config.Port)

	if err := d.tun.Connect(ctx); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	d.connected = true
	return nil
}

// Dial connects to address ("tcp" host:port or "unix" socket path on
// the gateway side), establishing the gateway on first use.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	return d.tun.Dial(ctx, network, address)
}

// Close tears down the SSH gateway connection.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}
	d.connected = false
	return d.tun.Close()
}
