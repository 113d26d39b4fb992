package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "rmate/internal/errors"
	"rmate/util"
)

// ErrUnsupportedNetwork is returned by [SSHGateway.Dial] for networks
// that cannot be carried over an SSH channel.
var ErrUnsupportedNetwork = errors.New("network cannot be forwarded over ssh")

// SSHConfig describes the gateway host and how to authenticate to it.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration
}

// SSHGateway is a [Tunnel] over a single ssh.Client.  An editor port on
// the gateway side is reached with a direct-tcpip channel; an editor
// socket path with direct-streamlocal@openssh.com, which the gateway's
// sshd must permit (AllowStreamLocalForwarding).
type SSHGateway struct {
	cfg    *SSHConfig
	logger *util.Logger

	mu     sync.RWMutex
	client *ssh.Client // nil until Connect and after the link drops
}

var _ Tunnel = (*SSHGateway)(nil)

// NewSSHGateway fills in the port and timeout defaults and returns an
// unconnected gateway.
func NewSSHGateway(cfg *SSHConfig, logger *util.Logger) *SSHGateway {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	return &SSHGateway{cfg: cfg, logger: logger}
}

func (g *SSHGateway) addr() string { return util.FormatAddr(g.cfg.Host, g.cfg.Port) }

func (g *SSHGateway) fail(op string, err error) error {
	return &ncerr.GatewayError{Op: op, Host: g.cfg.Host, Port: g.cfg.Port, Err: err}
}

func (g *SSHGateway) clientConfig() (*ssh.ClientConfig, error) {
	auth, err := BuildAuthMethods(g.cfg)
	if err != nil {
		return nil, g.fail("auth", err)
	}
	hk, err := hostKeyCallback(g.cfg)
	if err != nil {
		return nil, g.fail("hostkey", err)
	}
	return &ssh.ClientConfig{
		User:            g.cfg.User,
		Auth:            auth,
		HostKeyCallback: hk,
		Timeout:         g.cfg.ConnTimeout,
		BannerCallback: func(msg string) error {
			g.logger.Verbose("gateway %s: %s", g.cfg.Host, strings.TrimSpace(msg))
			return nil
		},
	}, nil
}

// Connect dials the gateway and authenticates.  It is a no-op while the
// link is up and reconnects once it has dropped.  Cancelling ctx aborts
// a gateway that accepts TCP but stalls the SSH handshake.
func (g *SSHGateway) Connect(ctx context.Context) error {
	if g.IsAlive() {
		return nil
	}

	cc, err := g.clientConfig()
	if err != nil {
		return err
	}

	addr := g.addr()
	g.logger.Debug("SSH: dialing %s as %s", addr, g.cfg.User)

	d := net.Dialer{Timeout: g.cfg.ConnTimeout}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return g.fail("dial", err)
	}

	stop := context.AfterFunc(ctx, func() { raw.Close() }) //nolint:errcheck
	conn, chans, reqs, err := ssh.NewClientConn(raw, addr, cc)
	if !stop() {
		if err == nil {
			conn.Close() //nolint:errcheck
		}
		err = ctx.Err()
	}
	if err != nil {
		raw.Close() //nolint:errcheck
		return g.fail("handshake", err)
	}

	client := ssh.NewClient(conn, chans, reqs)
	g.mu.Lock()
	g.client = client
	g.mu.Unlock()

	go g.watch(client)
	return nil
}

// Dial opens a channel to address on the gateway side.  network is
// "tcp", "tcp4", "tcp6" or "unix".
func (g *SSHGateway) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6", "unix":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, network)
	}

	g.mu.RLock()
	client := g.client
	g.mu.RUnlock()
	if client == nil {
		return nil, ncerr.ErrNotConnected
	}

	g.logger.Debug("SSH: forwarding %s %s via %s", network, address, g.addr())
	conn, err := client.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("forward %s %s via %s: %w", network, address, g.cfg.Host, err)
	}
	return conn, nil
}

// Close drops the gateway link.  Channels already opened through it
// are closed with it.
func (g *SSHGateway) Close() error {
	g.mu.Lock()
	client := g.client
	g.client = nil
	g.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

// IsAlive reports whether the gateway link is up.
func (g *SSHGateway) IsAlive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.client != nil
}

// watch forgets client once its transport ends, unless Close or a
// reconnect has already replaced it.
func (g *SSHGateway) watch(client *ssh.Client) {
	err := client.Wait()

	g.mu.Lock()
	if g.client == client {
		g.client = nil
	}
	g.mu.Unlock()

	g.logger.Debug("SSH gateway %s closed: %v", g.addr(), err)
}
