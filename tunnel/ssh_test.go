package tunnel

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "rmate/internal/errors"
	"rmate/util"
)

func TestNewSSHGateway_Defaults(t *testing.T) {
	cfg := &SSHConfig{Host: "gw"}
	g := NewSSHGateway(cfg, nil)
	if cfg.Port != 22 {
		t.Errorf("port = %d, want 22", cfg.Port)
	}
	if cfg.ConnTimeout == 0 {
		t.Error("connect timeout should default")
	}
	if g.IsAlive() {
		t.Error("gateway should not be alive before Connect")
	}
}

func TestSSHGateway_ForwardsToEditor(t *testing.T) {
	editor := startGreeter(t, "Test Editor 1.0\n")
	g := newTestGateway(t, startGateway(t))

	if err := g.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !g.IsAlive() {
		t.Fatal("gateway should be alive after Connect")
	}

	conn, err := g.Dial(context.Background(), "tcp", editor)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("reading greeting: %v", err)
	}
	if line != "Test Editor 1.0\n" {
		t.Errorf("greeting = %q", line)
	}

	if err := g.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if g.IsAlive() {
		t.Error("gateway should be down after Close")
	}
	if _, err := g.Dial(context.Background(), "tcp", editor); !errors.Is(err, ncerr.ErrNotConnected) {
		t.Errorf("Dial after Close = %v, want ErrNotConnected", err)
	}
}

func TestSSHGateway_ConnectIsIdempotent(t *testing.T) {
	g := newTestGateway(t, startGateway(t))

	if err := g.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := g.client
	if err := g.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if g.client != first {
		t.Error("Connect replaced a live client")
	}
}

func TestSSHGateway_DialNetworks(t *testing.T) {
	g := newTestGateway(t, "127.0.0.1:1")

	if _, err := g.Dial(context.Background(), "udp", "127.0.0.1:52698"); !errors.Is(err, ErrUnsupportedNetwork) {
		t.Errorf("udp: got %v, want ErrUnsupportedNetwork", err)
	}
	for _, network := range []string{"tcp", "tcp6", "unix"} {
		if _, err := g.Dial(context.Background(), network, "x"); !errors.Is(err, ncerr.ErrNotConnected) {
			t.Errorf("%s before Connect: got %v, want ErrNotConnected", network, err)
		}
	}
}

// TestSSHGateway_SocketForwardRefused covers a gateway whose sshd does
// not allow streamlocal forwarding: the dial fails but the link stays up.
func TestSSHGateway_SocketForwardRefused(t *testing.T) {
	g := newTestGateway(t, startGateway(t))
	if err := g.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := g.Dial(context.Background(), "unix", "/tmp/rmate.sock"); err == nil {
		t.Fatal("expected the gateway to refuse the socket channel")
	}
	if !g.IsAlive() {
		t.Error("a refused channel should not drop the gateway")
	}
}

func TestSSHGateway_ConnectCancelledDuringHandshake(t *testing.T) {
	// Accepts TCP but never speaks SSH.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		io.Copy(io.Discard, c) //nolint:errcheck
	}()

	g := newTestGateway(t, ln.Addr().String())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err = g.Connect(ctx)

	var ge *ncerr.GatewayError
	if !errors.As(err, &ge) || ge.Op != "handshake" {
		t.Fatalf("expected handshake gateway error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Connect returned after %s", elapsed)
	}
	if g.IsAlive() {
		t.Error("gateway should not be alive")
	}
}

func TestSSHGateway_ConnectUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	err = newTestGateway(t, addr).Connect(context.Background())
	var ge *ncerr.GatewayError
	if !errors.As(err, &ge) || ge.Op != "dial" {
		t.Fatalf("expected dial gateway error, got %v", err)
	}
}

// ── helpers ──────────────────────────────────────────────────────────

// newTestGateway returns a gateway for addr that authenticates with a
// throwaway key and skips host key checks.
func newTestGateway(t *testing.T, addr string) *SSHGateway {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath)

	logger := util.NewLogger(0)
	logger.SetOutput(io.Discard)

	g := NewSSHGateway(&SSHConfig{
		User:        "dev",
		Host:        host,
		Port:        port,
		KeyPath:     keyPath,
		ConnTimeout: 2 * time.Second,
	}, logger)
	t.Cleanup(func() { g.Close() })
	return g
}

// startGateway runs a loopback SSH server that accepts any public key
// and serves direct-tcpip channels by dialing the target itself.  Every
// other channel type, direct-streamlocal included, is refused.
func startGateway(t *testing.T) string {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	hostKey, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error) {
			return nil, nil
		},
		BannerCallback: func(ssh.ConnMetadata) string { return "rmate test gateway\n" },
	}
	cfg.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go serveGateway(c, cfg)
		}
	}()
	return ln.Addr().String()
}

func serveGateway(c net.Conn, cfg *ssh.ServerConfig) {
	defer c.Close()

	_, chans, reqs, err := ssh.NewServerConn(c, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "direct-tcpip" {
			nc.Reject(ssh.UnknownChannelType, "not permitted") //nolint:errcheck
			continue
		}
		var target struct {
			Host     string
			Port     uint32
			OrigHost string
			OrigPort uint32
		}
		if err := ssh.Unmarshal(nc.ExtraData(), &target); err != nil {
			nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
			continue
		}
		up, err := net.Dial("tcp", util.FormatAddr(target.Host, int(target.Port)))
		if err != nil {
			nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
			continue
		}
		ch, creqs, err := nc.Accept()
		if err != nil {
			up.Close()
			continue
		}
		go ssh.DiscardRequests(creqs)
		go func() {
			defer ch.Close()
			defer up.Close()
			go io.Copy(up, ch) //nolint:errcheck
			io.Copy(ch, up)    //nolint:errcheck
		}()
	}
}

// startGreeter is a stand-in editor: it writes greeting to each
// connection and keeps it open until the peer goes away.
func startGreeter(t *testing.T, greeting string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				c.SetDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
				io.WriteString(c, greeting)                   //nolint:errcheck
				io.Copy(io.Discard, c)                        //nolint:errcheck
			}()
		}
	}()
	return ln.Addr().String()
}
