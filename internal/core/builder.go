package core

import (
	"os"

	"rmate/config"
	"rmate/internal/document"
	"rmate/internal/metrics"
	"rmate/internal/transport"
	"rmate/tunnel"
	"rmate/util"
)

// Build constructs the EditMode that sends files to the editor
// described by cfg.
func Build(cfg *config.Config, files []*document.Descriptor, logger *util.Logger) (*EditMode, error) {
	network, address := endpoint(cfg, logger)

	return &EditMode{
		Dialer:  buildDialer(cfg, logger),
		Network: network,
		Address: address,
		Files:   files,
		Wait:    cfg.Wait,
		Logger:  logger,
		Metrics: metrics.New(),
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// endpoint picks the unix socket when one is configured and present,
// and the TCP host:port otherwise.  Tunnelled connections always use
// TCP on the gateway side.
func endpoint(cfg *config.Config, logger *util.Logger) (network, address string) {
	if cfg.UnixSocket != "" {
		switch {
		case cfg.TunnelEnabled:
			logger.Verbose("ignoring unix socket %s with --tunnel", cfg.UnixSocket)
		case isSocket(cfg.UnixSocket):
			return "unix", cfg.UnixSocket
		default:
			logger.Verbose("unix socket %s not found, using tcp", cfg.UnixSocket)
		}
	}
	return "tcp", cfg.Address()
}

func isSocket(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode()&os.ModeSocket != 0
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger.Named("ssh"))
	}

	return &transport.NetDialer{Timeout: cfg.Timeout}
}
