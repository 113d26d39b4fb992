// Package cmd wires up the CLI flags and dispatches to the edit core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"

	"rmate/config"
	"rmate/internal/core"
	"rmate/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X rmate/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdio is the process's standard streams, replaceable in tests.
type stdio struct {
	In    io.Reader
	InTTY bool
	Out   io.Writer
	Err   io.Writer
}

// Execute parses args and runs rmate.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, stdio{
		In:    os.Stdin,
		InTTY: util.IsTerminal(os.Stdin.Fd()),
		Out:   os.Stdout,
		Err:   os.Stderr,
	})
}

func run(ctx context.Context, args []string, std stdio) error {
	// ── layered defaults ─────────────────────────────────────────
	cfg := config.Default()
	if err := config.LoadRCFiles(cfg, config.RCPaths()...); err != nil {
		return err
	}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("rmate", flag.ContinueOnError)
	fs.SetOutput(std.Err)

	// ── editor ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Host, "host", "H", cfg.Host, `Editor host ("auto" uses $SSH_CONNECTION)`)
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Editor port")
	fs.StringVar(&cfg.UnixSocket, "unix-socket", cfg.UnixSocket, "Editor unix socket, used when it exists")

	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVar(&timeoutSec, "timeout", timeoutSec, "Connect timeout in seconds")

	// ── files ────────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Wait, "wait", "w", false, "Wait for the file to be closed by the editor")
	fs.BoolVarP(&cfg.Force, "force", "f", false, "Open even if the file is not writable")
	fs.IntSliceVarP(&cfg.Lines, "line", "l", nil, "Place caret on line number after loading (per file)")
	fs.StringArrayVarP(&cfg.Names, "name", "m", nil, "Display name shown in the editor (per file)")
	fs.StringArrayVarP(&cfg.Types, "type", "t", nil, "File type for syntax highlighting (per file)")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the editor through SSH [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate configuration and files, then exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(std.Err, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(std.Err, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(std.Out, "rmate %s\n", version)
		return nil
	}

	cfg.Timeout = time.Duration(timeoutSec) * time.Second
	cfg.Files = fs.Args()

	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(std.Err)

	// ── detached child ───────────────────────────────────────────
	if v := os.Getenv(core.DetachedEnv); v != "" {
		fd, err := strconv.Atoi(v)
		if err != nil || fd < 0 {
			return fmt.Errorf("%s: invalid descriptor %q", core.DetachedEnv, v)
		}
		return core.ServeDetached(ctx, uintptr(fd), logger)
	}

	// ── resolve and validate ─────────────────────────────────────
	config.ResolveHost(cfg)
	if err := cfg.ResolveTunnel(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	files, err := core.Documents(cfg, core.Input{
		Reader:   std.In,
		Terminal: std.InTTY,
		Prompt:   std.Err,
	}, logger)
	if err != nil {
		return err
	}

	mode, err := core.Build(cfg, files, logger)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		fmt.Fprintf(std.Out, "editor: %s %s\n", mode.Network, mode.Address)
		for _, f := range files {
			fmt.Fprintf(std.Out, "open: %s (%d bytes) as %q\n", f.Token(), len(f.Payload), f.DisplayName)
		}
		return nil
	}

	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `rmate %s

Edit files on this machine in an editor running elsewhere.  The editor
must be listening for rmate connections (TextMate, Sublime Text rsub,
VS Code Remote VSCode, ...).

Usage:
  rmate [options] <file> [file...]         Open files
  command | rmate [options]                Open stdin
  rmate [options] -                        Open stdin explicitly

Options:
`, version)
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintf(w, `
Configuration is read from %s and ~/%s (YAML: host, port,
unixsocket), then RMATE_HOST, RMATE_PORT and RMATE_UNIXSOCKET, then flags.

Examples:
  rmate /etc/hosts                         Edit a file
  rmate -w -l 42 main.go                   Wait, caret on line 42
  rmate -m notes -t markdown -             Name and type a stdin buffer
  ssh -R 52698:localhost:52698 server      Forward the editor port first
`, config.SystemRCFile, config.UserRCName)
}
