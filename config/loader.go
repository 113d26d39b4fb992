package config

// loader.go - configuration loading from rc files and the environment.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. ~/.rmate.rc
//   4. /etc/rmate.rc
//   5. Defaults   (defaults.go)

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rmate/util"
)

// ── rc files ─────────────────────────────────────────────────────────

// rcFile is the YAML shape of /etc/rmate.rc and ~/.rmate.rc:
//
//	host: auto
//	port: 52698
//	unixsocket: ~/.rmate.socket
type rcFile struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	UnixSocket string `yaml:"unixsocket"`
}

// RCPaths returns the rc files to read, lowest precedence first.
func RCPaths() []string {
	paths := []string{SystemRCFile}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, UserRCName))
	}
	return paths
}

// LoadRCFiles overlays each file in paths onto cfg, in order.  Missing
// files are skipped.
func LoadRCFiles(cfg *Config, paths ...string) error {
	for _, p := range paths {
		if err := LoadRCFile(cfg, p); err != nil {
			return err
		}
	}
	return nil
}

// LoadRCFile overlays the values set in the YAML file at path onto
// cfg.  A missing file is not an error.
func LoadRCFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rc file %s: %w", path, err)
	}

	var rc rcFile
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return fmt.Errorf("rc file %s: %w", path, err)
	}

	if rc.Host != "" {
		cfg.Host = rc.Host
	}
	if rc.Port > 0 {
		cfg.Port = rc.Port
	}
	if rc.UnixSocket != "" {
		cfg.UnixSocket = ExpandPath(rc.UnixSocket)
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the RMATE_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("RMATE_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("RMATE_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("RMATE_UNIXSOCKET"); v != "" {
		cfg.UnixSocket = ExpandPath(v)
	}
	if v := envInt("RMATE_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}

	// SSH tunnel
	if v := os.Getenv("RMATE_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("RMATE_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = ExpandPath(v)
	}
	if envBool("RMATE_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("RMATE_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("RMATE_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("RMATE_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = ExpandPath(v)
	}

	// Output
	if v := envInt("RMATE_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ResolveHost replaces the "auto" host with the client address of the
// current SSH session, or DefaultHost outside of one.
func ResolveHost(cfg *Config) {
	if cfg.Host != AutoHost {
		return
	}
	cfg.Host = DefaultHost
	if h := util.SSHConnectionHost(os.Getenv("SSH_CONNECTION")); h != "" {
		cfg.Host = h
	}
}

// ExpandPath expands $VAR, ${VAR} and a leading "~/".
func ExpandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
