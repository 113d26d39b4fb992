package util

import (
	"net"
	"strconv"
	"strings"
)

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SSHConnectionHost extracts the client address from an SSH_CONNECTION
// value ("client-ip client-port server-ip server-port").  It returns ""
// when the value is empty or malformed.
func SSHConnectionHost(sshConnection string) string {
	fields := strings.Fields(sshConnection)
	if len(fields) == 0 {
		return ""
	}
	if net.ParseIP(fields[0]) == nil {
		return ""
	}
	return fields[0]
}
