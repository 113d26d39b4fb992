package util

import "github.com/mattn/go-isatty"

// IsTerminal reports whether fd refers to a terminal, including Cygwin
// and MSYS ptys.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
