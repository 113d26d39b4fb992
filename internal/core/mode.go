// Package core is the orchestration layer.  It composes a transport,
// the editor protocol and the files to edit into complete operational
// modes, and provides a builder that selects them from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  protocol  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of rmate.  Each mode owns
// its full lifecycle from connection establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}

var (
	_ Mode = (*EditMode)(nil)
	_ Mode = (*ServeMode)(nil)
)
