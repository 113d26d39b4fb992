//go:build !unix

package core

import (
	"rmate/internal/protocol"
	"rmate/util"
)

func detachProcess(*protocol.Conn, *util.Logger) error { return errNoDetach }
