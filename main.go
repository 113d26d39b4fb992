// rmate - edit files on a remote machine in a locally running editor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rmate/cmd"
	ncerr "rmate/internal/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "rmate: %v\n", err)
		cancel()
		os.Exit(ncerr.ExitCode(err))
	}
}
