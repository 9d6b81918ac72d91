// Command dnsupd adds, replaces and deletes DNS records with RFC 2136
// dynamic updates and keeps the reverse PTR records in step.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.bluewillows.net/root/dnsupd/internal/config"
	"gitlab.bluewillows.net/root/dnsupd/internal/errdefs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newApp())
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dnsupd: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 2 for usage and
// configuration errors, 1 for everything else.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var verr *config.ValidationError
	if errdefs.IsParameter(err) || errors.As(err, &verr) || errors.Is(err, errUsage) {
		return 2
	}
	return 1
}
