// Command storefront drives the storefront client from the shell. Every
// subcommand maps onto one operation of the session, catalog, cart, order,
// address or favorite containers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}
