// Command ldapexplorer searches LDAP directories from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(version).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
