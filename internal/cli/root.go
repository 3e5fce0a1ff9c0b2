// Package cli implements the ldapexplorer command line interface.
package cli

import (
	"crypto/tls"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
	"github.com/isometry/terraform-provider-ldapexplorer/internal/store"
)

// App carries the state shared by all commands of one invocation.
type App struct {
	stdout io.Writer
	stderr io.Writer
	dialer ldap.Dialer

	settings *Settings
	logger   *zap.Logger
}

// Option configures an App.
type Option func(*App)

// WithOutput redirects command output and logs.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithDialer replaces the network transport.
func WithDialer(dialer ldap.Dialer) Option {
	return func(a *App) {
		a.dialer = dialer
	}
}

// NewRootCommand returns the ldapexplorer command tree.
func NewRootCommand(version string, opts ...Option) *cobra.Command {
	a := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}

	cmd := &cobra.Command{
		Use:   "ldapexplorer",
		Short: "Search LDAP directories and manage saved connections",
		Long: `ldapexplorer runs whole-subtree searches against named LDAP connections.

Connections are kept in a YAML file (default ~/.config/ldap-explorer/connections.yaml).
Any connection value other than the name may be written as env:<VARNAME> to read it
from the environment when the connection is used.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	flags := cmd.PersistentFlags()
	flags.String("config", "", "connections file (default ~/.config/ldap-explorer/connections.yaml)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("metrics-textfile", "", "write session metrics to this file in Prometheus text format")
	flags.Uint32("page-size", ldap.DefaultPageSize, "entries requested per search page")
	flags.Bool("skip-tls-verify", false, "skip TLS certificate verification for ldaps connections")

	cmd.AddCommand(a.newSearchCommand())
	cmd.AddCommand(a.newConnectionsCommand())

	return cmd
}

func (a *App) setup(cmd *cobra.Command) error {
	settings, err := LoadSettings(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(settings.LogLevel, settings.LogFormat, a.stderr)
	if err != nil {
		return err
	}

	a.settings = settings
	a.logger = logger.With(zap.String("command", cmd.Name()))
	return nil
}

// openStore loads the connections file named by --config.
func (a *App) openStore() (*store.FileStore, error) {
	path := a.settings.Config
	if path == "" {
		defaultPath, err := store.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	fileStore, err := store.Load(path, ldap.NewZapLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("unable to load connections: %w", err)
	}
	return fileStore, nil
}

func (a *App) newDialer() ldap.Dialer {
	if a.dialer != nil {
		return a.dialer
	}
	return ldap.NewDialer(ldap.DialerConfig{
		TLSConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: a.settings.SkipTLSVerify, //nolint:gosec // opt-in for lab directories
		},
	})
}
