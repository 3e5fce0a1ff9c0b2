package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

const redacted = "********"

func (a *App) newConnectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage saved connections",
	}

	cmd.AddCommand(
		a.newConnectionsListCommand(),
		a.newConnectionsShowCommand(),
		a.newConnectionsAddCommand(),
		a.newConnectionsEditCommand(),
		a.newConnectionsRemoveCommand(),
	)
	return cmd
}

func (a *App) newConnectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved connections in file order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			connections, err := a.openStore()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tIDENTITY")
			for _, cfg := range connections.ListAll() {
				fmt.Fprintf(tw, "%s\t%s\n", cfg.Name, cfg.Identity())
			}
			return tw.Flush()
		},
	}
}

func (a *App) newConnectionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show a saved connection; a literal bind password is redacted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connections, err := a.openStore()
			if err != nil {
				return err
			}

			cfg, warning, err := connections.FindByName(args[0])
			if err != nil {
				return err
			}
			if warning != nil {
				a.logger.Warn(warning.String())
			}

			if cfg.BindPassword != "" && !ldap.IsEnvToken(cfg.BindPassword) {
				cfg.BindPassword = redacted
			}

			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
}

func (a *App) newConnectionsAddCommand() *cobra.Command {
	cfg := &ldap.ConnectionConfig{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a connection to the connections file",
		Long: `Append a connection to the connections file. Names need not be unique, but
lookups, edits and removals always act on the first connection with a given name.

Examples:
  ldapexplorer connections add --name corp --host dc1.example.com \
    --bind-dn cn=reader,dc=example,dc=com --bind-password env:CORP_PASSWORD \
    --base-dn dc=example,dc=com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			connections, err := a.openStore()
			if err != nil {
				return err
			}
			if err := connections.Add(*cfg); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Added connection '%s'\n", cfg.Name)
			return nil
		},
	}

	bindConnectionFlags(cmd.Flags(), cfg)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("host")

	return cmd
}

func (a *App) newConnectionsEditCommand() *cobra.Command {
	changes := &ldap.ConnectionConfig{}

	cmd := &cobra.Command{
		Use:   "edit NAME",
		Short: "Change the first connection named NAME; unset flags keep their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connections, err := a.openStore()
			if err != nil {
				return err
			}

			existing, _, err := connections.FindByName(args[0])
			if err != nil {
				return fmt.Errorf("connection '%s' does not exist in settings: %w", args[0], ldap.ErrConnectionNotFound)
			}

			replacement := mergeConnectionFlags(cmd.Flags(), existing, *changes)
			if err := connections.Edit(args[0], replacement); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Updated connection '%s'\n", replacement.Name)
			return nil
		},
	}

	bindConnectionFlags(cmd.Flags(), changes)

	return cmd
}

func (a *App) newConnectionsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Remove the first connection named NAME",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connections, err := a.openStore()
			if err != nil {
				return err
			}
			if err := connections.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Removed connection '%s'\n", args[0])
			return nil
		},
	}
}

// connectionFields maps flag names to connection fields.
func connectionFields(cfg *ldap.ConnectionConfig) map[string]*string {
	return map[string]*string{
		"name":          &cfg.Name,
		"protocol":      &cfg.Protocol,
		"host":          &cfg.Host,
		"port":          &cfg.Port,
		"bind-dn":       &cfg.BindDN,
		"bind-password": &cfg.BindPassword,
		"base-dn":       &cfg.BaseDN,
		"timeout":       &cfg.Timeout,
	}
}

func bindConnectionFlags(flags *pflag.FlagSet, cfg *ldap.ConnectionConfig) {
	flags.StringVar(&cfg.Name, "name", "", "connection name")
	flags.StringVar(&cfg.Protocol, "protocol", "", "ldap or ldaps (default ldap)")
	flags.StringVar(&cfg.Host, "host", "", "server host name")
	flags.StringVar(&cfg.Port, "port", "", "server port (default 389)")
	flags.StringVar(&cfg.BindDN, "bind-dn", "", "DN to bind as")
	flags.StringVar(&cfg.BindPassword, "bind-password", "", "bind password; prefer env:<VARNAME>")
	flags.StringVar(&cfg.BaseDN, "base-dn", "", "default search base")
	flags.StringVar(&cfg.Timeout, "timeout", "", "operation timeout in milliseconds (default 5000)")
}

// mergeConnectionFlags overlays the explicitly set flags of changes onto existing.
func mergeConnectionFlags(flags *pflag.FlagSet, existing, changes ldap.ConnectionConfig) ldap.ConnectionConfig {
	target := connectionFields(&existing)
	source := connectionFields(&changes)
	flags.Visit(func(f *pflag.Flag) {
		if dst, ok := target[f.Name]; ok {
			*dst = *source[f.Name]
		}
	})
	return existing
}
