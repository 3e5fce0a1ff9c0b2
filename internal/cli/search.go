package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
	"github.com/isometry/terraform-provider-ldapexplorer/internal/metrics"
)

type searchOptions struct {
	connection string
	baseDN     string
	attributes []string
	output     string
}

func (a *App) newSearchCommand() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search FILTER",
		Short: "Run a whole-subtree search against a saved connection",
		Long: `Run a whole-subtree search against a saved connection.

With --output json (the default) every entry is printed as one JSON line as soon as it
arrives, followed by one line describing the outcome. With --output csv a header and one
row per entry are printed once the search succeeds; multiple values are joined with "; ".

The command exits non-zero when the search fails, including after partial results.

Examples:
  # All people under the connection's base DN
  ldapexplorer search --connection corp '(objectClass=person)'

  # Selected attributes below an explicit base, as CSV
  ldapexplorer search -c corp -b ou=people,dc=example,dc=com -a cn,mail -o csv '(cn=a*)'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd.Context(), opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.connection, "connection", "c", "", "name of the saved connection")
	cmd.Flags().StringVarP(&opts.baseDN, "base-dn", "b", "", "search base overriding the connection's base DN (DN or env:<VARNAME>)")
	cmd.Flags().StringSliceVarP(&opts.attributes, "attributes", "a", nil, "attributes to return (default all)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", OutputJSON, "output format (json, csv)")
	_ = cmd.MarkFlagRequired("connection")

	return cmd
}

func (a *App) runSearch(ctx context.Context, opts *searchOptions, filter string) error {
	message := ldap.SearchRequestMessage{
		Filter:     filter,
		Attributes: opts.attributes,
	}
	if err := message.Validate(); err != nil {
		return err
	}

	results, err := newResultWriter(opts.output, a.stdout, opts.attributes)
	if err != nil {
		return err
	}

	connections, err := a.openStore()
	if err != nil {
		return err
	}

	cfg, warning, err := connections.FindByName(opts.connection)
	if err != nil {
		return err
	}
	if warning != nil {
		a.logger.Warn(warning.String())
	}

	registry := prometheus.NewRegistry()
	sessionMetrics := metrics.NewSessionMetrics(registry)

	session := ldap.NewSession(
		ldap.WithDialer(a.newDialer()),
		ldap.WithLogger(ldap.NewZapLogger(a.logger)),
		ldap.WithPageSize(a.settings.PageSize),
		ldap.WithObserver(sessionMetrics),
	)

	// A failed write stops the search; the reader is gone.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeErr error
	outcome, searchErr := session.Execute(ctx, cfg, message.Request(opts.baseDN), func(entry *ldap.SearchEntry) {
		if writeErr != nil {
			return
		}
		if writeErr = results.WriteEntry(entry); writeErr != nil {
			cancel()
		}
	})

	if writeErr == nil {
		writeErr = results.Finish(outcome)
	}

	if path := a.settings.MetricsTextfile; path != "" {
		if err := prometheus.WriteToTextfile(path, registry); err != nil {
			a.logger.Error("Failed to write metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}

	if writeErr != nil {
		return fmt.Errorf("failed to write results: %w", writeErr)
	}
	if searchErr != nil {
		return fmt.Errorf("search failed: %w", searchErr)
	}

	a.logger.Info("Search completed",
		zap.String("session_id", session.ID()),
		zap.String("connection", cfg.Name),
		zap.Int("entry_count", outcome.EntryCount),
		zap.Int("pages", outcome.Pages),
		zap.Strings("referrals", outcome.Referrals),
	)
	return nil
}
