/*
Package ldap implements the connection model and search session of the LDAP explorer.

# Connection Configuration

A ConnectionConfig stores every field as a raw string. Any field except the name
may be an "env:<VARNAME>" token, resolved against an Environment snapshot only at
point of use:

  - Identity() is built from unresolved values and is stable across environment changes
  - EndpointURL() is always resolved and is only used to open the transport
  - TimeoutDuration() rejects non-numeric and non-positive values with a configuration error

# Sessions

A Session runs exactly one bind and one paged whole-subtree search:

	Idle -> Connecting -> Bound -> Searching -> Completed|Failed -> Closed

Entries are handed to the caller's EntryHandler synchronously and in transport
order; page boundaries are not visible. Referrals are recorded on the Outcome and
never followed. The transport connection is unbound and closed exactly once on
every path, including bind failure and handler panic. A closed session refuses
further use with ErrSessionClosed.

# Error Handling

Failures are returned as *SessionError with a Kind of configuration, connect,
bind or search, plus the LDAP result code and category when available. Nothing is
retried.

# Example Usage

	store := ldap.NewConnections(configs, logger)
	cfg, warning, err := store.FindByName("corp")
	if err != nil {
		return err
	}
	if warning != nil {
		log.Print(warning)
	}

	outcome, err := ldap.Search(ctx, cfg, &ldap.SearchRequest{
		Filter:     "(objectClass=person)",
		Attributes: []string{"cn", "mail"},
	}, func(entry *ldap.SearchEntry) {
		fmt.Println(entry.DN)
	})
*/
package ldap
