package ldap

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// ProviderData carries what data sources need to run searches.
// Sessions are not pooled: every search opens and closes its own connection.
type ProviderData struct {
	Store    ConnectionStore // Named connections
	Dialer   Dialer          // Transport used by every session
	PageSize uint32          // Paging control size
	Observer Observer        // Optional session observer
}

// NewProviderData creates a new provider data wrapper.
func NewProviderData(store ConnectionStore, dialer Dialer, pageSize uint32) *ProviderData {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &ProviderData{
		Store:    store,
		Dialer:   dialer,
		PageSize: pageSize,
	}
}

// LookupConnection resolves a connection by name. An ambiguous name is not an error.
func (pd *ProviderData) LookupConnection(ctx context.Context, name string) (ConnectionConfig, *AmbiguousNameWarning, error) {
	if pd.Store == nil {
		return ConnectionConfig{}, nil, fmt.Errorf("connection store is not initialized")
	}

	cfg, warning, err := pd.Store.FindByName(name)
	if err != nil {
		return ConnectionConfig{}, nil, err
	}

	tflog.SubsystemTrace(ctx, "ldap", "Resolved connection", map[string]any{
		"connection": name,
		"identity":   cfg.Identity(),
		"ambiguous":  warning != nil,
	})

	return cfg, warning, nil
}

// NewSession creates a session that logs to the "ldap" subsystem of ctx.
func (pd *ProviderData) NewSession(ctx context.Context, opts ...SessionOption) *Session {
	base := []SessionOption{
		WithDialer(pd.Dialer),
		WithPageSize(pd.PageSize),
		WithLogger(NewTFLogger(ctx, "ldap")),
	}
	if pd.Observer != nil {
		base = append(base, WithObserver(pd.Observer))
	}
	return NewSession(append(base, opts...)...)
}
