package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/ephemeral"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
	"github.com/isometry/terraform-provider-ldapexplorer/internal/provider/validators"
	"github.com/isometry/terraform-provider-ldapexplorer/internal/store"
)

// Environment variables consulted when the matching provider attribute is unset.
const (
	EnvConnectionsFile = "LDAPEXPLORER_CONNECTIONS_FILE"
	EnvPageSize        = "LDAPEXPLORER_PAGE_SIZE"
	EnvSkipTLSVerify   = "LDAPEXPLORER_SKIP_TLS_VERIFY"
)

// Ensure LDAPExplorerProvider satisfies various provider interfaces.
var _ provider.Provider = &LDAPExplorerProvider{}
var _ provider.ProviderWithFunctions = &LDAPExplorerProvider{}
var _ provider.ProviderWithEphemeralResources = &LDAPExplorerProvider{}

// LDAPExplorerProvider defines the provider implementation.
type LDAPExplorerProvider struct {
	// Version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	Version string

	// Dialer replaces the network transport when set.
	Dialer ldapclient.Dialer

	// Observer is notified of every finished search session when set.
	Observer ldapclient.Observer
}

// LDAPExplorerProviderModel describes the provider data model.
type LDAPExplorerProviderModel struct {
	Connections     []ConnectionModel `tfsdk:"connections"`
	ConnectionsFile types.String      `tfsdk:"connections_file"`
	PageSize        types.Int64       `tfsdk:"page_size"`
	SkipTLSVerify   types.Bool        `tfsdk:"skip_tls_verify"`
}

// ConnectionModel is one entry of the provider's connections list. Every field
// except name accepts an "env:<VARNAME>" reference.
type ConnectionModel struct {
	Name         types.String `tfsdk:"name"`
	Protocol     types.String `tfsdk:"protocol"`
	Host         types.String `tfsdk:"host"`
	Port         types.String `tfsdk:"port"`
	BindDN       types.String `tfsdk:"bind_dn"`
	BindPassword types.String `tfsdk:"bind_password"`
	BaseDN       types.String `tfsdk:"base_dn"`
	Timeout      types.String `tfsdk:"timeout"`
}

func (p *LDAPExplorerProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "ldapexplorer"
	resp.Version = p.Version
}

func (p *LDAPExplorerProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The LDAP Explorer provider runs read-only subtree searches against named LDAP directory connections. " +
			"Every search opens its own connection, binds, streams all result pages and closes the connection.",
		Attributes: map[string]schema.Attribute{
			"connections": schema.ListNestedAttribute{
				MarkdownDescription: "Named LDAP connections. Names need not be unique; lookups use the first match. " +
					"Every attribute except `name` accepts a literal value or an `env:<VARNAME>` reference that is resolved each time a search runs.",
				Optional: true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{
							MarkdownDescription: "Display name used to select the connection.",
							Required:            true,
							Validators: []validator.String{
								stringvalidator.LengthAtLeast(1),
							},
						},
						"protocol": schema.StringAttribute{
							MarkdownDescription: "Either `ldap` or `ldaps`. Defaults to `ldap`.",
							Optional:            true,
							Validators: []validator.String{
								validators.OneOfOrEnv(ldapclient.ProtocolLDAP, ldapclient.ProtocolLDAPS),
							},
						},
						"host": schema.StringAttribute{
							MarkdownDescription: "Directory server host name or address.",
							Required:            true,
							Validators: []validator.String{
								stringvalidator.LengthAtLeast(1),
							},
						},
						"port": schema.StringAttribute{
							MarkdownDescription: "Directory server port. Defaults to `389`.",
							Optional:            true,
							Validators: []validator.String{
								validators.IntegerBetweenOrEnv(1, 65535),
							},
						},
						"bind_dn": schema.StringAttribute{
							MarkdownDescription: "DN used for the simple bind (e.g., `cn=reader,dc=example,dc=com`).",
							Optional:            true,
							Validators: []validator.String{
								validators.IsValidDN(),
							},
						},
						"bind_password": schema.StringAttribute{
							MarkdownDescription: "Password used for the simple bind. Prefer an `env:<VARNAME>` reference.",
							Optional:            true,
							Sensitive:           true,
						},
						"base_dn": schema.StringAttribute{
							MarkdownDescription: "Root of the subtree searched by default (e.g., `dc=example,dc=com`).",
							Optional:            true,
							Validators: []validator.String{
								validators.IsValidDN(),
							},
						},
						"timeout": schema.StringAttribute{
							MarkdownDescription: "Bound on the whole search operation in milliseconds. Defaults to `5000`.",
							Optional:            true,
							Validators: []validator.String{
								validators.IntegerBetweenOrEnv(1, math.MaxInt32),
							},
						},
					},
				},
			},
			"connections_file": schema.StringAttribute{
				MarkdownDescription: "Path to a YAML connections file whose entries are appended after `connections`. " +
					"The file must have mode `0600` or `0400`. " +
					"Can be set via the `" + EnvConnectionsFile + "` environment variable.",
				Optional: true,
			},
			"page_size": schema.Int64Attribute{
				MarkdownDescription: fmt.Sprintf("Number of entries requested per search page. Defaults to `%d`. ", ldapclient.DefaultPageSize) +
					"Can be set via the `" + EnvPageSize + "` environment variable.",
				Optional: true,
				Validators: []validator.Int64{
					int64validator.Between(1, math.MaxInt32),
				},
			},
			"skip_tls_verify": schema.BoolAttribute{
				MarkdownDescription: "Skip TLS certificate verification for `ldaps` connections. Not recommended for production. Defaults to `false`. " +
					"Can be set via the `" + EnvSkipTLSVerify + "` environment variable.",
				Optional: true,
			},
		},
	}
}

func (p *LDAPExplorerProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data LDAPExplorerProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	ctx = p.configureLogging(ctx)

	tflog.Info(ctx, "Configuring LDAP Explorer provider", map[string]any{
		"version": p.Version,
	})

	connections := p.buildConnections(ctx, &data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	pageSize := p.getInt64Value(data.PageSize, EnvPageSize, int64(ldapclient.DefaultPageSize))
	if pageSize < 1 || pageSize > math.MaxInt32 {
		resp.Diagnostics.AddAttributeError(
			path.Root("page_size"),
			"Invalid Page Size",
			fmt.Sprintf("The page size must be between 1 and %d, got %d.", math.MaxInt32, pageSize),
		)
		return
	}

	dialer := p.Dialer
	if dialer == nil {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if p.getBoolValue(data.SkipTLSVerify, EnvSkipTLSVerify, false) {
			tflog.Warn(ctx, "TLS certificate verification is disabled")
			tlsConfig.InsecureSkipVerify = true //nolint:gosec // opt-in
		}
		dialer = ldapclient.NewDialer(ldapclient.DialerConfig{TLSConfig: tlsConfig})
	}

	providerData := ldapclient.NewProviderData(connections, dialer, uint32(pageSize))
	providerData.Observer = p.Observer

	tflog.Info(ctx, "LDAP Explorer provider configured successfully", map[string]any{
		"connections": len(connections.ListAll()),
		"page_size":   pageSize,
	})

	// Make provider data available to data sources
	resp.DataSourceData = providerData
	resp.ResourceData = providerData
}

// configureLogging sets up logging configuration based on environment variables.
func (p *LDAPExplorerProvider) configureLogging(ctx context.Context) context.Context {
	ctx = initializeLogging(ctx)

	// Add persistent fields for all logs
	ctx = tflog.SetField(ctx, "provider", "ldapexplorer")
	ctx = tflog.SetField(ctx, "provider_version", p.Version)

	tflog.Debug(ctx, "LDAP Explorer provider logging configured")

	return ctx
}

// buildConnections merges inline connections with those of the connections file.
func (p *LDAPExplorerProvider) buildConnections(ctx context.Context, data *LDAPExplorerProviderModel, diags *diag.Diagnostics) *ldapclient.Connections {
	logger := ldapclient.NewTFLogger(ctx, "provider")

	items := make([]ldapclient.ConnectionConfig, 0, len(data.Connections))
	for i, c := range data.Connections {
		cfg := ldapclient.ConnectionConfig{
			Name:         c.Name.ValueString(),
			Protocol:     c.Protocol.ValueString(),
			Host:         c.Host.ValueString(),
			Port:         c.Port.ValueString(),
			BindDN:       c.BindDN.ValueString(),
			BindPassword: c.BindPassword.ValueString(),
			BaseDN:       c.BaseDN.ValueString(),
			Timeout:      c.Timeout.ValueString(),
		}
		if err := cfg.ApplyDefaults(); err != nil {
			diags.AddAttributeError(
				path.Root("connections").AtListIndex(i),
				"Invalid Connection",
				err.Error(),
			)
			return nil
		}
		items = append(items, cfg)
	}

	if filePath := p.getStringValue(data.ConnectionsFile, EnvConnectionsFile); filePath != "" {
		fileStore, err := store.Load(filePath, logger)
		if err != nil {
			diags.AddAttributeError(
				path.Root("connections_file"),
				"Unable to Load Connections File",
				"The provider could not read the connections file.\n\n"+
					"Error: "+err.Error(),
			)
			return nil
		}
		items = append(items, fileStore.ListAll()...)
	}

	if len(items) == 0 {
		diags.AddWarning(
			"No LDAP Connections Configured",
			"Neither `connections` nor a connections file provided any connection. Every search will fail to resolve its connection.",
		)
	}

	return ldapclient.NewConnections(items, logger)
}

// Helper functions for configuration value resolution

func (p *LDAPExplorerProvider) getStringValue(configValue types.String, envVar string) string {
	if !configValue.IsNull() && configValue.ValueString() != "" {
		return configValue.ValueString()
	}
	return os.Getenv(envVar)
}

func (p *LDAPExplorerProvider) getBoolValue(configValue types.Bool, envVar string, defaultValue bool) bool {
	if !configValue.IsNull() {
		return configValue.ValueBool()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *LDAPExplorerProvider) getInt64Value(configValue types.Int64, envVar string, defaultValue int64) int64 {
	if !configValue.IsNull() {
		return configValue.ValueInt64()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *LDAPExplorerProvider) Resources(ctx context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		// Read-only provider
	}
}

func (p *LDAPExplorerProvider) EphemeralResources(ctx context.Context) []func() ephemeral.EphemeralResource {
	return []func() ephemeral.EphemeralResource{
		// No ephemeral resources defined yet
	}
}

func (p *LDAPExplorerProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewConnectionDataSource,
		NewConnectionsDataSource,
		NewSearchDataSource,
	}
}

func (p *LDAPExplorerProvider) Functions(ctx context.Context) []func() function.Function {
	return []func() function.Function{
		// No provider functions defined yet
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &LDAPExplorerProvider{
			Version: version,
		}
	}
}
