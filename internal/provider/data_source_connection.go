package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	ldapclient "github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &ConnectionDataSource{}

func NewConnectionDataSource() datasource.DataSource {
	return &ConnectionDataSource{}
}

// ConnectionDataSource exposes one configured connection. The bind password is never exposed.
type ConnectionDataSource struct {
	providerData *ldapclient.ProviderData
}

// ConnectionDataSourceModel describes the data source data model.
type ConnectionDataSourceModel struct {
	ID       types.String `tfsdk:"id"`
	Name     types.String `tfsdk:"name"`
	Protocol types.String `tfsdk:"protocol"` // Raw values, env references unresolved
	Host     types.String `tfsdk:"host"`
	Port     types.String `tfsdk:"port"`
	BindDN   types.String `tfsdk:"bind_dn"`
	BaseDN   types.String `tfsdk:"base_dn"`
	Timeout  types.String `tfsdk:"timeout"`
	Identity types.String `tfsdk:"identity"`
	URL      types.String `tfsdk:"url"` // Resolved against the provider's environment
}

func (d *ConnectionDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_connection"
}

func (d *ConnectionDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Looks up a configured LDAP connection by name. Values are reported as configured, " +
			"so `env:<VARNAME>` references stay unresolved; only `url` is resolved. The bind password is never exposed.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "Same as `identity`.",
				Computed:            true,
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "Connection name. When several connections share the name, the first is returned and a warning is emitted.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"protocol": schema.StringAttribute{
				MarkdownDescription: "Configured protocol.",
				Computed:            true,
			},
			"host": schema.StringAttribute{
				MarkdownDescription: "Configured host.",
				Computed:            true,
			},
			"port": schema.StringAttribute{
				MarkdownDescription: "Configured port.",
				Computed:            true,
			},
			"bind_dn": schema.StringAttribute{
				MarkdownDescription: "Configured bind DN.",
				Computed:            true,
			},
			"base_dn": schema.StringAttribute{
				MarkdownDescription: "Configured base DN.",
				Computed:            true,
			},
			"timeout": schema.StringAttribute{
				MarkdownDescription: "Configured timeout in milliseconds.",
				Computed:            true,
			},
			"identity": schema.StringAttribute{
				MarkdownDescription: "Stable key of the form `protocol://bind_dn@host:port/base_dn` built from unresolved values.",
				Computed:            true,
			},
			"url": schema.StringAttribute{
				MarkdownDescription: "Endpoint URL after resolving environment references.",
				Computed:            true,
			},
		},
	}
}

func (d *ConnectionDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	// Prevent panic if the provider has not been configured.
	if req.ProviderData == nil {
		return
	}

	providerData, ok := req.ProviderData.(*ldapclient.ProviderData)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Data Source Configure Type",
			fmt.Sprintf("Expected *ldap.ProviderData, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}

	d.providerData = providerData
}

func (d *ConnectionDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data ConnectionDataSourceModel

	ctx = initializeLogging(ctx)

	logCompletion := ldapclient.LogDataSourceOperation(ctx, "ldapexplorer_connection", "read", nil)
	defer func() {
		var err error
		for _, diag := range resp.Diagnostics.Errors() {
			err = fmt.Errorf("%s: %s", diag.Summary(), diag.Detail())
			break
		}
		logCompletion(err)
	}()

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if d.providerData == nil {
		resp.Diagnostics.AddError(
			"Provider Not Configured",
			"The provider has not been configured. Please report this issue to the provider developers.",
		)
		return
	}

	cfg, warning, err := d.providerData.LookupConnection(ctx, data.Name.ValueString())
	if err != nil {
		resp.Diagnostics.AddAttributeError(path.Root("name"), "Connection Not Found", err.Error())
		return
	}
	if warning != nil {
		resp.Diagnostics.AddAttributeWarning(path.Root("name"), "Ambiguous Connection Name", warning.String())
	}

	identity := cfg.Identity()
	data.ID = types.StringValue(identity)
	data.Protocol = types.StringValue(cfg.Protocol)
	data.Host = types.StringValue(cfg.Host)
	data.Port = types.StringValue(cfg.Port)
	data.BindDN = types.StringValue(cfg.BindDN)
	data.BaseDN = types.StringValue(cfg.BaseDN)
	data.Timeout = types.StringValue(cfg.Timeout)
	data.Identity = types.StringValue(identity)
	data.URL = types.StringValue(cfg.EndpointURL(ldapclient.ProcessEnvironment()))

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
