package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/types"

	ldapclient "github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

var _ datasource.DataSource = &ConnectionsDataSource{}

func NewConnectionsDataSource() datasource.DataSource {
	return &ConnectionsDataSource{}
}

// ConnectionsDataSource lists every configured connection in configuration order.
type ConnectionsDataSource struct {
	providerData *ldapclient.ProviderData
}

type ConnectionsDataSourceModel struct {
	ID          types.String `tfsdk:"id"`
	Connections types.List   `tfsdk:"connections"`
}

type ConnectionSummaryModel struct {
	Name     types.String `tfsdk:"name"`
	Identity types.String `tfsdk:"identity"`
}

var connectionSummaryAttrTypes = map[string]attr.Type{
	"name":     types.StringType,
	"identity": types.StringType,
}

func (d *ConnectionsDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_connections"
}

func (d *ConnectionsDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Lists every configured LDAP connection, inline connections first, then those of the connections file.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "Placeholder identifier.",
				Computed:            true,
			},
			"connections": schema.ListNestedAttribute{
				MarkdownDescription: "Configured connections. Names may repeat.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"name": schema.StringAttribute{
							MarkdownDescription: "Connection name.",
							Computed:            true,
						},
						"identity": schema.StringAttribute{
							MarkdownDescription: "Stable key built from unresolved connection values.",
							Computed:            true,
						},
					},
				},
			},
		},
	}
}

func (d *ConnectionsDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
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

func (d *ConnectionsDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data ConnectionsDataSourceModel

	ctx = initializeLogging(ctx)

	logCompletion := ldapclient.LogDataSourceOperation(ctx, "ldapexplorer_connections", "read", nil)
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

	if d.providerData == nil || d.providerData.Store == nil {
		resp.Diagnostics.AddError(
			"Provider Not Configured",
			"The provider has not been configured. Please report this issue to the provider developers.",
		)
		return
	}

	summaries := []ConnectionSummaryModel{}
	for _, cfg := range d.providerData.Store.ListAll() {
		summaries = append(summaries, ConnectionSummaryModel{
			Name:     types.StringValue(cfg.Name),
			Identity: types.StringValue(cfg.Identity()),
		})
	}

	connections, diags := types.ListValueFrom(ctx, types.ObjectType{AttrTypes: connectionSummaryAttrTypes}, summaries)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	data.ID = types.StringValue("connections")
	data.Connections = connections

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
