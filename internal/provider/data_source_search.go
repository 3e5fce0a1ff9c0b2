package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-framework-validators/listvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
	"github.com/isometry/terraform-provider-ldapexplorer/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &SearchDataSource{}

func NewSearchDataSource() datasource.DataSource {
	return &SearchDataSource{}
}

// SearchDataSource runs one whole-subtree search per read.
type SearchDataSource struct {
	providerData *ldapclient.ProviderData
}

// SearchDataSourceModel describes the data source data model.
type SearchDataSourceModel struct {
	ID         types.String `tfsdk:"id"`
	Connection types.String `tfsdk:"connection"`
	Filter     types.String `tfsdk:"filter"`
	Attributes types.List   `tfsdk:"attributes"` // Requested attribute names; empty requests all
	BaseDN     types.String `tfsdk:"base_dn"`    // Overrides the connection's base DN
	Entries    types.List   `tfsdk:"entries"`
	EntryCount types.Int64  `tfsdk:"entry_count"`
	Referrals  types.List   `tfsdk:"referrals"`
}

// SearchEntryModel is one element of the entries attribute.
type SearchEntryModel struct {
	DN         types.String        `tfsdk:"dn"`
	Attributes map[string][]string `tfsdk:"attributes"`
}

var searchEntryAttrTypes = map[string]attr.Type{
	"dn": types.StringType,
	"attributes": types.MapType{
		ElemType: types.ListType{ElemType: types.StringType},
	},
}

func (d *SearchDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_search"
}

func (d *SearchDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Runs a whole-subtree LDAP search against a named connection and returns every matching entry. " +
			"Paged results are collected transparently. Referrals are reported but never followed.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "Stable identifier derived from the connection identity, base DN, filter and attributes.",
				Computed:            true,
			},
			"connection": schema.StringAttribute{
				MarkdownDescription: "Name of the connection to search. When several connections share the name, the first is used and a warning is emitted.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"filter": schema.StringAttribute{
				MarkdownDescription: "LDAP search filter (e.g., `(objectClass=person)`).",
				Required:            true,
				Validators: []validator.String{
					validators.IsValidFilter(),
				},
			},
			"attributes": schema.ListAttribute{
				MarkdownDescription: "Attributes to return, in order. Omit to return all user attributes.",
				ElementType:         types.StringType,
				Optional:            true,
				Validators: []validator.List{
					listvalidator.ValueStringsAre(stringvalidator.LengthAtLeast(1)),
				},
			},
			"base_dn": schema.StringAttribute{
				MarkdownDescription: "Search root overriding the connection's `base_dn`. Accepts an `env:<VARNAME>` reference.",
				Optional:            true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"entries": schema.ListNestedAttribute{
				MarkdownDescription: "Matching entries in the order the server returned them.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"dn": schema.StringAttribute{
							MarkdownDescription: "Distinguished Name of the entry.",
							Computed:            true,
						},
						"attributes": schema.MapAttribute{
							MarkdownDescription: "Attribute values keyed by attribute name. `objectGUID` and `objectSid` are rendered in their " +
								"string forms; other binary values are prefixed with `base64:`.",
							ElementType: types.ListType{ElemType: types.StringType},
							Computed:    true,
						},
					},
				},
			},
			"entry_count": schema.Int64Attribute{
				MarkdownDescription: "Number of entries returned.",
				Computed:            true,
			},
			"referrals": schema.ListAttribute{
				MarkdownDescription: "Referral URIs returned by the server. They are not followed.",
				ElementType:         types.StringType,
				Computed:            true,
			},
		},
	}
}

func (d *SearchDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
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

func (d *SearchDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data SearchDataSourceModel

	ctx = initializeLogging(ctx)

	// Set up entry/exit logging
	logCompletion := ldapclient.LogDataSourceOperation(ctx, "ldapexplorer_search", "read", nil)
	defer func() {
		var err error
		if resp.Diagnostics.HasError() {
			// Get first error for logging
			for _, diag := range resp.Diagnostics.Errors() {
				err = fmt.Errorf("%s: %s", diag.Summary(), diag.Detail())
				break
			}
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

	var attributes []string
	if !data.Attributes.IsNull() {
		resp.Diagnostics.Append(data.Attributes.ElementsAs(ctx, &attributes, false)...)
		if resp.Diagnostics.HasError() {
			return
		}
	}

	message := ldapclient.SearchRequestMessage{
		Filter:     data.Filter.ValueString(),
		Attributes: attributes,
	}
	if err := message.Validate(); err != nil {
		resp.Diagnostics.AddAttributeError(path.Root("filter"), "Invalid LDAP Filter", err.Error())
		return
	}

	cfg, warning, err := d.providerData.LookupConnection(ctx, data.Connection.ValueString())
	if err != nil {
		resp.Diagnostics.AddAttributeError(path.Root("connection"), "Connection Not Found", err.Error())
		return
	}
	if warning != nil {
		resp.Diagnostics.AddAttributeWarning(path.Root("connection"), "Ambiguous Connection Name", warning.String())
	}

	baseDN := data.BaseDN.ValueString()
	entries := []SearchEntryModel{}

	session := d.providerData.NewSession(ctx)
	outcome, err := session.Execute(ctx, cfg, message.Request(baseDN), func(entry *ldapclient.SearchEntry) {
		entries = append(entries, SearchEntryModel{
			DN:         types.StringValue(entry.DN),
			Attributes: entry.DisplayAttributes(),
		})
	})
	if err != nil {
		if outcome != nil && outcome.EntryCount > 0 {
			resp.Diagnostics.AddWarning(
				"Partial Search Results Discarded",
				fmt.Sprintf("%d entries were received before the search failed. Terraform cannot store partial results.", outcome.EntryCount),
			)
		}
		resp.Diagnostics.AddError(searchErrorSummary(err), err.Error())
		return
	}

	for _, referral := range outcome.Referrals {
		resp.Diagnostics.AddWarning(
			"LDAP Referral Not Followed",
			fmt.Sprintf("The server returned a referral to %s. Referrals are reported in `referrals` but never followed.", referral),
		)
	}

	tflog.Debug(ctx, "Search completed", map[string]any{
		"session_id":  session.ID(),
		"connection":  cfg.Name,
		"entry_count": outcome.EntryCount,
		"pages":       outcome.Pages,
		"referrals":   len(outcome.Referrals),
		"duration_ms": outcome.Duration.Milliseconds(),
	})

	entryList, diags := types.ListValueFrom(ctx, types.ObjectType{AttrTypes: searchEntryAttrTypes}, entries)
	resp.Diagnostics.Append(diags...)
	referrals, diags := types.ListValueFrom(ctx, types.StringType, append([]string{}, outcome.Referrals...))
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	data.ID = types.StringValue(searchID(cfg, baseDN, message))
	data.Entries = entryList
	data.EntryCount = types.Int64Value(int64(outcome.EntryCount))
	data.Referrals = referrals

	// Save data into Terraform state
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// searchID derives a deterministic identifier from unresolved inputs.
func searchID(cfg ldapclient.ConnectionConfig, baseDN string, message ldapclient.SearchRequestMessage) string {
	key := strings.Join([]string{cfg.Identity(), baseDN, message.Filter, strings.Join(message.Attributes, ",")}, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func searchErrorSummary(err error) string {
	var sessionErr *ldapclient.SessionError
	if !errors.As(err, &sessionErr) {
		return "LDAP Search Failed"
	}

	switch sessionErr.Kind {
	case ldapclient.ErrorKindConfiguration:
		return "Invalid Connection Configuration"
	case ldapclient.ErrorKindConnect:
		return "Unable to Connect to LDAP Server"
	case ldapclient.ErrorKindBind:
		return "LDAP Bind Failed"
	default:
		return "LDAP Search Failed"
	}
}
