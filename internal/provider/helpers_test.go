package provider_test

import (
	"context"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/tfsdk"
	"github.com/hashicorp/terraform-plugin-go/tftypes"

	ldapclient "github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap/ldaptest"
)

// objectValue builds an object of typ, leaving unspecified attributes null.
func objectValue(typ tftypes.Type, values map[string]tftypes.Value) tftypes.Value {
	objType := typ.(tftypes.Object)
	attrs := make(map[string]tftypes.Value, len(objType.AttributeTypes))
	for name, attrType := range objType.AttributeTypes {
		if v, ok := values[name]; ok {
			attrs[name] = v
			continue
		}
		attrs[name] = tftypes.NewValue(attrType, nil)
	}
	return tftypes.NewValue(objType, attrs)
}

func stringValue(s string) tftypes.Value {
	return tftypes.NewValue(tftypes.String, s)
}

func stringList(values ...string) tftypes.Value {
	elems := make([]tftypes.Value, 0, len(values))
	for _, v := range values {
		elems = append(elems, stringValue(v))
	}
	return tftypes.NewValue(tftypes.List{ElementType: tftypes.String}, elems)
}

// providerConfig builds a provider configuration; connections are given as
// attribute name to string value maps.
func providerConfig(ctx context.Context, p provider.Provider, values map[string]tftypes.Value, connections ...map[string]string) tfsdk.Config {
	resp := &provider.SchemaResponse{}
	p.Schema(ctx, provider.SchemaRequest{}, resp)
	typ := resp.Schema.Type().TerraformType(ctx)

	if len(connections) > 0 {
		listType := typ.(tftypes.Object).AttributeTypes["connections"].(tftypes.List)
		elems := make([]tftypes.Value, 0, len(connections))
		for _, c := range connections {
			fields := make(map[string]tftypes.Value, len(c))
			for k, v := range c {
				fields[k] = stringValue(v)
			}
			elems = append(elems, objectValue(listType.ElementType, fields))
		}
		if values == nil {
			values = map[string]tftypes.Value{}
		}
		values["connections"] = tftypes.NewValue(listType, elems)
	}

	return tfsdk.Config{Schema: resp.Schema, Raw: objectValue(typ, values)}
}

// readDataSource runs Read with the given configuration against fresh state.
func readDataSource(ctx context.Context, t *testing.T, ds datasource.DataSource, values map[string]tftypes.Value) *datasource.ReadResponse {
	t.Helper()

	schemaResp := &datasource.SchemaResponse{}
	ds.Schema(ctx, datasource.SchemaRequest{}, schemaResp)
	if schemaResp.Diagnostics.HasError() {
		t.Fatalf("schema: %v", schemaResp.Diagnostics)
	}
	typ := schemaResp.Schema.Type().TerraformType(ctx)

	req := datasource.ReadRequest{
		Config: tfsdk.Config{Schema: schemaResp.Schema, Raw: objectValue(typ, values)},
	}
	resp := &datasource.ReadResponse{
		State: tfsdk.State{Schema: schemaResp.Schema, Raw: tftypes.NewValue(typ, nil)},
	}

	ds.Read(ctx, req, resp)
	return resp
}

// configureDataSource hands providerData to ds the way the framework does.
func configureDataSource(ctx context.Context, t *testing.T, ds datasource.DataSource, providerData any) {
	t.Helper()

	resp := &datasource.ConfigureResponse{}
	ds.(datasource.DataSourceWithConfigure).Configure(ctx, datasource.ConfigureRequest{ProviderData: providerData}, resp)
	if resp.Diagnostics.HasError() {
		t.Fatalf("configure: %v", resp.Diagnostics)
	}
}

func testProviderData(dialer *ldaptest.Dialer, connections ...ldapclient.ConnectionConfig) *ldapclient.ProviderData {
	for i := range connections {
		_ = connections[i].ApplyDefaults()
	}
	return ldapclient.NewProviderData(ldapclient.NewConnections(connections, nil), dialer, 100)
}
