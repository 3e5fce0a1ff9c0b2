package validators

import (
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

func TestOneOfOrEnv(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		input     types.String
		expectErr bool
	}{
		"valid-ldap": {
			input:     types.StringValue("ldap"),
			expectErr: false,
		},
		"valid-ldaps": {
			input:     types.StringValue("ldaps"),
			expectErr: false,
		},
		"valid-env-token": {
			input:     types.StringValue("env:LDAP_PROTOCOL"),
			expectErr: false,
		},
		"invalid-uppercase": {
			input:     types.StringValue("LDAP"),
			expectErr: true,
		},
		"invalid-scheme": {
			input:     types.StringValue("http"),
			expectErr: true,
		},
		"invalid-empty": {
			input:     types.StringValue(""),
			expectErr: true,
		},
		"invalid-bare-env-prefix": {
			input:     types.StringValue("env:"),
			expectErr: true,
		},
		"null": {
			input:     types.StringNull(),
			expectErr: false,
		},
		"unknown": {
			input:     types.StringUnknown(),
			expectErr: false,
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req := validator.StringRequest{
				Path:        path.Root("protocol"),
				ConfigValue: testCase.input,
			}
			resp := validator.StringResponse{}

			OneOfOrEnv("ldap", "ldaps").ValidateString(t.Context(), req, &resp)

			if testCase.expectErr && !resp.Diagnostics.HasError() {
				t.Fatal("expected error, got none")
			}

			if !testCase.expectErr && resp.Diagnostics.HasError() {
				t.Fatalf("unexpected error: %s", resp.Diagnostics)
			}
		})
	}
}

func TestOneOfOrEnv_Description(t *testing.T) {
	t.Parallel()

	v := OneOfOrEnv("ldap", "ldaps")
	desc := v.Description(t.Context())

	for _, expected := range []string{"ldap", "ldaps", "env:"} {
		if !strings.Contains(desc, expected) {
			t.Fatalf("expected description to contain %q, got: %s", expected, desc)
		}
	}

	if v.MarkdownDescription(t.Context()) != desc {
		t.Fatalf("expected markdown description to match description")
	}
}
