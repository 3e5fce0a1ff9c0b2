package validators_test

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/stretchr/testify/assert"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/provider/validators"
)

func TestIntegerBetweenOrEnv(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		val     types.String
		summary string
	}{
		"valid port":        {val: types.StringValue("636")},
		"lower bound":       {val: types.StringValue("1")},
		"upper bound":       {val: types.StringValue("65535")},
		"env token":         {val: types.StringValue("env:LDAP_PORT")},
		"null":              {val: types.StringNull()},
		"unknown":           {val: types.StringUnknown()},
		"not a number":      {val: types.StringValue("ldap"), summary: "Invalid Integer"},
		"empty":             {val: types.StringValue(""), summary: "Invalid Integer"},
		"zero":              {val: types.StringValue("0"), summary: "Integer Out of Range"},
		"too large":         {val: types.StringValue("65536"), summary: "Integer Out of Range"},
		"bare env prefix":   {val: types.StringValue("env:"), summary: "Invalid Environment Reference"},
		"fractional number": {val: types.StringValue("1.5"), summary: "Invalid Integer"},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			request := validator.StringRequest{
				Path:        path.Root("port"),
				ConfigValue: test.val,
			}
			response := validator.StringResponse{}

			validators.IntegerBetweenOrEnv(1, 65535).ValidateString(t.Context(), request, &response)

			if test.summary == "" {
				assert.False(t, response.Diagnostics.HasError(), "unexpected error: %s", response.Diagnostics)
				return
			}

			if assert.Len(t, response.Diagnostics, 1) {
				assert.Equal(t, test.summary, response.Diagnostics[0].Summary())
			}
		})
	}
}
