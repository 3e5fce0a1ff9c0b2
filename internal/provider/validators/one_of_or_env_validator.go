package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

// Ensure the implementation satisfies the expected interface.
var _ validator.String = oneOfOrEnvValidator{}

// oneOfOrEnvValidator validates that a string is one of the allowed values or an
// "env:<VARNAME>" token that will be resolved when a search runs.
type oneOfOrEnvValidator struct {
	validValues []string
}

// Description describes the validation in plain text.
func (v oneOfOrEnvValidator) Description(_ context.Context) string {
	return fmt.Sprintf("value must be one of: %s, or an %s<VARNAME> reference", strings.Join(v.validValues, ", "), ldap.EnvPrefix)
}

// MarkdownDescription describes the validation in Markdown.
func (v oneOfOrEnvValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

// ValidateString performs the validation.
func (v oneOfOrEnvValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	// Skip validation for unknown or null values
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	if ldap.IsEnvToken(value) {
		validateEnvToken(request, response, value)
		return
	}

	for _, validValue := range v.validValues {
		if value == validValue {
			return
		}
	}

	response.Diagnostics.AddAttributeError(
		request.Path,
		"Invalid Value",
		fmt.Sprintf(
			"The value %q is not valid. Must be one of: %s, or an %s<VARNAME> reference",
			value,
			strings.Join(v.validValues, ", "),
			ldap.EnvPrefix,
		),
	)
}

// OneOfOrEnv returns a validator which ensures that any configured attribute
// value matches one of the provided values exactly, or is an environment
// variable reference such as "env:LDAP_PROTOCOL".
//
// Unknown values and null values are skipped from validation.
func OneOfOrEnv(values ...string) validator.String {
	return oneOfOrEnvValidator{
		validValues: values,
	}
}

// validateEnvToken rejects "env:" with no variable name.
func validateEnvToken(request validator.StringRequest, response *validator.StringResponse, value string) {
	if strings.TrimPrefix(value, ldap.EnvPrefix) != "" {
		return
	}
	response.Diagnostics.AddAttributeError(
		request.Path,
		"Invalid Environment Reference",
		fmt.Sprintf("The value %q does not name an environment variable. Use the form %s<VARNAME>.", value, ldap.EnvPrefix),
	)
}
