package validators

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

var _ validator.String = integerOrEnvValidator{}

// integerOrEnvValidator validates string attributes that carry an integer, such as
// port and timeout, which stay strings so that they can hold an env reference.
type integerOrEnvValidator struct {
	min int64
	max int64
}

func (v integerOrEnvValidator) Description(_ context.Context) string {
	return fmt.Sprintf("value must be an integer between %d and %d, or an %s<VARNAME> reference", v.min, v.max, ldap.EnvPrefix)
}

func (v integerOrEnvValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

func (v integerOrEnvValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	if ldap.IsEnvToken(value) {
		validateEnvToken(request, response, value)
		return
	}

	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Integer",
			fmt.Sprintf("The value %q is not an integer.", value),
		)
		return
	}

	if n < v.min || n > v.max {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Integer Out of Range",
			fmt.Sprintf("The value %d must be between %d and %d.", n, v.min, v.max),
		)
	}
}

// IntegerBetweenOrEnv returns a validator which ensures that a string attribute
// holds an integer in [min, max] or an "env:<VARNAME>" reference.
//
// Unknown values and null values are skipped from validation.
func IntegerBetweenOrEnv(min, max int64) validator.String {
	return integerOrEnvValidator{min: min, max: max}
}
