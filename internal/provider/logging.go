package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// initializeLogging initializes the provider and ldap subsystems for consistent logging.
// This should be called at the beginning of each data source Read method.
func initializeLogging(ctx context.Context) context.Context {
	// Pattern: TF_LOG_PROVIDER_LDAPEXPLORER_<SUBSYSTEM>
	ctx = tflog.NewSubsystem(ctx, "provider",
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_LDAPEXPLORER_PROVIDER"))
	ctx = tflog.NewSubsystem(ctx, "ldap",
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_LDAPEXPLORER_LDAP"))

	return tflog.SubsystemMaskFieldValuesWithFieldKeys(ctx, "ldap", "bind_password", "bindpwd", "password")
}
