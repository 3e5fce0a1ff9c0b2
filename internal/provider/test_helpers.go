package provider

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
	"github.com/hashicorp/terraform-plugin-testing/terraform"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

// Test environment configuration constants.
const (
	// Environment variables for test configuration.
	EnvTestProtocol = "LDAPEXPLORER_TEST_PROTOCOL"
	EnvTestHost     = "LDAPEXPLORER_TEST_HOST"
	EnvTestPort     = "LDAPEXPLORER_TEST_PORT"
	EnvTestBindDN   = "LDAPEXPLORER_TEST_BIND_DN"
	EnvTestPassword = "LDAPEXPLORER_TEST_PASSWORD"
	EnvTestBaseDN   = "LDAPEXPLORER_TEST_BASE_DN"
	EnvTestFilter   = "LDAPEXPLORER_TEST_FILTER"

	// Default values for testing.
	DefaultTestProtocol = "ldap"
	DefaultTestPort     = "389"
	DefaultTestFilter   = "(objectClass=*)"

	// TestConnectionName is the connection declared by TestProviderConfig.
	TestConnectionName = "acceptance"
)

// TestConfig holds common test configuration.
type TestConfig struct {
	Protocol string
	Host     string
	Port     string
	BindDN   string
	Password string
	BaseDN   string
	Filter   string
}

// GetTestConfig returns the test configuration from environment variables.
func GetTestConfig() *TestConfig {
	return &TestConfig{
		Protocol: getEnvWithDefault(EnvTestProtocol, DefaultTestProtocol),
		Host:     os.Getenv(EnvTestHost),
		Port:     getEnvWithDefault(EnvTestPort, DefaultTestPort),
		BindDN:   os.Getenv(EnvTestBindDN),
		Password: os.Getenv(EnvTestPassword),
		BaseDN:   os.Getenv(EnvTestBaseDN),
		Filter:   getEnvWithDefault(EnvTestFilter, DefaultTestFilter),
	}
}

// IsAccTest returns true if acceptance tests should run.
func IsAccTest() bool {
	return os.Getenv("TF_ACC") != ""
}

// SkipIfNotAccTest skips the test if TF_ACC is not set.
func SkipIfNotAccTest(t *testing.T) {
	if !IsAccTest() {
		t.Skip("Skipping acceptance test - set TF_ACC=1 to run")
	}
}

// testAccPreCheckWithConfig validates the acceptance test environment.
func testAccPreCheckWithConfig(t *testing.T) *TestConfig {
	SkipIfNotAccTest(t)

	config := GetTestConfig()

	if config.Host == "" {
		t.Skipf("Skipping test: %s must be set to a reachable directory server", EnvTestHost)
	}

	if config.BindDN == "" || config.Password == "" {
		t.Skipf("Skipping test: %s and %s must be set", EnvTestBindDN, EnvTestPassword)
	}

	if config.BaseDN == "" {
		t.Skipf("Skipping test: %s must be set", EnvTestBaseDN)
	}

	return config
}

// TestProviderConfig generates provider configuration for tests. The bind
// password is referenced through the environment rather than written into HCL.
func TestProviderConfig() string {
	config := GetTestConfig()

	var providerConfig strings.Builder
	providerConfig.WriteString("provider \"ldapexplorer\" {\n")
	providerConfig.WriteString("  connections = [{\n")
	providerConfig.WriteString(fmt.Sprintf("    name          = %q\n", TestConnectionName))
	providerConfig.WriteString(fmt.Sprintf("    protocol      = %q\n", config.Protocol))
	providerConfig.WriteString(fmt.Sprintf("    host          = %q\n", config.Host))
	providerConfig.WriteString(fmt.Sprintf("    port          = %q\n", config.Port))
	providerConfig.WriteString(fmt.Sprintf("    bind_dn       = %q\n", config.BindDN))
	providerConfig.WriteString(fmt.Sprintf("    bind_password = %q\n", ldap.EnvPrefix+EnvTestPassword))
	providerConfig.WriteString(fmt.Sprintf("    base_dn       = %q\n", config.BaseDN))
	providerConfig.WriteString("  }]\n")
	providerConfig.WriteString("}\n")
	return providerConfig.String()
}

// TestCheckEntryCountAtLeast verifies that a search data source returned at least min entries.
func TestCheckEntryCountAtLeast(resourceName string, min int) resource.TestCheckFunc {
	return func(s *terraform.State) error {
		rs, ok := s.RootModule().Resources[resourceName]
		if !ok {
			return fmt.Errorf("resource not found: %s", resourceName)
		}

		count, err := strconv.Atoi(rs.Primary.Attributes["entry_count"])
		if err != nil {
			return fmt.Errorf("entry_count is not a number: %v", err)
		}

		if count < min {
			return fmt.Errorf("expected at least %d entries, got %d", min, count)
		}

		if listed, _ := strconv.Atoi(rs.Primary.Attributes["entries.#"]); listed != count {
			return fmt.Errorf("entry_count %d does not match %d listed entries", count, listed)
		}

		return nil
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
