package ldap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// Supported protocols.
const (
	ProtocolLDAP  = "ldap"
	ProtocolLDAPS = "ldaps"
)

// ApplyDefaults fills empty Protocol, Port and Timeout fields.
func (c *ConnectionConfig) ApplyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("failed to apply connection defaults: %w", err)
	}
	return nil
}

// Identity returns a stable key for the connection built from unresolved values,
// so it does not change when referenced environment variables do.
func (c ConnectionConfig) Identity() string {
	return fmt.Sprintf("%s://%s@%s:%s/%s", c.Protocol, c.BindDN, c.Host, c.Port, c.BaseDN)
}

// EndpointURL returns the resolved URL used to open the transport connection.
func (c ConnectionConfig) EndpointURL(env Environment) string {
	return fmt.Sprintf("%s://%s:%s", env.Resolve(c.Protocol), env.Resolve(c.Host), env.Resolve(c.Port))
}

// ResolvedBindDN returns the bind DN after indirection.
func (c ConnectionConfig) ResolvedBindDN(env Environment) string {
	return env.Resolve(c.BindDN)
}

// ResolvedBindPassword returns the bind password after indirection.
func (c ConnectionConfig) ResolvedBindPassword(env Environment) string {
	return env.Resolve(c.BindPassword)
}

// ResolvedBaseDN returns the base DN after indirection.
func (c ConnectionConfig) ResolvedBaseDN(env Environment) string {
	return env.Resolve(c.BaseDN)
}

// TimeoutDuration parses the resolved timeout as a positive number of milliseconds.
func (c ConnectionConfig) TimeoutDuration(env Environment) (time.Duration, error) {
	raw := strings.TrimSpace(env.Resolve(c.Timeout))
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewConfigurationError("timeout", fmt.Sprintf("timeout %q is not an integer number of milliseconds", raw), err)
	}
	if millis <= 0 {
		return 0, NewConfigurationError("timeout", fmt.Sprintf("timeout must be positive, got %d", millis), nil)
	}
	return time.Duration(millis) * time.Millisecond, nil
}

// Validate checks that the resolved protocol, host and port form a usable endpoint.
// It performs no network activity.
func (c ConnectionConfig) Validate(env Environment) error {
	protocol := env.Resolve(c.Protocol)
	if protocol != ProtocolLDAP && protocol != ProtocolLDAPS {
		return NewConfigurationError("protocol", fmt.Sprintf("protocol must be %q or %q, got %q", ProtocolLDAP, ProtocolLDAPS, protocol), nil)
	}

	if env.Resolve(c.Host) == "" {
		return NewConfigurationError("host", "host cannot be empty", nil)
	}

	if _, err := ParseLDAPURL(c.EndpointURL(env)); err != nil {
		return NewConfigurationError("endpoint", err.Error(), err)
	}

	return nil
}

// ValidateLiterals checks the fields that hold literal values before the
// connection is saved. Fields holding env:<VARNAME> references are left for
// Validate and TimeoutDuration to check once resolved.
func (c ConnectionConfig) ValidateLiterals() error {
	if c.Name == "" {
		return NewConfigurationError("name", "connection name cannot be empty", nil)
	}

	if !IsEnvToken(c.Protocol) && c.Protocol != ProtocolLDAP && c.Protocol != ProtocolLDAPS {
		return NewConfigurationError("protocol", fmt.Sprintf("protocol must be %q or %q, got %q", ProtocolLDAP, ProtocolLDAPS, c.Protocol), nil)
	}

	if !IsEnvToken(c.Host) && strings.TrimSpace(c.Host) == "" {
		return NewConfigurationError("host", "host cannot be empty", nil)
	}

	if !IsEnvToken(c.Port) {
		port, err := strconv.Atoi(strings.TrimSpace(c.Port))
		if err != nil {
			return NewConfigurationError("port", fmt.Sprintf("port %q is not an integer", c.Port), err)
		}
		if port < 1 || port > 65535 {
			return NewConfigurationError("port", fmt.Sprintf("port must be between 1 and 65535, got %d", port), nil)
		}
	}

	if !IsEnvToken(c.Timeout) {
		if _, err := c.TimeoutDuration(nil); err != nil {
			return err
		}
	}

	return nil
}

// String returns the connection identity; it never includes the bind password.
func (c ConnectionConfig) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Identity())
}
