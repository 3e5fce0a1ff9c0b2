package ldap

import (
	"os"
	"strings"
)

// EnvPrefix marks a configuration value as an environment variable reference.
const EnvPrefix = "env:"

// Environment is a snapshot of environment variables used to resolve "env:" tokens.
type Environment map[string]string

// ProcessEnvironment takes a snapshot of the current process environment.
func ProcessEnvironment() Environment {
	vars := os.Environ()
	env := make(Environment, len(vars))
	for _, kv := range vars {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = value
	}
	return env
}

// Resolve returns the literal value of a configuration field.
//
// Values starting with "env:" are looked up in the environment (everything after the
// first colon is the variable name); an unset variable resolves to the empty string.
// Any other value is returned unchanged.
func (e Environment) Resolve(raw string) string {
	if !IsEnvToken(raw) {
		return raw
	}
	_, name, _ := strings.Cut(raw, ":")
	return e[name]
}

// IsEnvToken reports whether raw is an "env:<VARNAME>" indirection token.
func IsEnvToken(raw string) bool {
	return strings.HasPrefix(raw, EnvPrefix)
}
