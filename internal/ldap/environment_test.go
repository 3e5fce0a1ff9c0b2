package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvironment_Resolve(t *testing.T) {
	env := Environment{
		"LDAP_HOST":  "ldap.example.com",
		"EMPTY":      "",
		"A:B":        "colon",
		"LDAP_PORT":  "636",
		"ldap_lower": "lower",
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "literal", raw: "ldap.example.com", want: "ldap.example.com"},
		{name: "empty literal", raw: "", want: ""},
		{name: "set variable", raw: "env:LDAP_HOST", want: "ldap.example.com"},
		{name: "unset variable", raw: "env:MISSING_VAR", want: ""},
		{name: "set to empty", raw: "env:EMPTY", want: ""},
		{name: "remainder after first colon", raw: "env:A:B", want: "colon"},
		{name: "case sensitive names", raw: "env:LDAP_LOWER", want: ""},
		{name: "prefix is case sensitive", raw: "ENV:LDAP_HOST", want: "ENV:LDAP_HOST"},
		{name: "prefix not at start", raw: "xenv:LDAP_HOST", want: "xenv:LDAP_HOST"},
		{name: "bare prefix", raw: "env:", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, env.Resolve(tt.raw))
		})
	}
}

func TestEnvironment_NilResolvesTokensToEmpty(t *testing.T) {
	var env Environment
	assert.Equal(t, "", env.Resolve("env:ANYTHING"))
	assert.Equal(t, "literal", env.Resolve("literal"))
}

func TestProcessEnvironment(t *testing.T) {
	t.Setenv("LDAPEXPLORER_TEST_VAR", "a=b")

	env := ProcessEnvironment()
	assert.Equal(t, "a=b", env.Resolve("env:LDAPEXPLORER_TEST_VAR"))

	t.Setenv("LDAPEXPLORER_TEST_VAR", "changed")
	assert.Equal(t, "a=b", env.Resolve("env:LDAPEXPLORER_TEST_VAR"), "snapshot must not follow later changes")
	assert.Equal(t, "changed", ProcessEnvironment().Resolve("env:LDAPEXPLORER_TEST_VAR"))
}

func TestIsEnvToken(t *testing.T) {
	assert.True(t, IsEnvToken("env:X"))
	assert.True(t, IsEnvToken("env:"))
	assert.False(t, IsEnvToken("env"))
	assert.False(t, IsEnvToken("X"))
}
