package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap/ldaptest"
	"github.com/isometry/terraform-provider-ldapexplorer/internal/store"
)

func people() *ldaptest.Dialer {
	return ldaptest.NewDialer(
		ldaptest.Entry("cn=Alice,ou=people,dc=example,dc=com", map[string][]string{
			"cn":   {"Alice"},
			"mail": {"alice@example.com"},
		}),
		ldaptest.Entry("cn=Bob,ou=people,dc=example,dc=com", map[string][]string{
			"cn":          {"Bob"},
			"description": {"Builder"},
			"mail":        {"bob@example.com", "robert@example.com"},
		}),
	)
}

func corp() ldap.ConnectionConfig {
	return ldap.ConnectionConfig{
		Name:         "corp",
		Host:         "dc1.example.com",
		BindDN:       "cn=reader,dc=example,dc=com",
		BindPassword: "env:CLI_TEST_PASSWORD",
		BaseDN:       "dc=example,dc=com",
	}
}

// writeConnections writes a connections file with safe permissions and returns its path.
func writeConnections(t *testing.T, items ...ldap.ConnectionConfig) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "connections.yaml")
	if len(items) == 0 {
		return path
	}

	data, err := store.Marshal(items)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func run(t *testing.T, dialer *ldaptest.Dialer, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand("test", WithOutput(&stdout, &stderr), WithDialer(dialer))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func ndjson(t *testing.T, output string) []string {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.NotEmpty(t, lines)
	return lines
}

func TestSearch_JSON(t *testing.T) {
	t.Setenv("CLI_TEST_PASSWORD", "s3cret")
	path := writeConnections(t, corp())
	dialer := people()

	stdout, _, err := run(t, dialer, "--config", path, "search", "--connection", "corp", "(objectClass=person)")
	require.NoError(t, err)

	lines := ndjson(t, stdout)
	require.Len(t, lines, 3)

	var first ldap.EntryNotification
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "cn=Alice,ou=people,dc=example,dc=com", first.DistinguishedName)
	assert.Equal(t, []string{"alice@example.com"}, first.Attributes["mail"])

	var outcome ldap.OutcomeNotification
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &outcome))
	assert.Equal(t, ldap.StatusOK, outcome.Status)
	assert.Equal(t, 2, outcome.EntryCount)
	assert.Empty(t, outcome.Detail)

	assert.Equal(t, []ldaptest.Bind{{DN: "cn=reader,dc=example,dc=com", Password: "s3cret"}}, dialer.Binds())
	assert.Equal(t, 1, dialer.Closed())
}

func TestSearch_RequestOptions(t *testing.T) {
	path := writeConnections(t, corp())
	dialer := people()

	_, _, err := run(t, dialer, "--config", path, "search", "-c", "corp",
		"-b", "ou=people,dc=example,dc=com", "-a", "cn,mail", "(cn=*)")
	require.NoError(t, err)

	requests := dialer.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "ou=people,dc=example,dc=com", requests[0].BaseDN)
	assert.Equal(t, goldap.ScopeWholeSubtree, requests[0].Scope)
	assert.Equal(t, []string{"cn", "mail"}, requests[0].Attributes)
	assert.Equal(t, "(cn=*)", requests[0].Filter)
}

func TestSearch_FailureAfterEntries(t *testing.T) {
	path := writeConnections(t, corp())
	dialer := people()
	dialer.SearchErr = goldap.NewError(goldap.LDAPResultSizeLimitExceeded, errors.New("size limit exceeded"))

	stdout, _, err := run(t, dialer, "--config", path, "search", "-c", "corp", "(cn=*)")
	require.Error(t, err)
	assert.True(t, ldap.IsKind(err, ldap.ErrorKindSearch))

	// Entries stay delivered; the outcome line reports the failure
	lines := ndjson(t, stdout)
	require.Len(t, lines, 3)

	var outcome ldap.OutcomeNotification
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &outcome))
	assert.Equal(t, ldap.StatusError, outcome.Status)
	assert.Equal(t, 2, outcome.EntryCount)
	assert.NotEmpty(t, outcome.Detail)
}

func TestSearch_BindFailure(t *testing.T) {
	path := writeConnections(t, corp())
	dialer := people()
	dialer.BindErr = goldap.NewError(goldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))

	stdout, _, err := run(t, dialer, "--config", path, "search", "-c", "corp", "(cn=*)")
	require.Error(t, err)
	assert.True(t, ldap.IsKind(err, ldap.ErrorKindBind))

	lines := ndjson(t, stdout)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"status":"error"`)
	assert.Empty(t, dialer.Requests())
}

func TestSearch_CSV(t *testing.T) {
	path := writeConnections(t, corp())

	stdout, _, err := run(t, people(), "--config", path, "search", "-c", "corp", "-o", "csv", "(cn=*)")
	require.NoError(t, err)

	expected := `dn,cn,mail,description
"cn=Alice,ou=people,dc=example,dc=com",Alice,alice@example.com,
"cn=Bob,ou=people,dc=example,dc=com",Bob,bob@example.com; robert@example.com,Builder
`
	assert.Equal(t, expected, stdout)
}

func TestSearch_CSVRequestedColumns(t *testing.T) {
	path := writeConnections(t, corp())

	stdout, _, err := run(t, people(), "--config", path, "search", "-c", "corp", "-o", "csv", "-a", "MAIL,uid", "(cn=*)")
	require.NoError(t, err)

	expected := `dn,MAIL,uid
"cn=Alice,ou=people,dc=example,dc=com",alice@example.com,
"cn=Bob,ou=people,dc=example,dc=com",bob@example.com; robert@example.com,
`
	assert.Equal(t, expected, stdout)
}

func TestSearch_Errors(t *testing.T) {
	testCases := map[string]struct {
		args     []string
		contains string
	}{
		"unknown connection": {
			args:     []string{"search", "-c", "missing", "(cn=*)"},
			contains: "Unable to find connection 'missing' in settings",
		},
		"invalid filter": {
			args:     []string{"search", "-c", "corp", "(cn=*"},
			contains: "filter",
		},
		"invalid output": {
			args:     []string{"search", "-c", "corp", "-o", "xml", "(cn=*)"},
			contains: "invalid output format",
		},
		"missing connection flag": {
			args:     []string{"search", "(cn=*)"},
			contains: "connection",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			path := writeConnections(t, corp())
			dialer := people()

			_, _, err := run(t, dialer, append([]string{"--config", path}, tc.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
			assert.Empty(t, dialer.URLs())
		})
	}
}

func TestSearch_AmbiguousConnectionLogsWarning(t *testing.T) {
	second := corp()
	second.Host = "dc2.example.com"
	path := writeConnections(t, corp(), second)
	dialer := people()

	_, stderr, err := run(t, dialer, "--config", path, "search", "-c", "corp", "(cn=*)")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Found 2 LDAP connections with name 'corp', expected at most 1.")
	assert.Equal(t, []string{"ldap://dc1.example.com:389"}, dialer.URLs())
}

func TestSearch_MetricsTextfile(t *testing.T) {
	path := writeConnections(t, corp())
	metricsPath := filepath.Join(t.TempDir(), "ldapexplorer.prom")

	_, _, err := run(t, people(), "--config", path, "--metrics-textfile", metricsPath, "search", "-c", "corp", "(cn=*)")
	require.NoError(t, err)

	content, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "ldapexplorer_session_entries_total 2")
	assert.Contains(t, string(content), `ldapexplorer_session_outcomes_total{kind="none",status="ok"} 1`)
}

func TestConnections_Lifecycle(t *testing.T) {
	path := writeConnections(t)
	dialer := ldaptest.NewDialer()

	stdout, _, err := run(t, dialer, "--config", path, "connections", "add",
		"--name", "corp", "--host", "dc1.example.com", "--bind-dn", "cn=reader,dc=example,dc=com",
		"--bind-password", "hunter2", "--base-dn", "dc=example,dc=com")
	require.NoError(t, err)
	assert.Equal(t, "Added connection 'corp'\n", stdout)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	stdout, _, err = run(t, dialer, "--config", path, "connections", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "ldap://cn=reader,dc=example,dc=com@dc1.example.com:389/dc=example,dc=com")

	_, _, err = run(t, dialer, "--config", path, "connections", "edit", "corp", "--name", "hq", "--port", "1389")
	require.NoError(t, err)

	stdout, _, err = run(t, dialer, "--config", path, "connections", "show", "hq")
	require.NoError(t, err)

	var shown ldap.ConnectionConfig
	require.NoError(t, json.Unmarshal([]byte(stdout), &shown))
	assert.Equal(t, "1389", shown.Port)
	assert.Equal(t, "dc1.example.com", shown.Host)
	assert.Equal(t, "5000", shown.Timeout)
	assert.Equal(t, redacted, shown.BindPassword)

	_, _, err = run(t, dialer, "--config", path, "connections", "remove", "hq")
	require.NoError(t, err)

	loaded, err := store.Load(path, nil)
	require.NoError(t, err)
	assert.Empty(t, loaded.ListAll())
	assert.Empty(t, dialer.URLs())
}

func TestConnections_InvalidValuesAreNotSaved(t *testing.T) {
	testCases := map[string]struct {
		args     []string
		contains string
	}{
		"add protocol": {
			args:     []string{"add", "--name", "lab", "--host", "localhost", "--protocol", "http"},
			contains: "protocol",
		},
		"add port": {
			args:     []string{"add", "--name", "lab", "--host", "localhost", "--port", "70000"},
			contains: "port",
		},
		"add timeout": {
			args:     []string{"add", "--name", "lab", "--host", "localhost", "--timeout", "fast"},
			contains: "timeout",
		},
		"edit port": {
			args:     []string{"edit", "corp", "--port", "0"},
			contains: "port",
		},
		"edit protocol": {
			args:     []string{"edit", "corp", "--protocol", "ftp"},
			contains: "protocol",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			path := writeConnections(t, corp())
			before, err := os.ReadFile(path)
			require.NoError(t, err)

			_, _, err = run(t, ldaptest.NewDialer(), append([]string{"--config", path, "connections"}, tc.args...)...)
			require.Error(t, err)
			assert.True(t, ldap.IsKind(err, ldap.ErrorKindConfiguration))
			assert.Contains(t, err.Error(), tc.contains)

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestConnections_ShowKeepsEnvReference(t *testing.T) {
	path := writeConnections(t, corp())

	stdout, _, err := run(t, ldaptest.NewDialer(), "--config", path, "connections", "show", "corp")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"bindpwd": "env:CLI_TEST_PASSWORD"`)
}

func TestConnections_MissingName(t *testing.T) {
	for _, sub := range []string{"edit", "remove", "show"} {
		t.Run(sub, func(t *testing.T) {
			path := writeConnections(t, corp())

			_, _, err := run(t, ldaptest.NewDialer(), "--config", path, "connections", sub, "missing")
			require.Error(t, err)
			assert.ErrorIs(t, err, ldap.ErrConnectionNotFound)
		})
	}
}
