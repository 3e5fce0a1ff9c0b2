package store

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

const sampleYAML = `connections:
  - name: corp
    protocol: ldaps
    host: dc1.example.com
    port: 636
    binddn: cn=svc,dc=example,dc=com
    bindpwd: env:CORP_PASSWORD
    basedn: dc=example,dc=com
    timeout: "10000"
  - name: lab
    host: localhost
  - name: corp
    host: dc2.example.com
`

func writeFile(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connections.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestParse(t *testing.T) {
	items, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, ldap.ConnectionConfig{
		Name:         "corp",
		Protocol:     "ldaps",
		Host:         "dc1.example.com",
		Port:         "636",
		BindDN:       "cn=svc,dc=example,dc=com",
		BindPassword: "env:CORP_PASSWORD",
		BaseDN:       "dc=example,dc=com",
		Timeout:      "10000",
	}, items[0])

	// defaults
	assert.Equal(t, "ldap", items[1].Protocol)
	assert.Equal(t, "389", items[1].Port)
	assert.Equal(t, "5000", items[1].Timeout)
}

func TestParse_Empty(t *testing.T) {
	items, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("connections: [unterminated"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	items, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	data, err := Marshal(items)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bindpwd: env:CORP_PASSWORD")

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, items, again)
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)
	assert.Empty(t, s.ListAll())
}

func TestLoad_FindByName(t *testing.T) {
	s, err := Load(writeFile(t, sampleYAML, 0600), nil)
	require.NoError(t, err)

	cfg, warning, err := s.FindByName("corp")
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.Equal(t, 2, warning.Matches)
	assert.Equal(t, "dc1.example.com", cfg.Host)

	_, _, err = s.FindByName("missing")
	assert.ErrorIs(t, err, ldap.ErrConnectionNotFound)
}

func TestLoad_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on Windows")
	}

	_, err := Load(writeFile(t, sampleYAML, 0644), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure connections file permissions")
}

func TestLoad_FileTooLarge(t *testing.T) {
	content := "connections: []\n#" + strings.Repeat("x", maxFileSize) + "\n"
	_, err := Load(writeFile(t, content, 0600), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestFileStore_CRUDPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "connections.yaml")

	s, err := Load(path, nil)
	require.NoError(t, err)

	require.NoError(t, s.Add(ldap.ConnectionConfig{Name: "a", Host: "a.example.com"}))
	require.NoError(t, s.Add(ldap.ConnectionConfig{Name: "b", Host: "b.example.com", Port: "env:B_PORT"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	require.NoError(t, s.Edit("a", ldap.ConnectionConfig{Name: "a2", Host: "a2.example.com"}))
	require.NoError(t, s.Remove("b"))

	reloaded, err := Load(path, nil)
	require.NoError(t, err)
	list := reloaded.ListAll()
	require.Len(t, list, 1)
	assert.Equal(t, "a2", list[0].Name)
	assert.Equal(t, "a2.example.com", list[0].Host)
	assert.Equal(t, "389", list[0].Port)
}

func TestFileStore_FailedEditLeavesStoreUnchanged(t *testing.T) {
	path := writeFile(t, sampleYAML, 0600)
	s, err := Load(path, nil)
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = s.Edit("missing", ldap.ConnectionConfig{Name: "x", Host: "x"})
	assert.ErrorIs(t, err, ldap.ErrConnectionNotFound)
	assert.ErrorIs(t, s.Remove("missing"), ldap.ErrConnectionNotFound)
	assert.Error(t, s.Add(ldap.ConnectionConfig{}))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, s.ListAll(), 3)
}

func TestFileStore_RejectsInvalidLiterals(t *testing.T) {
	testCases := map[string]ldap.ConnectionConfig{
		"protocol":          {Name: "x", Host: "x.example.com", Protocol: "http"},
		"port not a number": {Name: "x", Host: "x.example.com", Port: "ldap"},
		"port out of range": {Name: "x", Host: "x.example.com", Port: "70000"},
		"timeout":           {Name: "x", Host: "x.example.com", Timeout: "-1"},
	}

	for name, cfg := range testCases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, sampleYAML, 0600)
			s, err := Load(path, nil)
			require.NoError(t, err)

			before, err := os.ReadFile(path)
			require.NoError(t, err)

			assert.True(t, ldap.IsKind(s.Add(cfg), ldap.ErrorKindConfiguration))
			assert.True(t, ldap.IsKind(s.Edit("lab", cfg), ldap.ErrorKindConfiguration))

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			assert.Len(t, s.ListAll(), 3)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	if runtime.GOOS == "windows" {
		t.Skip("UserHomeDir ignores HOME on Windows")
	}

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.config/ldap-explorer/connections.yaml", path)
}
