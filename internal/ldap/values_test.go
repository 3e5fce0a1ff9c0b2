package ldap

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderValue(t *testing.T) {
	// objectGUID for 12345678-1234-1234-1234-123456789012 as stored by Active Directory
	adGUID := []byte{0x78, 0x56, 0x34, 0x12, 0x34, 0x12, 0x34, 0x12, 0x12, 0x34, 0x12, 0x34, 0x56, 0x78, 0x90, 0x12}

	// S-1-5-21-1-2-3-500
	sid := []byte{
		0x01, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05,
		0x15, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
		0xf4, 0x01, 0x00, 0x00,
	}

	tests := []struct {
		name string
		attr string
		raw  []byte
		want string
	}{
		{name: "text", attr: "cn", raw: []byte("John Doe"), want: "John Doe"},
		{name: "utf8", attr: "displayName", raw: []byte("Zoë"), want: "Zoë"},
		{name: "empty", attr: "description", raw: []byte{}, want: ""},
		{name: "guid", attr: "objectGUID", raw: adGUID, want: "12345678-1234-1234-1234-123456789012"},
		{name: "guid case insensitive", attr: "objectguid", raw: adGUID, want: "12345678-1234-1234-1234-123456789012"},
		{name: "sid", attr: "objectSid", raw: sid, want: "S-1-5-21-1-2-3-500"},
		{name: "binary", attr: "jpegPhoto", raw: []byte{0xff, 0xd8, 0xff}, want: "base64:/9j/"},
		{name: "short guid falls through", attr: "objectGUID", raw: []byte{0xff, 0xfe}, want: "base64://4="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderValue(tt.attr, tt.raw))
		})
	}
}

func TestNewSearchEntry(t *testing.T) {
	entry := ldap.NewEntry("cn=John,dc=example,dc=com", nil)
	entry.Attributes = []*ldap.EntryAttribute{
		ldap.NewEntryAttribute("cn", []string{"John"}),
		nil,
		ldap.NewEntryAttribute("mail", []string{"john@example.com", "jd@example.com"}),
	}

	got := newSearchEntry(entry)

	assert.Equal(t, "cn=John,dc=example,dc=com", got.DN)
	assert.Equal(t, []string{"cn", "mail"}, got.AttributeNames())
	assert.Equal(t, map[string][]string{
		"cn":   {"John"},
		"mail": {"john@example.com", "jd@example.com"},
	}, got.DisplayAttributes())

	mail := got.Attribute("MAIL")
	require.NotNil(t, mail)
	assert.Equal(t, []string{"john@example.com", "jd@example.com"}, mail.Values)
	assert.Nil(t, got.Attribute("sn"))
}

func TestEntryAttribute_DisplayValuesWithoutBytes(t *testing.T) {
	attr := &EntryAttribute{Name: "cn", Values: []string{"a", "b"}}
	assert.Equal(t, []string{"a", "b"}, attr.DisplayValues())
}
