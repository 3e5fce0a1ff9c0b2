package ldap

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

// GUIDBytesLength is the length of an Active Directory objectGUID.
const GUIDBytesLength = 16

// BinaryPrefix marks a rendered value that was not valid UTF-8.
const BinaryPrefix = "base64:"

func newSearchEntry(entry *ldap.Entry) *SearchEntry {
	out := &SearchEntry{
		DN:         entry.DN,
		Attributes: make([]*EntryAttribute, 0, len(entry.Attributes)),
	}
	for _, attr := range entry.Attributes {
		if attr == nil {
			continue
		}
		out.Attributes = append(out.Attributes, &EntryAttribute{
			Name:       attr.Name,
			Values:     attr.Values,
			ByteValues: attr.ByteValues,
		})
	}
	return out
}

// Attribute returns the first attribute whose name matches case-insensitively.
func (e *SearchEntry) Attribute(name string) *EntryAttribute {
	for _, attr := range e.Attributes {
		if strings.EqualFold(attr.Name, name) {
			return attr
		}
	}
	return nil
}

// DisplayValues returns the attribute's values rendered for display, in server order.
func (a *EntryAttribute) DisplayValues() []string {
	if len(a.ByteValues) == 0 {
		return append([]string(nil), a.Values...)
	}
	out := make([]string, len(a.ByteValues))
	for i, raw := range a.ByteValues {
		out[i] = RenderValue(a.Name, raw)
	}
	return out
}

// DisplayAttributes maps every attribute name to its rendered values.
func (e *SearchEntry) DisplayAttributes() map[string][]string {
	out := make(map[string][]string, len(e.Attributes))
	for _, attr := range e.Attributes {
		out[attr.Name] = append(out[attr.Name], attr.DisplayValues()...)
	}
	return out
}

// AttributeNames returns the attribute names in the order the server sent them.
func (e *SearchEntry) AttributeNames() []string {
	names := make([]string, 0, len(e.Attributes))
	for _, attr := range e.Attributes {
		names = append(names, attr.Name)
	}
	return names
}

// Binary reports whether any value of the attribute renders as base64.
func (a *EntryAttribute) Binary() bool {
	for _, raw := range a.ByteValues {
		if rendersAsBase64(a.Name, raw) {
			return true
		}
	}
	return false
}

// BinaryAttributes returns, in server order, the names of attributes whose
// rendered values carry the "base64:" prefix as an encoding marker. A text
// value that merely starts with "base64:" does not list its attribute.
func (e *SearchEntry) BinaryAttributes() []string {
	var names []string
	for _, attr := range e.Attributes {
		if attr.Binary() {
			names = append(names, attr.Name)
		}
	}
	return names
}

// RenderValue turns a raw attribute value into a printable string.
// objectGUID and objectSid get their canonical textual forms; other binary
// values are base64 encoded with a "base64:" prefix.
func RenderValue(name string, raw []byte) string {
	switch {
	case isGUID(name, raw):
		return guidString(raw)
	case isSID(name, raw):
		return objectsid.Decode(raw).String()
	case utf8.Valid(raw):
		return string(raw)
	default:
		return BinaryPrefix + base64.StdEncoding.EncodeToString(raw)
	}
}

func isGUID(name string, raw []byte) bool {
	return strings.EqualFold(name, "objectGUID") && len(raw) == GUIDBytesLength
}

func isSID(name string, raw []byte) bool {
	return strings.EqualFold(name, "objectSid") && len(raw) >= 8
}

func rendersAsBase64(name string, raw []byte) bool {
	return !isGUID(name, raw) && !isSID(name, raw) && !utf8.Valid(raw)
}

// guidString converts Active Directory mixed-endian GUID bytes to the standard form.
func guidString(guidBytes []byte) string {
	standardBytes := make([]byte, GUIDBytesLength)

	// Data1, Data2 and Data3 are little-endian
	standardBytes[0] = guidBytes[3]
	standardBytes[1] = guidBytes[2]
	standardBytes[2] = guidBytes[1]
	standardBytes[3] = guidBytes[0]
	standardBytes[4] = guidBytes[5]
	standardBytes[5] = guidBytes[4]
	standardBytes[6] = guidBytes[7]
	standardBytes[7] = guidBytes[6]

	// Data4 is big-endian
	copy(standardBytes[8:], guidBytes[8:])

	return uuid.UUID(standardBytes).String()
}
