package ldap

import "github.com/go-ldap/ldap/v3"

// SearchRequestMessage is the search request as received from a presentation layer.
type SearchRequestMessage struct {
	Filter     string   `json:"filter"`
	Attributes []string `json:"attributes"`
}

// Request converts the message into a SearchRequest rooted at baseDN ("" uses the connection's).
func (m SearchRequestMessage) Request(baseDN string) *SearchRequest {
	return &SearchRequest{
		Filter:     m.Filter,
		Attributes: m.Attributes,
		BaseDN:     baseDN,
	}
}

// Validate checks that the filter compiles.
func (m SearchRequestMessage) Validate() error {
	if m.Filter == "" {
		return NewConfigurationError("filter", "filter cannot be empty", nil)
	}
	if _, err := ldap.CompileFilter(m.Filter); err != nil {
		return NewConfigurationError("filter", err.Error(), err)
	}
	return nil
}

// EntryNotification is sent once per delivered entry.
//
// Values that are not valid UTF-8 are rendered as "base64:" followed by their
// base64 encoding. Because a text value may itself start with "base64:", the
// prefix alone is ambiguous: only attributes named in BinaryAttributes carry
// encoded values.
type EntryNotification struct {
	DistinguishedName string              `json:"distinguishedName"`
	Attributes        map[string][]string `json:"attributes"`
	BinaryAttributes  []string            `json:"binaryAttributes,omitempty"`
}

// OutcomeNotification is sent once when the search reaches a terminal state.
type OutcomeNotification struct {
	Status     OutcomeStatus `json:"status"`
	EntryCount int           `json:"entryCount"`
	Detail     string        `json:"detail,omitempty"`
}

// Notification converts the entry into its wire form.
func (e *SearchEntry) Notification() EntryNotification {
	return EntryNotification{
		DistinguishedName: e.DN,
		Attributes:        e.DisplayAttributes(),
		BinaryAttributes:  e.BinaryAttributes(),
	}
}

// Notification converts the outcome into its wire form.
func (o *Outcome) Notification() OutcomeNotification {
	n := OutcomeNotification{
		Status:     o.Status,
		EntryCount: o.EntryCount,
	}
	if o.Status == StatusError {
		n.Detail = o.Detail
	}
	return n
}
