package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

const (
	OutputJSON = "json"
	OutputCSV  = "csv"

	// csvValueSeparator joins the values of a multi-valued attribute in one cell.
	csvValueSeparator = "; "
)

// resultWriter renders search results. WriteEntry is called once per entry in
// delivery order; Finish is called once with the terminal outcome.
type resultWriter interface {
	WriteEntry(entry *ldap.SearchEntry) error
	Finish(outcome *ldap.Outcome) error
}

func newResultWriter(format string, w io.Writer, attributes []string) (resultWriter, error) {
	switch format {
	case OutputJSON:
		return &jsonWriter{enc: json.NewEncoder(w)}, nil
	case OutputCSV:
		return &csvWriter{w: w, columns: slices.Clone(attributes), fixed: len(attributes) > 0}, nil
	default:
		return nil, fmt.Errorf("invalid output format %q: must be %s or %s", format, OutputJSON, OutputCSV)
	}
}

// jsonWriter streams one JSON document per line: an entry notification per
// entry, then the outcome notification.
type jsonWriter struct {
	enc *json.Encoder
}

func (j *jsonWriter) WriteEntry(entry *ldap.SearchEntry) error {
	return j.enc.Encode(entry.Notification())
}

func (j *jsonWriter) Finish(outcome *ldap.Outcome) error {
	if outcome == nil {
		return nil
	}
	return j.enc.Encode(outcome.Notification())
}

// csvWriter buffers entries because the header depends on every entry when
// all attributes are requested. The first column is always "dn".
type csvWriter struct {
	w       io.Writer
	columns []string
	fixed   bool
	entries []*ldap.SearchEntry
}

func (c *csvWriter) WriteEntry(entry *ldap.SearchEntry) error {
	if !c.fixed {
		for _, name := range entry.AttributeNames() {
			if !slices.ContainsFunc(c.columns, func(column string) bool { return strings.EqualFold(column, name) }) {
				c.columns = append(c.columns, name)
			}
		}
	}
	c.entries = append(c.entries, entry)
	return nil
}

// Finish writes the buffered rows. Nothing is written for a failed search.
func (c *csvWriter) Finish(outcome *ldap.Outcome) error {
	if outcome == nil || outcome.Status != ldap.StatusOK {
		return nil
	}

	w := csv.NewWriter(c.w)
	if err := w.Write(append([]string{"dn"}, c.columns...)); err != nil {
		return err
	}

	record := make([]string, len(c.columns)+1)
	for _, entry := range c.entries {
		record[0] = entry.DN
		for i, name := range c.columns {
			record[i+1] = ""
			// Servers may return a different capitalization than requested
			if attr := entry.Attribute(name); attr != nil {
				record[i+1] = strings.Join(attr.DisplayValues(), csvValueSeparator)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
