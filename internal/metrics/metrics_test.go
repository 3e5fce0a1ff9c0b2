package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

func TestSessionMetrics_SessionFinished(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(reg)

	m.SessionFinished(&ldap.Outcome{
		Status:     ldap.StatusOK,
		EntryCount: 3,
		Pages:      2,
		Referrals:  []string{"ldap://other.example.com/"},
		Duration:   20 * time.Millisecond,
	})
	m.SessionFinished(&ldap.Outcome{
		Status:     ldap.StatusError,
		EntryCount: 1,
		Pages:      1,
		Err:        ldap.NewConfigurationError("timeout", "bad", nil),
	})
	m.SessionFinished(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("ok", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("error", "configuration")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.EntriesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReferralsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PagesTotal))

	count, err := testutil.GatherAndCount(reg, "ldapexplorer_session_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSessionMetrics_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(reg)
	m.SessionFinished(&ldap.Outcome{Status: ldap.StatusOK, EntryCount: 2})

	expected := `
# HELP ldapexplorer_session_entries_total Total number of entries delivered to search handlers
# TYPE ldapexplorer_session_entries_total counter
ldapexplorer_session_entries_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ldapexplorer_session_entries_total"))
}

func TestNewSessionMetrics_NilRegisterer(t *testing.T) {
	assert.NotPanics(t, func() {
		NewSessionMetrics(nil).SessionFinished(&ldap.Outcome{Status: ldap.StatusOK})
	})
}
