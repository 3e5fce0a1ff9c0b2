// Package metrics provides Prometheus metrics for LDAP search sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

const (
	namespace = "ldapexplorer"
	subsystem = "session"
)

// SessionMetrics records one observation per finished session.
//
// Metrics:
//   - ldapexplorer_session_outcomes_total{status,kind} - sessions by terminal status and error kind
//   - ldapexplorer_session_entries_total - entries delivered to handlers
//   - ldapexplorer_session_referrals_total - referrals observed and not followed
//   - ldapexplorer_session_pages_total - search pages requested
//   - ldapexplorer_session_duration_seconds{status} - wall time from connect to close
type SessionMetrics struct {
	OutcomesTotal  *prometheus.CounterVec
	EntriesTotal   prometheus.Counter
	ReferralsTotal prometheus.Counter
	PagesTotal     prometheus.Counter
	Duration       *prometheus.HistogramVec
}

var _ ldap.Observer = (*SessionMetrics)(nil)

// NewSessionMetrics creates the session metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	factory := promauto.With(reg)

	return &SessionMetrics{
		OutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "outcomes_total",
				Help:      "Total number of finished search sessions by status and error kind",
			},
			[]string{"status", "kind"},
		),

		EntriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "entries_total",
				Help:      "Total number of entries delivered to search handlers",
			},
		),

		ReferralsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "referrals_total",
				Help:      "Total number of referrals observed and not followed",
			},
		),

		PagesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pages_total",
				Help:      "Total number of search pages requested",
			},
		),

		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "duration_seconds",
				Help:      "Duration of search sessions in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"status"},
		),
	}
}

// SessionFinished implements ldap.Observer.
func (m *SessionMetrics) SessionFinished(outcome *ldap.Outcome) {
	if outcome == nil {
		return
	}

	status := string(outcome.Status)
	if status == "" {
		status = string(ldap.StatusError)
	}
	kind := string(outcome.ErrorKind())
	if kind == "" {
		kind = "none"
	}

	m.OutcomesTotal.WithLabelValues(status, kind).Inc()
	m.EntriesTotal.Add(float64(outcome.EntryCount))
	m.ReferralsTotal.Add(float64(len(outcome.Referrals)))
	m.PagesTotal.Add(float64(outcome.Pages))
	m.Duration.WithLabelValues(status).Observe(outcome.Duration.Seconds())
}
