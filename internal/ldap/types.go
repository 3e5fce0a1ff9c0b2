package ldap

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// ConnectionConfig describes how to reach and authenticate against a directory server.
//
// Every field except Name holds either a literal value or an "env:<VARNAME>" token.
// Tokens are resolved against an Environment at point of use and never cached.
// Port and Timeout are strings so that they can carry a token as well.
type ConnectionConfig struct {
	Name         string `json:"name" koanf:"name"`
	Protocol     string `json:"protocol" koanf:"protocol" default:"ldap"`
	Host         string `json:"host" koanf:"host"`
	Port         string `json:"port" koanf:"port" default:"389"`
	BindDN       string `json:"binddn" koanf:"binddn"`
	BindPassword string `json:"bindpwd" koanf:"bindpwd"`
	BaseDN       string `json:"basedn" koanf:"basedn"`
	Timeout      string `json:"timeout" koanf:"timeout" default:"5000"` // milliseconds
}

// SearchRequest describes one search invocation. The scope is always whole-subtree.
type SearchRequest struct {
	Filter     string   // LDAP filter, e.g. "(objectClass=person)"
	Attributes []string // Ordered attribute names; empty requests all attributes
	BaseDN     string   // Overrides the connection's base DN when set
}

// EntryAttribute is one multi-valued attribute of a SearchEntry.
type EntryAttribute struct {
	Name       string
	Values     []string
	ByteValues [][]byte
}

// SearchEntry is one directory object returned by a search.
type SearchEntry struct {
	DN         string
	Attributes []*EntryAttribute
}

// EntryHandler receives entries in the order the transport delivered them.
type EntryHandler func(entry *SearchEntry)

// OutcomeStatus is the terminal status of a session.
type OutcomeStatus string

const (
	StatusOK    OutcomeStatus = "ok"
	StatusError OutcomeStatus = "error"
)

// Outcome is the terminal state of one search.
type Outcome struct {
	Status     OutcomeStatus
	EntryCount int           // Entries delivered to the handler, including before a failure
	Pages      int           // Pages requested from the server
	ResultCode uint16        // LDAP result code of the completion (0 on success)
	Referrals  []string      // Referral URIs observed and not followed
	Detail     string        // Error detail when Status is StatusError
	Err        error         // Typed failure, nil on success
	Duration   time.Duration // Wall time from connect to close
}

// State is a session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateBound
	StateSearching
	StateCompleted
	StateFailed
	StateClosed
)

// String returns string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateBound:
		return "bound"
	case StateSearching:
		return "searching"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is the transport capability a session needs from a directory connection.
// *ldap.Conn from go-ldap satisfies it.
type Conn interface {
	Bind(username, password string) error
	// UnauthenticatedBind performs a simple bind with an empty password.
	UnauthenticatedBind(username string) error
	// SearchAsync returns a lazy, finite, non-restartable stream of results.
	SearchAsync(ctx context.Context, searchRequest *ldap.SearchRequest, bufferSize int) ldap.Response
	Unbind() error
	Close() error
}

// Dialer opens transport connections.
type Dialer interface {
	Dial(ctx context.Context, url string, timeout time.Duration) (Conn, error)
}

// DialerConfig holds transport settings shared by all sessions of a host.
type DialerConfig struct {
	TLSConfig *tls.Config // Used for ldaps:// endpoints
}

// Observer is notified once per session when it reaches a terminal outcome.
type Observer interface {
	SessionFinished(outcome *Outcome)
}
