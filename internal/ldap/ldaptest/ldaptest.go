// Package ldaptest provides an in-memory directory transport for tests of
// packages that run searches through internal/ldap.
package ldaptest

import (
	"context"
	"sync"
	"time"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

// Bind records one bind attempt.
type Bind struct {
	DN       string
	Password string
}

// Dialer is an ldap.Dialer serving a fixed result set from memory. Every
// search returns Entries, then Referrals, then fails with SearchErr if set.
type Dialer struct {
	Entries   []*goldap.Entry
	Referrals []string
	DialErr   error
	BindErr   error
	SearchErr error

	mu       sync.Mutex
	urls     []string
	binds    []Bind
	requests []*goldap.SearchRequest
	closed   int
}

var _ ldap.Dialer = (*Dialer)(nil)

// NewDialer returns a Dialer serving entries.
func NewDialer(entries ...*goldap.Entry) *Dialer {
	return &Dialer{Entries: entries}
}

// Entry builds a directory entry with string attributes.
func Entry(dn string, attributes map[string][]string) *goldap.Entry {
	return goldap.NewEntry(dn, attributes)
}

// Dial implements ldap.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string, timeout time.Duration) (ldap.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.urls = append(d.urls, url)
	if d.DialErr != nil {
		return nil, d.DialErr
	}
	return &conn{dialer: d}, nil
}

// URLs returns the dialed endpoint URLs.
func (d *Dialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// Binds returns the bind attempts.
func (d *Dialer) Binds() []Bind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Bind(nil), d.binds...)
}

// Requests returns the search requests received.
func (d *Dialer) Requests() []*goldap.SearchRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*goldap.SearchRequest(nil), d.requests...)
}

// Closed returns how many connections were closed.
func (d *Dialer) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type conn struct {
	dialer *Dialer
	once   sync.Once
}

func (c *conn) Bind(username, password string) error {
	c.dialer.mu.Lock()
	defer c.dialer.mu.Unlock()

	c.dialer.binds = append(c.dialer.binds, Bind{DN: username, Password: password})
	return c.dialer.BindErr
}

func (c *conn) UnauthenticatedBind(username string) error {
	return c.Bind(username, "")
}

func (c *conn) SearchAsync(ctx context.Context, searchRequest *goldap.SearchRequest, bufferSize int) goldap.Response {
	c.dialer.mu.Lock()
	defer c.dialer.mu.Unlock()

	c.dialer.requests = append(c.dialer.requests, searchRequest)

	results := make([]result, 0, len(c.dialer.Entries)+len(c.dialer.Referrals))
	for _, entry := range c.dialer.Entries {
		results = append(results, result{entry: entry})
	}
	for _, referral := range c.dialer.Referrals {
		results = append(results, result{referral: referral})
	}

	return &response{ctx: ctx, results: results, err: c.dialer.SearchErr}
}

func (c *conn) Unbind() error {
	return c.Close()
}

func (c *conn) Close() error {
	c.once.Do(func() {
		c.dialer.mu.Lock()
		c.dialer.closed++
		c.dialer.mu.Unlock()
	})
	return nil
}

type result struct {
	entry    *goldap.Entry
	referral string
}

// response replays results in order; it stops early when ctx is done.
type response struct {
	ctx     context.Context
	results []result
	err     error
	pos     int
	current result
}

func (r *response) Next() bool {
	if r.ctx.Err() != nil || r.pos >= len(r.results) {
		return false
	}
	r.current = r.results[r.pos]
	r.pos++
	return true
}

func (r *response) Entry() *goldap.Entry       { return r.current.entry }
func (r *response) Referral() string           { return r.current.referral }
func (r *response) Controls() []goldap.Control { return nil }

func (r *response) Err() error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	return r.err
}
