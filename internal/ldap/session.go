package ldap

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

// DefaultPageSize is the number of entries requested per search page.
const DefaultPageSize uint32 = 1000

// Session runs one bind/search/teardown sequence against a directory server.
//
// A session is single-use: it moves Idle -> Connecting -> Bound -> Searching ->
// Completed|Failed -> Closed and owns its transport connection for that whole
// time. Any Execute call after the first fails with ErrSessionClosed.
type Session struct {
	id       string
	dialer   Dialer
	env      Environment
	logger   Logger
	observer Observer
	pageSize uint32
	maxPages int
	onState  func(from, to State)

	mu        sync.Mutex
	state     State
	started   bool
	closeOnce sync.Once
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDialer sets the transport used to open connections.
func WithDialer(dialer Dialer) SessionOption {
	return func(s *Session) { s.dialer = dialer }
}

// WithEnvironment resolves "env:" tokens against env instead of the process environment.
func WithEnvironment(env Environment) SessionOption {
	return func(s *Session) { s.env = env }
}

// WithLogger sets the session logger.
func WithLogger(logger Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers an observer notified once the session is closed.
func WithObserver(observer Observer) SessionOption {
	return func(s *Session) { s.observer = observer }
}

// WithPageSize sets the paging control size.
func WithPageSize(size uint32) SessionOption {
	return func(s *Session) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithMaxPages fails the search once more than n pages are requested. Zero means unlimited.
func WithMaxPages(n int) SessionOption {
	return func(s *Session) { s.maxPages = n }
}

// WithStateHook registers a callback invoked on every state transition.
func WithStateHook(hook func(from, to State)) SessionOption {
	return func(s *Session) { s.onState = hook }
}

// NewSession creates an idle session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:       uuid.New().String(),
		logger:   NopLogger{},
		pageSize: DefaultPageSize,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = NewDialer(DialerConfig{})
	}
	return s
}

// Search runs a single search on a fresh session.
func Search(ctx context.Context, cfg ConnectionConfig, req *SearchRequest, onEntry EntryHandler, opts ...SessionOption) (*Outcome, error) {
	return NewSession(opts...).Execute(ctx, cfg, req, onEntry)
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

type execution struct {
	start   time.Time
	conn    Conn
	bound   bool
	outcome *Outcome
	fields  map[string]any
}

// Execute binds, runs a paged whole-subtree search and streams every entry to
// onEntry before accepting the next one. Entries delivered before a failure stay
// delivered; the failure is reported in the returned Outcome and error.
//
// The configured timeout bounds the whole operation: connect, bind and search.
// The connection is closed exactly once on every path.
func (s *Session) Execute(ctx context.Context, cfg ConnectionConfig, req *SearchRequest, onEntry EntryHandler) (*Outcome, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}

	exec := &execution{
		start:   time.Now(),
		outcome: &Outcome{},
		fields: map[string]any{
			"session_id": s.id,
			"connection": cfg.Name,
			"identity":   cfg.Identity(),
		},
	}
	defer s.close(exec)

	env := s.env
	if env == nil {
		env = ProcessEnvironment()
	}

	err := s.run(ctx, exec, env, cfg, req, onEntry)
	s.settle(exec, err)

	return exec.outcome, exec.outcome.Err
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.started {
		return ErrSessionBusy
	}
	s.started = true
	return nil
}

func (s *Session) run(ctx context.Context, exec *execution, env Environment, cfg ConnectionConfig, req *SearchRequest, onEntry EntryHandler) error {
	if req == nil {
		return NewConfigurationError("request", "search request cannot be nil", nil)
	}
	if err := cfg.Validate(env); err != nil {
		return err
	}
	timeout, err := cfg.TimeoutDuration(env)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.transition(StateConnecting)

	url := cfg.EndpointURL(env)
	LogConnectionEvent(s.logger, "connection_attempt", with(exec.fields, map[string]any{
		"url":        url,
		"timeout_ms": timeout.Milliseconds(),
	}))

	dialStart := time.Now()
	conn, err := s.dialer.Dial(ctx, url, timeout)
	if err != nil {
		LogConnectionEvent(s.logger, "connection_failed", with(exec.fields, map[string]any{"url": url, "error": err.Error()}))
		return NewSessionError(ErrorKindConnect, url, err)
	}
	exec.conn = conn
	LogPerformance(s.logger, "connect", time.Since(dialStart), with(exec.fields, map[string]any{"url": url}))

	bindDN := cfg.ResolvedBindDN(env)
	LogConnectionEvent(s.logger, "authentication_attempt", with(exec.fields, map[string]any{"bind_dn": bindDN}))
	if err := bind(conn, bindDN, cfg.ResolvedBindPassword(env)); err != nil {
		LogConnectionEvent(s.logger, "authentication_failed", with(exec.fields, map[string]any{"bind_dn": bindDN}))
		return NewSessionError(ErrorKindBind, bindDN, err)
	}
	exec.bound = true
	s.transition(StateBound)
	LogConnectionEvent(s.logger, "authentication_success", with(exec.fields, map[string]any{"bind_dn": bindDN}))

	baseDN := env.Resolve(req.BaseDN)
	if baseDN == "" {
		baseDN = cfg.ResolvedBaseDN(env)
	}

	s.transition(StateSearching)
	return s.search(ctx, exec, baseDN, req, timeout, onEntry)
}

// bind authenticates conn. Blank credentials mean an anonymous bind; a DN
// with an empty password is still refused by the client.
func bind(conn Conn, dn, password string) error {
	if dn == "" && password == "" {
		return conn.UnauthenticatedBind("")
	}
	return conn.Bind(dn, password)
}

func (s *Session) search(ctx context.Context, exec *execution, baseDN string, req *SearchRequest, timeout time.Duration, onEntry EntryHandler) error {
	fields := with(exec.fields, map[string]any{
		"base_dn":    baseDN,
		"filter":     req.Filter,
		"attributes": req.Attributes,
		"page_size":  s.pageSize,
	})
	s.logger.Debug("Starting LDAP search", fields)

	paging := ldap.NewControlPaging(s.pageSize)
	searchReq := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		timeLimitSeconds(timeout),
		false,
		req.Filter,
		req.Attributes,
		[]ldap.Control{paging},
	)

	start := time.Now()
	for {
		if s.maxPages > 0 && exec.outcome.Pages >= s.maxPages {
			return NewSessionError(ErrorKindSearch, "paging", fmt.Errorf("page limit of %d exceeded", s.maxPages))
		}
		exec.outcome.Pages++

		controls, err := s.searchPage(ctx, exec, searchReq, onEntry)
		if err != nil {
			return NewSessionError(ErrorKindSearch, req.Filter, err)
		}

		pagingResult, ok := ldap.FindControl(controls, ldap.ControlTypePaging).(*ldap.ControlPaging)
		if !ok || len(pagingResult.Cookie) == 0 {
			break
		}
		paging.SetCookie(pagingResult.Cookie)
	}

	LogPerformance(s.logger, "search", time.Since(start), with(fields, map[string]any{
		"entry_count": exec.outcome.EntryCount,
		"pages":       exec.outcome.Pages,
		"referrals":   len(exec.outcome.Referrals),
	}))
	return nil
}

// searchPage streams one page and returns the controls of its completion.
func (s *Session) searchPage(ctx context.Context, exec *execution, searchReq *ldap.SearchRequest, onEntry EntryHandler) ([]ldap.Control, error) {
	pageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Unbuffered: the next entry is not accepted until onEntry has returned.
	resp := exec.conn.SearchAsync(pageCtx, searchReq, 0)

	var controls []ldap.Control
	for resp.Next() {
		if entry := resp.Entry(); entry != nil {
			if onEntry != nil {
				onEntry(newSearchEntry(entry))
			}
			exec.outcome.EntryCount++
			continue
		}
		if referral := resp.Referral(); referral != "" {
			exec.outcome.Referrals = append(exec.outcome.Referrals, referral)
			s.logger.Info("Referral observed and not followed", with(exec.fields, map[string]any{"referral": referral}))
			continue
		}
		if c := resp.Controls(); len(c) > 0 {
			controls = c
		}
	}

	if err := resp.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return controls, nil
}

// settle records the terminal status. It runs before teardown.
func (s *Session) settle(exec *execution, err error) {
	if err == nil {
		exec.outcome.Status = StatusOK
		s.transition(StateCompleted)
		return
	}

	exec.outcome.Status = StatusError
	exec.outcome.Err = err
	exec.outcome.Detail = err.Error()

	var sessionErr *SessionError
	if errors.As(err, &sessionErr) {
		exec.outcome.ResultCode = sessionErr.LDAPCode
	}

	s.transition(StateFailed)
	LogLDAPError(s.logger, "execute", err, with(exec.fields, map[string]any{"entry_count": exec.outcome.EntryCount}))
}

// close unbinds and closes the transport, then moves to Closed. Safe to call more than once.
func (s *Session) close(exec *execution) {
	s.closeOnce.Do(func() {
		if exec.conn != nil {
			if exec.bound {
				if err := exec.conn.Unbind(); err != nil {
					s.logger.Debug("Unbind failed", with(exec.fields, map[string]any{"error": err.Error()}))
				}
			}
			if err := exec.conn.Close(); err != nil {
				s.logger.Debug("Close failed", with(exec.fields, map[string]any{"error": err.Error()}))
			}
			LogConnectionEvent(s.logger, "connection_closed", with(exec.fields, nil))
		}

		exec.outcome.Duration = time.Since(exec.start)
		s.transition(StateClosed)

		if s.observer != nil {
			s.observer.SessionFinished(exec.outcome)
		}
	})
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	s.logger.Trace("Session state transition", map[string]any{
		"session_id": s.id,
		"from":       from.String(),
		"to":         to.String(),
	})
	if s.onState != nil {
		s.onState(from, to)
	}
}

// ErrorKind returns the kind of the outcome's failure, or "" on success.
func (o *Outcome) ErrorKind() ErrorKind {
	var sessionErr *SessionError
	if errors.As(o.Err, &sessionErr) {
		return sessionErr.Kind
	}
	return ""
}

func timeLimitSeconds(timeout time.Duration) int {
	secs := int((timeout + time.Second - 1) / time.Second)
	return max(secs, 1)
}

func with(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	maps.Copy(out, base)
	maps.Copy(out, extra)
	return SanitizeFields(out)
}
