// Package wstrade is an unofficial Go client for the Wealthsimple Trade
// private HTTP API. A Session bundles authentication state, custom
// headers, the security-id resolver cache, and per-exchange quote
// providers into one isolated unit; independent accounts get
// independent Sessions in the same process.
package wstrade

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/northquay/wstrade-go/internal/rate"
	"github.com/northquay/wstrade-go/pkg/httpclient"
)

// Transport performs one signed HTTP call against the trade service.
// The core decides when to call it and with which tokens and headers;
// implementations own serialization, pacing, and retries.
// *httpclient.Client is the production implementation.
type Transport interface {
	Do(ctx context.Context, req httpclient.Request, out any) error
}

// Session is one isolated client for one brokerage login. Two Sessions
// never observe each other's tokens, headers, resolver cache, or quote
// overrides.
type Session struct {
	logger    *zap.Logger
	transport Transport
	now       func() time.Time

	tokens   *tokenStore
	hub      *eventHub
	auth     *authenticator
	resolver *securityResolver
	registry *quoteRegistry
	headers  *headerSet

	implicitRefresh atomic.Bool

	// Grouped operation surfaces.
	Auth     *AuthAPI
	Headers  *HeadersAPI
	Config   *ConfigAPI
	Accounts *AccountsAPI
	Orders   *OrdersAPI
	Quotes   *QuotesAPI
	Data     *DataAPI
}

// Option customizes session construction.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	baseURL   string
	transport Transport
	http      *http.Client
	now       func() time.Time
}

// WithLogger sets the session logger (default zap.NewNop()).
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBaseURL overrides the trade service base URL.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithTransport replaces the HTTP transport entirely (testing, custom
// signing, proxying). WithBaseURL and WithHTTPClient are ignored when a
// transport is supplied.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithHTTPClient sets the *http.Client used by the default transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.http = c }
}

// WithClock overrides the token-expiry clock. Tests use this to age
// tokens without sleeping.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New constructs a Session with fresh, empty state. Implicit token
// refresh starts enabled.
func New(opts ...Option) *Session {
	o := &options{
		logger:  zap.NewNop(),
		baseURL: DefaultBaseURL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	transport := o.transport
	if transport == nil {
		transport = httpclient.New(o.logger, o.baseURL, o.http, rate.New(rate.DefaultConfig), 2)
	}

	s := &Session{
		logger:    o.logger,
		transport: transport,
		now:       o.now,
		tokens:    &tokenStore{},
		hub:       &eventHub{},
		headers:   newHeaderSet(),
	}
	s.implicitRefresh.Store(true)

	s.auth = newAuthenticator(s)
	s.resolver = newSecurityResolver(s)
	s.registry = newQuoteRegistry(s)

	s.Auth = &AuthAPI{s: s}
	s.Headers = &HeadersAPI{s: s}
	s.Config = &ConfigAPI{s: s}
	s.Accounts = &AccountsAPI{s: s}
	s.Orders = &OrdersAPI{s: s}
	s.Quotes = &QuotesAPI{s: s}
	s.Data = &DataAPI{s: s}
	return s
}

var (
	defaultOnce    sync.Once
	defaultSession *Session
)

// Default returns the process-wide session for simple single-account
// use. It is built by the same construction path as New; nothing about
// it is special-cased.
func Default() *Session {
	defaultOnce.Do(func() {
		defaultSession = New()
	})
	return defaultSession
}

// call issues one authenticated request: it runs the implicit-refresh
// gate, sends the request with the current access token and custom
// headers, and on a 401 (gate enabled) performs one coalesced refresh
// and retries the request exactly once.
func (s *Session) call(ctx context.Context, req httpclient.Request, out any) error {
	if err := s.auth.ensureFresh(ctx); err != nil {
		return err
	}

	err := s.send(ctx, req, out)
	if err == nil || !errors.Is(err, ErrUnauthorized) || !s.implicitRefresh.Load() {
		return err
	}

	if rerr := s.auth.refreshShared(ctx); rerr != nil {
		return err
	}
	return s.send(ctx, req, out)
}

// customHeaders materializes the session's custom header set for one
// outgoing request.
func (s *Session) customHeaders() http.Header {
	h := http.Header{}
	for name, value := range s.headers.snapshot() {
		h.Set(name, value)
	}
	return h
}

// send dispatches req with the session's current access token and
// custom headers merged in. Headers and tokens are read at call time;
// later mutations never affect requests already dispatched.
func (s *Session) send(ctx context.Context, req httpclient.Request, out any) error {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	for name, value := range s.headers.snapshot() {
		req.Header.Set(name, value)
	}
	if access := s.tokens.Snapshot().Access; access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	if err := s.transport.Do(ctx, req, out); err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.Status == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}
