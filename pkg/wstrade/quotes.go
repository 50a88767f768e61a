package wstrade

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/northquay/wstrade-go/pkg/httpclient"
)

// QuoteProvider is a pluggable source of the current price for a
// ticker. Implementations are selected per exchange; misbehaving
// providers only fail at call time, never at registration.
type QuoteProvider interface {
	Quote(ctx context.Context, t Ticker) (decimal.Decimal, error)
}

// quoteRegistry maps each exchange to its quote provider. Every
// exchange starts on the built-in trade-service provider; Use swaps a
// single exchange's entry.
type quoteRegistry struct {
	s *Session

	mu        sync.RWMutex
	overrides map[Exchange]QuoteProvider
}

func newQuoteRegistry(s *Session) *quoteRegistry {
	return &quoteRegistry{
		s:         s,
		overrides: make(map[Exchange]QuoteProvider),
	}
}

func (q *quoteRegistry) use(ex Exchange, p QuoteProvider) error {
	if !ex.Valid() {
		return fmt.Errorf("wstrade: unknown exchange %q", ex)
	}
	if p == nil {
		return fmt.Errorf("wstrade: nil quote provider for %s", ex)
	}
	q.mu.Lock()
	q.overrides[ex] = p
	q.mu.Unlock()
	return nil
}

// provider returns the provider for an exchange and whether it is a
// user-supplied override.
func (q *quoteRegistry) provider(ex Exchange) (QuoteProvider, bool) {
	q.mu.RLock()
	p, ok := q.overrides[ex]
	q.mu.RUnlock()
	if ok {
		return p, true
	}
	return &defaultQuoteProvider{s: q.s}, false
}

// defaultQuoteProvider serves quotes from the trade service itself.
type defaultQuoteProvider struct {
	s *Session
}

func (p *defaultQuoteProvider) Quote(ctx context.Context, t Ticker) (decimal.Decimal, error) {
	id, err := p.s.resolver.resolve(ctx, t)
	if err != nil {
		return decimal.Zero, err
	}

	var resp struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	req := httpclient.Request{Method: http.MethodGet, Path: pathQuote(id)}
	if err := p.s.call(ctx, req, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Amount, nil
}

// QuotesAPI serves security prices through the session's provider
// registry.
type QuotesAPI struct {
	s *Session
}

// Get returns the current price for a ticker. The provider is chosen by
// the ticker's exchange, discovered through the resolver when omitted.
// An explicit-id ticker with no exchange goes to the default provider,
// since discovering its venue would itself need a lookup.
func (q *QuotesAPI) Get(ctx context.Context, t Ticker) (decimal.Decimal, error) {
	ex := t.Exchange
	if ex == "" && t.ID == "" {
		res, err := q.s.resolver.resolveFull(ctx, t)
		if err != nil {
			return decimal.Zero, err
		}
		ex = res.Exchange
	}

	provider, custom := q.s.registry.provider(ex)
	price, err := provider.Quote(ctx, t)
	if err != nil {
		if custom {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrProvider, err)
		}
		return decimal.Zero, err
	}
	return price, nil
}

// Use registers a custom quote provider for one exchange; every other
// exchange keeps its current provider.
func (q *QuotesAPI) Use(ex Exchange, p QuoteProvider) error {
	return q.s.registry.use(ex, p)
}
