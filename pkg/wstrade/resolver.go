package wstrade

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/northquay/wstrade-go/pkg/httpclient"
)

// resolvedSecurity is one memoized lookup result.
type resolvedSecurity struct {
	ID       string
	Exchange Exchange
}

// securityResolver maps tickers to the brokerage's internal security
// ids, memoized per session. Security ids are stable for a running
// session's duration, so entries are never evicted. Failed lookups are
// not cached: a security absent today may list tomorrow.
type securityResolver struct {
	s *Session

	mu    sync.RWMutex
	cache map[string]resolvedSecurity
}

func newSecurityResolver(s *Session) *securityResolver {
	return &securityResolver{
		s:     s,
		cache: make(map[string]resolvedSecurity),
	}
}

// resolve returns the security id for a ticker. An explicit ID is
// authoritative and short-circuits both cache and network.
func (r *securityResolver) resolve(ctx context.Context, t Ticker) (string, error) {
	res, err := r.resolveFull(ctx, t)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

// resolveFull also reports the exchange the security trades on, which
// the quote registry needs for provider selection.
func (r *securityResolver) resolveFull(ctx context.Context, t Ticker) (resolvedSecurity, error) {
	if t.ID != "" {
		return resolvedSecurity{ID: t.ID, Exchange: t.Exchange}, nil
	}
	if t.Symbol == "" {
		return resolvedSecurity{}, fmt.Errorf("%w: empty ticker", ErrSecurityNotFound)
	}

	key := t.cacheKey()
	r.mu.RLock()
	hit, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return hit, nil
	}

	res, err := r.lookup(ctx, t)
	if err != nil {
		return resolvedSecurity{}, err
	}

	// Concurrent resolutions of the same ticker may both reach here;
	// they write the same value, so last-write-wins is harmless.
	r.mu.Lock()
	r.cache[key] = res
	r.mu.Unlock()

	r.s.logger.Debug("securities.resolved",
		zap.String("ticker", t.String()),
		zap.String("security_id", res.ID),
		zap.String("exchange", string(res.Exchange)))
	return res, nil
}

// lookup queries the security search endpoint and picks the listing for
// the ticker's exchange, or the server-reported primary listing when
// the exchange is omitted.
func (r *securityResolver) lookup(ctx context.Context, t Ticker) (resolvedSecurity, error) {
	req := httpclient.Request{
		Method: http.MethodGet,
		Path:   pathSecuritySearch,
		Query:  url.Values{"query": {t.Symbol}},
	}

	var resp struct {
		Results []Security `json:"results"`
	}
	if err := r.s.call(ctx, req, &resp); err != nil {
		return resolvedSecurity{}, err
	}

	var fallback *Security
	for i := range resp.Results {
		sec := &resp.Results[i]
		if !strings.EqualFold(sec.Symbol, t.Symbol) {
			continue
		}
		if t.Exchange != "" {
			if sec.Exchange == t.Exchange {
				return resolvedSecurity{ID: sec.ID, Exchange: sec.Exchange}, nil
			}
			continue
		}
		if sec.Primary {
			return resolvedSecurity{ID: sec.ID, Exchange: sec.Exchange}, nil
		}
		if fallback == nil {
			fallback = sec
		}
	}
	if t.Exchange == "" && fallback != nil {
		return resolvedSecurity{ID: fallback.ID, Exchange: fallback.Exchange}, nil
	}

	return resolvedSecurity{}, fmt.Errorf("%w: %s", ErrSecurityNotFound, t.String())
}
