package wstrade

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/northquay/wstrade-go/pkg/httpclient"
)

// Account is one brokerage account owned by the logged-in user.
type Account struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"` // tfsa, rrsp, personal, crypto
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	NetDeposits    decimal.Decimal `json:"net_deposits"`
}

// Position is one holding inside an account.
type Position struct {
	SecurityID  string          `json:"security_id"`
	Symbol      string          `json:"symbol"`
	Exchange    Exchange        `json:"exchange"`
	Quantity    decimal.Decimal `json:"quantity"`
	MarketValue decimal.Decimal `json:"market_value"`
	BookValue   decimal.Decimal `json:"book_value"`
	Currency    string          `json:"currency"`
}

// Activity is one account event: an order, dividend, deposit, and so on.
type Activity struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	SecurityID string          `json:"security_id"`
	Symbol     string          `json:"symbol"`
	Quantity   decimal.Decimal `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// HistoryPoint is one sample of an account's value series.
type HistoryPoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// HistoryIntervals lists the sampling windows the history endpoint
// accepts.
var HistoryIntervals = []string{"1d", "1w", "1m", "3m", "1y", "all"}

// AccountsAPI exposes account, position, activity, and history queries.
// These are thin request/response mappings.
type AccountsAPI struct {
	s *Session
}

// List returns every account owned by the logged-in user.
func (a *AccountsAPI) List(ctx context.Context) ([]Account, error) {
	req := httpclient.Request{Method: http.MethodGet, Path: pathAccountList}

	var resp struct {
		Results []Account `json:"results"`
	}
	if err := a.s.call(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Positions returns the holdings of one account.
func (a *AccountsAPI) Positions(ctx context.Context, accountID string) ([]Position, error) {
	req := httpclient.Request{
		Method: http.MethodGet,
		Path:   pathPositions,
		Query:  url.Values{"account_id": {accountID}},
	}

	var resp struct {
		Results []Position `json:"results"`
	}
	if err := a.s.call(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Activities returns up to limit recent events for one account; limit
// <= 0 leaves the page size to the server.
func (a *AccountsAPI) Activities(ctx context.Context, accountID string, limit int) ([]Activity, error) {
	q := url.Values{"account_id": {accountID}}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	req := httpclient.Request{
		Method: http.MethodGet,
		Path:   pathActivities,
		Query:  q,
	}

	var resp struct {
		Results []Activity `json:"results"`
	}
	if err := a.s.call(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// History returns the account value series for one interval (see
// HistoryIntervals).
func (a *AccountsAPI) History(ctx context.Context, accountID, interval string) ([]HistoryPoint, error) {
	ok := false
	for _, iv := range HistoryIntervals {
		if iv == interval {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("wstrade: unknown history interval %q", interval)
	}

	req := httpclient.Request{
		Method: http.MethodGet,
		Path:   pathHistory(interval),
		Query:  url.Values{"account_id": {accountID}},
	}

	var resp struct {
		Results []HistoryPoint `json:"results"`
	}
	if err := a.s.call(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}
