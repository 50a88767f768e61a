package wstrade

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/northquay/wstrade-go/pkg/httpclient"
)

// Order kinds and lifecycle states as reported by the trade service.
const (
	OrderTypeBuy  = "buy_quantity"
	OrderTypeSell = "sell_quantity"

	OrderSubTypeMarket    = "market"
	OrderSubTypeLimit     = "limit"
	OrderSubTypeStopLimit = "stop_limit"

	OrderStatusSubmitted = "submitted"
	OrderStatusPosted    = "posted"
	OrderStatusFilled    = "filled"
	OrderStatusCancelled = "cancelled"
)

// Order is one order record.
type Order struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	SecurityID   string          `json:"security_id"`
	Symbol       string          `json:"symbol"`
	Status       string          `json:"status"`
	OrderType    string          `json:"order_type"`
	OrderSubType string          `json:"order_sub_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	LimitPrice   decimal.Decimal `json:"limit_price"`
	StopPrice    decimal.Decimal `json:"stop_price"`
	TimeInForce  string          `json:"time_in_force"`
	CreatedAt    time.Time       `json:"created_at"`
}

type orderRequest struct {
	AccountID    string           `json:"account_id"`
	SecurityID   string           `json:"security_id"`
	Quantity     decimal.Decimal  `json:"quantity"`
	OrderType    string           `json:"order_type"`
	OrderSubType string           `json:"order_sub_type"`
	LimitPrice   *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice    *decimal.Decimal `json:"stop_price,omitempty"`
	TimeInForce  string           `json:"time_in_force"`
}

// OrdersAPI places, lists, and cancels orders. Placement resolves the
// ticker to a security id through the session's resolver first; beyond
// distinguishing order kinds no validation happens client-side.
type OrdersAPI struct {
	s *Session
}

// List returns the orders of one account.
func (o *OrdersAPI) List(ctx context.Context, accountID string) ([]Order, error) {
	req := httpclient.Request{
		Method: http.MethodGet,
		Path:   pathOrders,
		Query:  url.Values{"account_id": {accountID}},
	}

	var resp struct {
		Results []Order `json:"results"`
	}
	if err := o.s.call(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// MarketBuy submits a market buy for the given quantity.
func (o *OrdersAPI) MarketBuy(ctx context.Context, accountID string, t Ticker, quantity decimal.Decimal) (*Order, error) {
	return o.place(ctx, t, orderRequest{
		AccountID:    accountID,
		Quantity:     quantity,
		OrderType:    OrderTypeBuy,
		OrderSubType: OrderSubTypeMarket,
		TimeInForce:  "day",
	})
}

// MarketSell submits a market sell for the given quantity.
func (o *OrdersAPI) MarketSell(ctx context.Context, accountID string, t Ticker, quantity decimal.Decimal) (*Order, error) {
	return o.place(ctx, t, orderRequest{
		AccountID:    accountID,
		Quantity:     quantity,
		OrderType:    OrderTypeSell,
		OrderSubType: OrderSubTypeMarket,
		TimeInForce:  "day",
	})
}

// LimitBuy submits a buy capped at the limit price.
func (o *OrdersAPI) LimitBuy(ctx context.Context, accountID string, t Ticker, limit, quantity decimal.Decimal) (*Order, error) {
	return o.place(ctx, t, orderRequest{
		AccountID:    accountID,
		Quantity:     quantity,
		OrderType:    OrderTypeBuy,
		OrderSubType: OrderSubTypeLimit,
		LimitPrice:   &limit,
		TimeInForce:  "day",
	})
}

// LimitSell submits a sell floored at the limit price.
func (o *OrdersAPI) LimitSell(ctx context.Context, accountID string, t Ticker, limit, quantity decimal.Decimal) (*Order, error) {
	return o.place(ctx, t, orderRequest{
		AccountID:    accountID,
		Quantity:     quantity,
		OrderType:    OrderTypeSell,
		OrderSubType: OrderSubTypeLimit,
		LimitPrice:   &limit,
		TimeInForce:  "day",
	})
}

// StopLimitBuy submits a buy that activates at the stop price and is
// capped at the limit price.
func (o *OrdersAPI) StopLimitBuy(ctx context.Context, accountID string, t Ticker, stop, limit, quantity decimal.Decimal) (*Order, error) {
	return o.place(ctx, t, orderRequest{
		AccountID:    accountID,
		Quantity:     quantity,
		OrderType:    OrderTypeBuy,
		OrderSubType: OrderSubTypeStopLimit,
		StopPrice:    &stop,
		LimitPrice:   &limit,
		TimeInForce:  "day",
	})
}

// StopLimitSell submits a sell that activates at the stop price and is
// floored at the limit price.
func (o *OrdersAPI) StopLimitSell(ctx context.Context, accountID string, t Ticker, stop, limit, quantity decimal.Decimal) (*Order, error) {
	return o.place(ctx, t, orderRequest{
		AccountID:    accountID,
		Quantity:     quantity,
		OrderType:    OrderTypeSell,
		OrderSubType: OrderSubTypeStopLimit,
		StopPrice:    &stop,
		LimitPrice:   &limit,
		TimeInForce:  "day",
	})
}

// Cancel cancels one order by id.
func (o *OrdersAPI) Cancel(ctx context.Context, orderID string) error {
	req := httpclient.Request{
		Method: http.MethodDelete,
		Path:   pathOrder(orderID),
	}
	return o.s.call(ctx, req, nil)
}

// CancelPending cancels every not-yet-filled order on an account and
// returns the ids it cancelled.
func (o *OrdersAPI) CancelPending(ctx context.Context, accountID string) ([]string, error) {
	orders, err := o.List(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var cancelled []string
	for _, ord := range orders {
		if ord.Status != OrderStatusSubmitted && ord.Status != OrderStatusPosted {
			continue
		}
		if err := o.Cancel(ctx, ord.ID); err != nil {
			return cancelled, err
		}
		cancelled = append(cancelled, ord.ID)
	}
	return cancelled, nil
}

func (o *OrdersAPI) place(ctx context.Context, t Ticker, body orderRequest) (*Order, error) {
	id, err := o.s.resolver.resolve(ctx, t)
	if err != nil {
		return nil, err
	}
	body.SecurityID = id

	header := http.Header{}
	header.Set("X-Idempotency-Key", uuid.NewString())

	req := httpclient.Request{
		Method: http.MethodPost,
		Path:   pathPlaceOrder,
		Header: header,
		Body:   body,
	}

	var ord Order
	if err := o.s.call(ctx, req, &ord); err != nil {
		return nil, err
	}
	return &ord, nil
}
