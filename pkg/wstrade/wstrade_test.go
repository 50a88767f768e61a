package wstrade

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTrade is an in-process stand-in for the trade service. It issues
// rotating token pairs, enforces bearer auth on data endpoints, and
// counts calls so tests can assert on network traffic.
type fakeTrade struct {
	t   *testing.T
	srv *httptest.Server

	email       string
	password    string
	otp         string
	otpRequired bool

	mu      sync.Mutex
	seq     int
	access  string
	refresh string

	failRefresh  bool
	refreshDelay time.Duration

	loginCalls   atomic.Int32
	refreshCalls atomic.Int32
	searchCalls  atomic.Int32
	accountCalls atomic.Int32
	quoteCalls   atomic.Int32

	cancelledMu sync.Mutex
	cancelled   []string

	placedMu      sync.Mutex
	placedBody    orderRequest
	placedIdemKey string
}

func newFakeTrade(t *testing.T) *fakeTrade {
	t.Helper()
	f := &fakeTrade{
		t:        t,
		email:    "user@example.com",
		password: "hunter2",
		otp:      "123456",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", f.handleLogin)
	mux.HandleFunc("POST /auth/refresh", f.handleRefresh)
	mux.HandleFunc("GET /account/list", f.handleAccounts)
	mux.HandleFunc("GET /account/positions", f.handlePositions)
	mux.HandleFunc("GET /account/activities", f.handleActivities)
	mux.HandleFunc("GET /account/history/{interval}", f.handleHistory)
	mux.HandleFunc("GET /securities", f.handleSearch)
	mux.HandleFunc("GET /securities/{id}", f.handleSecurity)
	mux.HandleFunc("GET /securities/{id}/quote", f.handleQuote)
	mux.HandleFunc("GET /orders", f.handleOrders)
	mux.HandleFunc("POST /orders/new", f.handlePlace)
	mux.HandleFunc("DELETE /orders/{id}", f.handleCancel)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// session builds a Session wired to the fake service.
func (f *fakeTrade) session(opts ...Option) *Session {
	opts = append([]Option{
		WithBaseURL(f.srv.URL),
		WithHTTPClient(f.srv.Client()),
	}, opts...)
	return New(opts...)
}

// issue rotates the server-side token pair. Caller must hold f.mu.
func (f *fakeTrade) issue() tokenPayload {
	f.seq++
	f.access = fmt.Sprintf("access-%d", f.seq)
	f.refresh = fmt.Sprintf("refresh-%d", f.seq)
	return tokenPayload{
		AccessToken:  f.access,
		RefreshToken: f.refresh,
		Expires:      time.Now().Add(15 * time.Minute).Unix(),
	}
}

// revoke invalidates the current access token server-side while leaving
// the refresh token usable, simulating an early revocation.
func (f *fakeTrade) revoke() {
	f.mu.Lock()
	f.access = "revoked"
	f.mu.Unlock()
}

func (f *fakeTrade) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access != "" && r.Header.Get("Authorization") == "Bearer "+f.access
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func (f *fakeTrade) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.loginCalls.Add(1)

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}
	if body.Email != f.email || body.Password != f.password {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if f.otpRequired {
		if body.OTP == "" {
			writeError(w, http.StatusUnauthorized, "otp_required")
			return
		}
		if body.OTP != f.otp {
			writeError(w, http.StatusUnauthorized, "invalid_otp")
			return
		}
	}

	f.mu.Lock()
	payload := f.issue()
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, payload)
}

func (f *fakeTrade) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}

	var body refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRefresh || body.RefreshToken != f.refresh {
		writeError(w, http.StatusUnauthorized, "invalid_grant")
		return
	}
	writeJSON(w, http.StatusOK, f.issue())
}

func (f *fakeTrade) handleAccounts(w http.ResponseWriter, r *http.Request) {
	f.accountCalls.Add(1)
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": []map[string]any{
			{"id": "tfsa-1", "type": "tfsa", "currency": "CAD", "status": "open", "current_balance": "1250.50"},
		},
	})
}

func (f *fakeTrade) handlePositions(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if r.URL.Query().Get("account_id") == "" {
		writeError(w, http.StatusBadRequest, "missing_account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": []map[string]any{
			{"security_id": "sec-aapl-nasdaq", "symbol": "AAPL", "exchange": "NASDAQ", "quantity": "10", "market_value": "1893.00", "currency": "USD"},
		},
	})
}

func (f *fakeTrade) handleActivities(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	results := []map[string]any{
		{"id": "act-1", "type": "buy", "symbol": "AAPL", "amount": "-378.60"},
		{"id": "act-2", "type": "dividend", "symbol": "AAPL", "amount": "2.40"},
	}
	if r.URL.Query().Get("limit") == "1" {
		results = results[:1]
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (f *fakeTrade) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": []map[string]any{
			{"date": "2024-01-02", "value": "1000.00"},
			{"date": "2024-01-03", "value": "1010.50"},
		},
	})
}

func (f *fakeTrade) handleSecurity(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	switch r.PathValue("id") {
	case "sec-aapl-nasdaq":
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "sec-aapl-nasdaq", "symbol": "AAPL", "name": "Apple Inc.",
			"exchange": "NASDAQ", "currency": "USD", "primary": true, "status": "trading",
		})
	default:
		writeError(w, http.StatusNotFound, "not_found")
	}
}

func (f *fakeTrade) handleSearch(w http.ResponseWriter, r *http.Request) {
	f.searchCalls.Add(1)
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var results []map[string]any
	switch r.URL.Query().Get("query") {
	case "AAPL", "aapl":
		results = []map[string]any{
			{"id": "sec-aapl-nyse", "symbol": "AAPL", "exchange": "NYSE", "primary": false},
			{"id": "sec-aapl-nasdaq", "symbol": "AAPL", "exchange": "NASDAQ", "primary": true},
		}
	case "SHOP":
		results = []map[string]any{
			{"id": "sec-shop-tsx", "symbol": "SHOP", "exchange": "TSX", "primary": true},
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (f *fakeTrade) handleQuote(w http.ResponseWriter, r *http.Request) {
	f.quoteCalls.Add(1)
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	amount := "50.00"
	if r.PathValue("id") == "sec-aapl-nasdaq" {
		amount = "189.30"
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": amount, "currency": "USD"})
}

func (f *fakeTrade) handleOrders(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": []map[string]any{
			{"id": "order-1", "status": "submitted", "symbol": "AAPL"},
			{"id": "order-2", "status": "filled", "symbol": "SHOP"},
			{"id": "order-3", "status": "posted", "symbol": "SHOP"},
		},
	})
}

func (f *fakeTrade) handlePlace(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body orderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}

	f.placedMu.Lock()
	f.placedBody = body
	f.placedIdemKey = r.Header.Get("X-Idempotency-Key")
	f.placedMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"id":             "order-new",
		"account_id":     body.AccountID,
		"security_id":    body.SecurityID,
		"status":         "submitted",
		"order_type":     body.OrderType,
		"order_sub_type": body.OrderSubType,
	})
}

func (f *fakeTrade) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	f.cancelledMu.Lock()
	f.cancelled = append(f.cancelled, r.PathValue("id"))
	f.cancelledMu.Unlock()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}

func (f *fakeTrade) placed() (orderRequest, string) {
	f.placedMu.Lock()
	defer f.placedMu.Unlock()
	return f.placedBody, f.placedIdemKey
}

func (f *fakeTrade) cancelledIDs() []string {
	f.cancelledMu.Lock()
	defer f.cancelledMu.Unlock()
	return append([]string(nil), f.cancelled...)
}
