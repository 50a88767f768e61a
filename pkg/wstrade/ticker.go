package wstrade

import "strings"

// Exchange identifies a listing venue supported by the brokerage.
type Exchange string

const (
	NYSE   Exchange = "NYSE"
	NASDAQ Exchange = "NASDAQ"
	TSX    Exchange = "TSX"
	TSXV   Exchange = "TSX-V"
	NEO    Exchange = "NEO"
	CC     Exchange = "CC" // cryptocurrency
)

// Exchanges lists every supported venue.
var Exchanges = []Exchange{NYSE, NASDAQ, TSX, TSXV, NEO, CC}

// Valid reports whether e is a member of the supported set.
func (e Exchange) Valid() bool {
	for _, x := range Exchanges {
		if e == x {
			return true
		}
	}
	return false
}

// Ticker references a tradable security. When ID is set it is
// authoritative and no lookup happens; otherwise Symbol (and Exchange,
// when given) is resolved through the session's security resolver.
type Ticker struct {
	Symbol   string
	Exchange Exchange
	ID       string
}

// Symbol builds a bare-symbol ticker, the common case.
func Symbol(sym string) Ticker {
	return Ticker{Symbol: sym}
}

func (t Ticker) String() string {
	if t.ID != "" {
		return t.ID
	}
	if t.Exchange != "" {
		return t.Symbol + ":" + string(t.Exchange)
	}
	return t.Symbol
}

// cacheKey canonicalizes the (symbol, exchange) pair for resolver
// memoization. Symbols are case-insensitive on the trade service.
func (t Ticker) cacheKey() string {
	return strings.ToUpper(t.Symbol) + "|" + string(t.Exchange)
}
