package wstrade

import (
	"sync"
	"time"
)

// AuthTokens is the credential triple for one session. It is replaced
// wholesale on every login and refresh, never mutated field by field.
type AuthTokens struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
	Expires int64  `json:"expires"` // unix seconds, server-declared access token expiry
}

// IsZero reports whether no tokens are held.
func (t AuthTokens) IsZero() bool {
	return t.Access == "" && t.Refresh == ""
}

// StaleAt reports whether the access token must not be used at the
// given instant without refreshing first.
func (t AuthTokens) StaleAt(now time.Time) bool {
	return now.Unix() >= t.Expires
}

// tokenStore holds the current AuthTokens for one session. Replacement
// is atomic from an observer's point of view: readers never see a
// half-updated triple.
type tokenStore struct {
	mu  sync.RWMutex
	cur AuthTokens
}

func (s *tokenStore) Snapshot() AuthTokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *tokenStore) Replace(t AuthTokens) {
	s.mu.Lock()
	s.cur = t
	s.mu.Unlock()
}

func (s *tokenStore) Clear() {
	s.Replace(AuthTokens{})
}
