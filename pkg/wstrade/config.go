package wstrade

import "fmt"

// Feature strings recognized by Config.Set.
const (
	FeatureImplicitTokenRefresh   = "implicit_token_refresh"
	FeatureNoImplicitTokenRefresh = "no_implicit_token_refresh"
)

// ConfigAPI toggles per-session behavior flags.
type ConfigAPI struct {
	s *Session
}

// Set enables or disables a named feature. Unrecognized feature strings
// return an error rather than silently doing nothing. Flag reads happen
// at call time, so a toggle only affects calls issued after it.
func (c *ConfigAPI) Set(feature string) error {
	switch feature {
	case FeatureImplicitTokenRefresh:
		c.s.implicitRefresh.Store(true)
	case FeatureNoImplicitTokenRefresh:
		c.s.implicitRefresh.Store(false)
	default:
		return fmt.Errorf("wstrade: unknown config feature %q", feature)
	}
	return nil
}
