package wstrade

import (
	"context"
	"fmt"
	"sync"
)

// AuthEvent names a hook point on the session's auth lifecycle.
type AuthEvent string

const (
	// EventOTP is consulted when the server demands a second factor
	// during login.
	EventOTP AuthEvent = "otp"

	// EventRefresh fires after every successful token refresh with the
	// new AuthTokens.
	EventRefresh AuthEvent = "refresh"
)

// Handler is the closed set of hook variants accepted by Auth.On:
// OTPCode and OTPFunc for EventOTP, RefreshHook for EventRefresh.
type Handler interface {
	authHandler()
}

// OTPCode is a literal one-time password, used verbatim.
type OTPCode string

// OTPFunc produces a one-time password on demand; it may block (e.g.
// prompting the user or polling an inbox).
type OTPFunc func(ctx context.Context) (string, error)

// RefreshHook observes newly issued tokens, typically to persist them
// externally. An error fails the triggering operation but does not roll
// back the token swap.
type RefreshHook func(tokens AuthTokens) error

func (OTPCode) authHandler()     {}
func (OTPFunc) authHandler()     {}
func (RefreshHook) authHandler() {}

// resolveOTP turns a registered otp handler into a concrete code.
func resolveOTP(ctx context.Context, h Handler) (string, error) {
	switch v := h.(type) {
	case OTPCode:
		return string(v), nil
	case OTPFunc:
		return v(ctx)
	default:
		return "", fmt.Errorf("wstrade: unsupported otp handler %T", h)
	}
}

// eventHub stores at most one handler per event kind for one session.
// Registering again replaces the previous handler.
type eventHub struct {
	mu      sync.RWMutex
	otp     Handler
	refresh RefreshHook
}

func (h *eventHub) on(event AuthEvent, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("wstrade: nil handler for event %q", event)
	}
	switch event {
	case EventOTP:
		switch handler.(type) {
		case OTPCode, OTPFunc:
		default:
			return fmt.Errorf("wstrade: event %q requires an OTPCode or OTPFunc handler", event)
		}
		h.mu.Lock()
		h.otp = handler
		h.mu.Unlock()
		return nil
	case EventRefresh:
		hook, ok := handler.(RefreshHook)
		if !ok {
			return fmt.Errorf("wstrade: event %q requires a RefreshHook handler", event)
		}
		h.mu.Lock()
		h.refresh = hook
		h.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("wstrade: unknown auth event %q", event)
	}
}

func (h *eventHub) otpHandler() (Handler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.otp, h.otp != nil
}

func (h *eventHub) refreshHook() RefreshHook {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.refresh
}
