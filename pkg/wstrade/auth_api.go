package wstrade

import "context"

// AuthAPI is the authentication surface of a session.
type AuthAPI struct {
	s *Session
}

// On registers the handler for an auth event, replacing any handler
// previously registered for that event. EventOTP accepts an OTPCode or
// OTPFunc; EventRefresh accepts a RefreshHook.
func (a *AuthAPI) On(event AuthEvent, handler Handler) error {
	return a.s.hub.on(event, handler)
}

// Use seeds the session with externally obtained tokens, skipping
// login. This is the restore half of the persistence seam; Tokens is
// the save half.
func (a *AuthAPI) Use(tokens AuthTokens) {
	a.s.tokens.Replace(tokens)
}

// Tokens returns a read-only snapshot of the current token triple.
func (a *AuthAPI) Tokens() AuthTokens {
	return a.s.tokens.Snapshot()
}

// Login authenticates with email and password, consulting the
// registered otp handler if the server demands a second factor. It
// never retries on its own beyond the single OTP round.
func (a *AuthAPI) Login(ctx context.Context, email, password string) error {
	return a.s.auth.login(ctx, email, password)
}

// Refresh explicitly exchanges the refresh token for a new triple. It
// shares the session's single-flight refresh handle, so it can never
// run alongside an implicit refresh.
func (a *AuthAPI) Refresh(ctx context.Context) error {
	return a.s.auth.refreshShared(ctx)
}
