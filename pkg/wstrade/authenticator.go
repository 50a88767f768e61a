package wstrade

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/northquay/wstrade-go/internal/metrics"
	"github.com/northquay/wstrade-go/pkg/httpclient"
	"github.com/northquay/wstrade-go/pkg/utils"
)

// refreshTimeout bounds the shared background refresh so an abandoned
// waiter set cannot leave it running forever.
const refreshTimeout = 30 * time.Second

// tokenPayload is the wire shape of login and refresh responses.
type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Expires      int64  `json:"expires"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshCall is one in-flight shared refresh. err is published before
// done is closed, so waiters may read it after <-done.
type refreshCall struct {
	done chan struct{}
	err  error
}

// authenticator drives login, token refresh, and the implicit-refresh
// gate for one session. Its central invariant: at most one refresh is
// in flight per session; concurrent stale callers share it.
type authenticator struct {
	s *Session

	mu      sync.Mutex
	pending *refreshCall
}

func newAuthenticator(s *Session) *authenticator {
	return &authenticator{s: s}
}

// login exchanges credentials for tokens, handling the server's OTP
// challenge through the registered otp handler. Outcomes are kept
// distinct: bad credentials → ErrInvalidCredentials; good credentials
// with a bad or missing second factor → ErrInvalidOTP; no challenge at
// all → success without ever invoking the otp handler.
func (a *authenticator) login(ctx context.Context, email, password string) error {
	err := a.postLogin(ctx, loginRequest{Email: email, Password: password})
	if err == nil {
		return nil
	}
	if !errors.Is(err, errOTPRequired) {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}

	handler, ok := a.s.hub.otpHandler()
	if !ok {
		// Fail fast rather than re-posting with the OTP silently omitted.
		metrics.LoginsTotal.WithLabelValues("no_otp_handler").Inc()
		return ErrNoOTPHandler
	}

	code, err := resolveOTP(ctx, handler)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("wstrade: otp handler: %w", err)
	}

	err = a.postLogin(ctx, loginRequest{Email: email, Password: password, OTP: code})
	if err != nil {
		if errors.Is(err, errOTPRequired) {
			// Server still challenging after we supplied a code.
			err = ErrInvalidOTP
		}
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}
	return nil
}

// postLogin performs one credential POST and installs the token triple
// on success.
func (a *authenticator) postLogin(ctx context.Context, body loginRequest) error {
	req := httpclient.Request{
		Method: http.MethodPost,
		Path:   pathLogin,
		Header: a.s.customHeaders(),
		Body:   body,
	}

	var payload tokenPayload
	if err := a.s.transport.Do(ctx, req, &payload); err != nil {
		return mapAuthError(err)
	}

	a.install(payload)
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	a.s.logger.Info("auth.login_success",
		zap.String("email", body.Email),
		zap.String("access", utils.MaskToken(payload.AccessToken)),
		zap.Int64("expires", payload.Expires))
	return nil
}

// refresh exchanges the refresh token for a new triple. The swap is
// wholesale and happens before the refresh hook runs; a hook error
// fails the operation but deliberately does not roll the swap back.
func (a *authenticator) refresh(ctx context.Context) error {
	cur := a.s.tokens.Snapshot()
	if cur.Refresh == "" {
		metrics.TokenRefreshesTotal.WithLabelValues("no_refresh_token").Inc()
		return ErrNoRefreshToken
	}

	req := httpclient.Request{
		Method: http.MethodPost,
		Path:   pathRefresh,
		Header: a.s.customHeaders(),
		Body:   refreshRequest{RefreshToken: cur.Refresh},
	}

	var payload tokenPayload
	if err := a.s.transport.Do(ctx, req, &payload); err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.Status == http.StatusUnauthorized {
			// Refresh token itself rejected: the session is no longer
			// authenticated in any useful sense.
			a.s.tokens.Clear()
			metrics.TokenRefreshesTotal.WithLabelValues("rejected").Inc()
			a.s.logger.Warn("auth.refresh_rejected")
			return ErrUnauthorized
		}
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return err
	}

	a.install(payload)
	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	a.s.logger.Info("auth.refresh_success",
		zap.String("access", utils.MaskToken(payload.AccessToken)),
		zap.Int64("expires", payload.Expires))

	if hook := a.s.hub.refreshHook(); hook != nil {
		if err := hook(a.s.tokens.Snapshot()); err != nil {
			return fmt.Errorf("wstrade: refresh hook: %w", err)
		}
	}
	return nil
}

func (a *authenticator) install(p tokenPayload) {
	a.s.tokens.Replace(AuthTokens{
		Access:  p.AccessToken,
		Refresh: p.RefreshToken,
		Expires: p.Expires,
	})
}

// ensureFresh is the implicit-refresh gate run before every
// authenticated call. When the feature is enabled and the access token
// is stale, exactly one shared refresh runs; callers arriving during it
// wait for that refresh instead of issuing their own.
func (a *authenticator) ensureFresh(ctx context.Context) error {
	if !a.s.implicitRefresh.Load() {
		return nil
	}
	cur := a.s.tokens.Snapshot()
	if cur.IsZero() || !cur.StaleAt(a.s.now()) {
		return nil
	}

	a.mu.Lock()
	call := a.pending
	if call == nil {
		// Re-check under the lock: a refresh that settled between the
		// snapshot above and here already did the work.
		if fresh := a.s.tokens.Snapshot(); !fresh.StaleAt(a.s.now()) {
			a.mu.Unlock()
			return nil
		}
		call = a.start()
	}
	a.mu.Unlock()

	return a.join(ctx, call)
}

// refreshShared runs a refresh through the single-flight handle, so an
// explicit Auth.Refresh and the gate can never race two refreshes.
func (a *authenticator) refreshShared(ctx context.Context) error {
	a.mu.Lock()
	call := a.pending
	if call == nil {
		call = a.start()
	}
	a.mu.Unlock()

	return a.join(ctx, call)
}

// start launches the background refresh. Caller must hold a.mu.
func (a *authenticator) start() *refreshCall {
	call := &refreshCall{done: make(chan struct{})}
	a.pending = call

	go func() {
		// The refresh runs on its own context: one waiter canceling
		// must not abort a renewal that other callers are waiting on.
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		err := a.refresh(ctx)

		a.mu.Lock()
		a.pending = nil
		a.mu.Unlock()

		call.err = err
		close(call.done)
	}()

	return call
}

// join waits for a shared refresh to settle, honoring the waiter's own
// cancellation.
func (a *authenticator) join(ctx context.Context, call *refreshCall) error {
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mapAuthError converts transport status errors on the auth endpoints
// into the client's failure kinds.
func mapAuthError(err error) error {
	var se *httpclient.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code {
	case "invalid_credentials":
		return ErrInvalidCredentials
	case "otp_required":
		return errOTPRequired
	case "invalid_otp":
		return ErrInvalidOTP
	}
	if se.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return err
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidOTP):
		return "invalid_otp"
	default:
		return "error"
	}
}
