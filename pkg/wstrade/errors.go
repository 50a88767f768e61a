package wstrade

import "errors"

// Failure kinds surfaced by the client. Callers are expected to branch
// with errors.Is; in particular ErrInvalidCredentials and ErrInvalidOTP
// are never conflated.
var (
	// ErrInvalidCredentials means the email/password pair was rejected.
	ErrInvalidCredentials = errors.New("wstrade: invalid email or password")

	// ErrInvalidOTP means the credentials were accepted but the
	// one-time password was wrong or missing.
	ErrInvalidOTP = errors.New("wstrade: invalid or missing one-time password")

	// ErrNoOTPHandler means the server demanded a second factor but no
	// otp handler is registered on the session.
	ErrNoOTPHandler = errors.New("wstrade: otp required but no otp handler registered")

	// ErrNoRefreshToken means a refresh was attempted without a
	// refresh token in the session.
	ErrNoRefreshToken = errors.New("wstrade: no refresh token")

	// ErrUnauthorized means the server rejected the access token.
	ErrUnauthorized = errors.New("wstrade: unauthorized")

	// ErrSecurityNotFound means a ticker could not be resolved to a
	// security id.
	ErrSecurityNotFound = errors.New("wstrade: security not found")

	// ErrProvider wraps failures from user-supplied quote providers.
	ErrProvider = errors.New("wstrade: quote provider failed")
)

// errOTPRequired is the internal marker for the server's otp challenge;
// it never escapes: Login either satisfies the challenge or converts it
// to ErrNoOTPHandler / ErrInvalidOTP.
var errOTPRequired = errors.New("wstrade: otp required")
