// Package tokenvault persists session tokens in Redis so a process can
// restart without a fresh OTP login. It sits entirely outside the core
// client, working through the Auth.Use/Auth.Tokens seam.
package tokenvault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/northquay/wstrade-go/pkg/wstrade"
)

// refreshTokenTTL bounds how long a stored triple is worth keeping; the
// refresh token is useless well before this.
const refreshTokenTTL = 30 * 24 * time.Hour

// Vault stores one AuthTokens triple per account key.
type Vault struct {
	rdb    *redis.Client
	logger *zap.Logger
	prefix string
}

// New creates a vault on an existing Redis client.
func New(rdb *redis.Client, logger *zap.Logger) *Vault {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Vault{
		rdb:    rdb,
		logger: logger,
		prefix: "wstrade:tokens:",
	}
}

// Save stores the token triple for an account, replacing any previous
// entry.
func (v *Vault) Save(ctx context.Context, account string, tokens wstrade.AuthTokens) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("tokenvault: encode: %w", err)
	}
	if err := v.rdb.Set(ctx, v.prefix+account, data, refreshTokenTTL).Err(); err != nil {
		return fmt.Errorf("tokenvault: save %q: %w", account, err)
	}
	v.logger.Debug("tokenvault.saved", zap.String("account", account))
	return nil
}

// Load returns the stored triple for an account; found is false when no
// entry exists.
func (v *Vault) Load(ctx context.Context, account string) (tokens wstrade.AuthTokens, found bool, err error) {
	data, err := v.rdb.Get(ctx, v.prefix+account).Bytes()
	if errors.Is(err, redis.Nil) {
		return wstrade.AuthTokens{}, false, nil
	}
	if err != nil {
		return wstrade.AuthTokens{}, false, fmt.Errorf("tokenvault: load %q: %w", account, err)
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return wstrade.AuthTokens{}, false, fmt.Errorf("tokenvault: decode %q: %w", account, err)
	}
	return tokens, true, nil
}

// Delete removes an account's entry.
func (v *Vault) Delete(ctx context.Context, account string) error {
	if err := v.rdb.Del(ctx, v.prefix+account).Err(); err != nil {
		return fmt.Errorf("tokenvault: delete %q: %w", account, err)
	}
	return nil
}

// Hook returns a RefreshHook that persists every newly issued triple
// for the account. Register it on the session's refresh event to keep
// the vault current across implicit refreshes.
func (v *Vault) Hook(account string) wstrade.RefreshHook {
	return func(tokens wstrade.AuthTokens) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return v.Save(ctx, account, tokens)
	}
}
