package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/northquay/wstrade-go/pkg/config"
	"github.com/northquay/wstrade-go/pkg/logger"
	"github.com/northquay/wstrade-go/pkg/secrets"
	"github.com/northquay/wstrade-go/pkg/tokenvault"
	"github.com/northquay/wstrade-go/pkg/wstrade"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	logger.Init("wstrade-example", config.GetEnv("ENV", "dev"), config.GetEnv("LOG_LEVEL", "info"))
	defer logger.Sync()
	logg := logger.S()

	// --- Resolve credentials ---
	var provider secrets.Provider
	if region := config.GetEnv("AWS_REGION", ""); region != "" {
		p, err := secrets.NewAWSProvider(region)
		if err != nil {
			logg.Fatalw("failed to init AWS secrets provider", "error", err)
		}
		provider = p
	} else {
		provider = secrets.NewEnvProvider()
	}

	cached := secrets.NewCachingProvider(provider, config.GetEnvDuration("SECRET_TTL", 5*time.Minute))

	secretKey := config.GetEnv("SECRET_KEY", "trade/login")
	raw, err := cached.GetSecret(ctx, secretKey)
	if err != nil {
		logg.Fatalw("failed to fetch credentials", "key", secretKey, "error", err)
	}
	creds := secrets.CredentialsFromSecret(raw)

	// --- Optional metrics endpoint ---
	if addr := config.GetEnv("METRICS_ADDR", ""); addr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			_ = http.ListenAndServe(addr, nil)
		}()
	}

	// --- Build the session ---
	session := wstrade.New(wstrade.WithLogger(logger.L()))

	if err := session.Auth.On(wstrade.EventOTP, wstrade.OTPFunc(promptOTP)); err != nil {
		logg.Fatalw("failed to register otp handler", "error", err)
	}

	// --- Optional Redis token vault: restore and keep persisting ---
	var vault *tokenvault.Vault
	if addr := config.GetEnv("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		vault = tokenvault.New(rdb, logger.L())

		if err := session.Auth.On(wstrade.EventRefresh, vault.Hook(creds.Email)); err != nil {
			logg.Fatalw("failed to register refresh hook", "error", err)
		}

		if tokens, found, err := vault.Load(ctx, creds.Email); err != nil {
			logg.Warnw("token vault unavailable", "error", err)
		} else if found {
			session.Auth.Use(tokens)
			logg.Infow("restored tokens from vault", "account", creds.Email)
		}
	}

	// --- Log in unless restored tokens are usable ---
	if tokens := session.Auth.Tokens(); tokens.IsZero() || tokens.Refresh == "" {
		if err := session.Auth.Login(ctx, creds.Email, creds.Password); err != nil {
			logg.Fatalw("login failed", "error", err)
		}
		if vault != nil {
			if err := vault.Save(ctx, creds.Email, session.Auth.Tokens()); err != nil {
				logg.Warnw("failed to persist tokens", "error", err)
			}
		}
	}

	// --- Show accounts and a quote ---
	accounts, err := session.Accounts.List(ctx)
	if err != nil {
		logg.Fatalw("failed to list accounts", "error", err)
	}
	for _, acct := range accounts {
		logg.Infow("account",
			"id", acct.ID,
			"type", acct.Type,
			"currency", acct.Currency,
			"balance", acct.CurrentBalance.String(),
		)
	}

	symbol := config.GetEnv("QUOTE_SYMBOL", "AAPL")
	qctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	price, err := session.Quotes.Get(qctx, wstrade.Symbol(symbol))
	if err != nil {
		logg.Fatalw("failed to fetch quote", "symbol", symbol, "error", err)
	}
	logg.Infow("quote", "symbol", symbol, "price", price.String())
}

// promptOTP reads a one-time password from stdin.
func promptOTP(ctx context.Context) (string, error) {
	fmt.Print("Enter OTP: ")

	type result struct {
		code string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		ch <- result{strings.TrimSpace(line), err}
	}()

	select {
	case r := <-ch:
		return r.code, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
