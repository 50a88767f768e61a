package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider implements Provider on top of environment variables, for
// development setups without an AWS account. A secret key "trade/login"
// maps to variables prefixed TRADE_LOGIN_ (e.g. TRADE_LOGIN_EMAIL).
type EnvProvider struct{}

// NewEnvProvider creates an environment-variable secrets provider.
func NewEnvProvider() Provider {
	return &EnvProvider{}
}

// GetSecret collects every variable under the key's prefix into a map
// with lower-cased suffix keys.
func (p *EnvProvider) GetSecret(_ context.Context, key string) (map[string]string, error) {
	prefix := envPrefix(key)
	result := make(map[string]string)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		result[strings.ToLower(strings.TrimPrefix(name, prefix))] = value
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no environment variables under prefix [%s]", prefix)
	}
	return result, nil
}

// ListSecrets is unsupported for the env backend.
func (p *EnvProvider) ListSecrets(context.Context, string) ([]string, error) {
	return nil, fmt.Errorf("env provider does not support listing secrets")
}

func envPrefix(key string) string {
	cleaned := strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(key)
	return strings.ToUpper(cleaned) + "_"
}
