package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) GetSecret(context.Context, string) (map[string]string, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return map[string]string{"email": "user@example.com"}, nil
}

func (p *countingProvider) ListSecrets(context.Context, string) ([]string, error) {
	return []string{"trade/login"}, nil
}

func TestCachingProvider_ServesFromCache(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachingProvider(inner, time.Minute)

	first, err := p.GetSecret(context.Background(), "trade/login")
	require.NoError(t, err)
	second, err := p.GetSecret(context.Background(), "trade/login")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachingProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("backend down")}
	p := NewCachingProvider(inner, time.Minute)

	_, err := p.GetSecret(context.Background(), "trade/login")
	require.Error(t, err)

	inner.err = nil
	_, err = p.GetSecret(context.Background(), "trade/login")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachingProvider_Bust(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachingProvider(inner, time.Minute)

	_, err := p.GetSecret(context.Background(), "trade/login")
	require.NoError(t, err)
	p.Bust("trade/login")
	_, err = p.GetSecret(context.Background(), "trade/login")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}
