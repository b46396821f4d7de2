package clips

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedSignerCachesBelowExpiry(t *testing.T) {
	ctx := context.Background()
	p := &fakePresigner{expire: 15 * time.Minute}
	cache := newMemCache()
	s := NewCachedSigner(p, cache, nil)

	first, err := s.SignedURL(ctx, "clips/a.mp4")
	require.NoError(t, err)
	second, err := s.SignedURL(ctx, "clips/a.mp4")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 14*time.Minute, cache.ttls["clipurl:clips/a.mp4"])
}

func TestCachedSignerWithoutCache(t *testing.T) {
	p := &fakePresigner{expire: time.Minute}
	s := NewCachedSigner(p, nil, nil)
	for i := 0; i < 2; i++ {
		_, err := s.SignedURL(context.Background(), "k")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, p.calls)
}

func TestCachedSignerEmptyKeyAndErrors(t *testing.T) {
	p := &fakePresigner{expire: time.Minute, err: errors.New("no credentials")}
	s := NewCachedSigner(p, newMemCache(), nil)

	url, err := s.SignedURL(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Zero(t, p.calls)

	_, err = s.SignedURL(context.Background(), "k")
	assert.Error(t, err)
}
