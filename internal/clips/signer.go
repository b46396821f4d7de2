package clips

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/highlightreel/backend/pkg/metrics"
	"github.com/highlightreel/backend/pkg/redis"
)

const urlCachePrefix = "clipurl:"

// URLSigner turns an object key into a time-limited URL.
type URLSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

// Presigner is the storage side of URL signing.
type Presigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
	PresignExpire() time.Duration
}

// URLCache stores signed URLs between requests.
type URLCache interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedSigner signs keys through a Presigner and remembers the result for
// slightly less than the URL lifetime so cached links never hand out an
// expired signature. Cache failures fall back to signing.
type CachedSigner struct {
	presigner Presigner
	cache     URLCache
	logger    *zap.Logger
}

// NewCachedSigner creates a signer. cache may be nil.
func NewCachedSigner(p Presigner, cache URLCache, logger *zap.Logger) *CachedSigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSigner{presigner: p, cache: cache, logger: logger}
}

// SignedURL returns a GET URL for key; an empty key yields an empty URL.
func (s *CachedSigner) SignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	if s.cache != nil {
		v, err := s.cache.GetString(ctx, urlCachePrefix+key)
		if err == nil {
			metrics.URLCacheHits.Inc()
			return v, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("url cache read failed", zap.Error(err))
		}
	}

	metrics.URLCacheMisses.Inc()
	url, err := s.presigner.PresignGet(ctx, key)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		ttl := s.presigner.PresignExpire() - time.Minute
		if err := s.cache.SetString(ctx, urlCachePrefix+key, url, ttl); err != nil {
			s.logger.Warn("url cache write failed", zap.Error(err))
		}
	}
	return url, nil
}
