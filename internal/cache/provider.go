package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

// CachedProvider wraps a provider with a read-through voice catalog cache.
// Synthesis and health always reach the wrapped provider.
type CachedProvider struct {
	tts.Provider
	cache  *Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedProvider(p tts.Provider, c *Cache, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{Provider: p, cache: c, ttl: ttl, logger: logger}
}

func (p *CachedProvider) DisplayName() string { return tts.DisplayName(p.Provider) }

// ListVoices serves from redis when possible. Cache failures degrade to a
// direct call; provider failures are never cached.
func (p *CachedProvider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	key := voicesKey(p.ID())

	var cached []tts.Voice
	err := p.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		if cached == nil {
			cached = []tts.Voice{}
		}
		return cached, nil
	case !errors.Is(err, ErrMiss):
		p.logger.Warn("voice cache read failed", "provider", p.ID(), "error", err)
	}

	voices, err := p.Provider.ListVoices(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, voices, p.ttl); err != nil {
		p.logger.Warn("voice cache write failed", "provider", p.ID(), "error", err)
	}
	return voices, nil
}

// Invalidate drops the cached catalog so the next listing hits the vendor.
func (p *CachedProvider) Invalidate(ctx context.Context) error {
	return p.cache.Delete(ctx, voicesKey(p.ID()))
}

func voicesKey(id string) string { return "voices:" + id }
