package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/ttstest"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, "ttsgw:"), mr
}

func TestCache_GetSetDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var out map[string]int
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	assert.True(t, mr.Exists("ttsgw:k"))
	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, 1, out["a"])

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
	assert.NoError(t, c.Ping(ctx))
}

func TestCachedProvider_ReadThrough(t *testing.T) {
	c, mr := newTestCache(t)
	spy := ttstest.New("alpha")
	p := NewCachedProvider(spy, c, time.Minute, nil)
	ctx := context.Background()

	first, err := p.ListVoices(ctx)
	require.NoError(t, err)
	second, err := p.ListVoices(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, spy.VoicesCalls())
	assert.True(t, mr.Exists("ttsgw:voices:alpha"))

	mr.FastForward(2 * time.Minute)
	_, err = p.ListVoices(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, spy.VoicesCalls())
}

func TestCachedProvider_EmptyCatalogCached(t *testing.T) {
	c, _ := newTestCache(t)
	spy := ttstest.New("empty")
	spy.Voices = []tts.Voice{}
	p := NewCachedProvider(spy, c, time.Minute, nil)

	for i := 0; i < 3; i++ {
		voices, err := p.ListVoices(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, voices)
		assert.Empty(t, voices)
	}
	assert.EqualValues(t, 1, spy.VoicesCalls())
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	spy := ttstest.New("flaky")
	spy.VoicesErr = errors.New("vendor down")
	p := NewCachedProvider(spy, c, time.Minute, nil)

	_, err := p.ListVoices(context.Background())
	assert.Error(t, err)
	assert.False(t, mr.Exists("ttsgw:voices:flaky"))
}

func TestCachedProvider_RedisDownFallsBack(t *testing.T) {
	c, mr := newTestCache(t)
	spy := ttstest.New("alpha")
	p := NewCachedProvider(spy, c, time.Minute, nil)
	mr.Close()

	voices, err := p.ListVoices(context.Background())
	require.NoError(t, err)
	assert.Len(t, voices, 1)
	assert.EqualValues(t, 1, spy.VoicesCalls())
}

func TestCachedProvider_PassThrough(t *testing.T) {
	c, _ := newTestCache(t)
	spy := ttstest.New("alpha")
	spy.Label = "Alpha Speech"
	p := NewCachedProvider(spy, c, time.Minute, nil)
	ctx := context.Background()

	assert.Equal(t, "alpha", p.ID())
	assert.Equal(t, "Alpha Speech", p.DisplayName())
	assert.Same(t, spy, p.Provider)

	_, err := p.Synthesize(ctx, tts.SynthesisRequest{Text: "hi"})
	require.NoError(t, err)
	_, err = p.Synthesize(ctx, tts.SynthesisRequest{Text: "hi"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, spy.SynthCalls())

	assert.Equal(t, tts.HealthOK, p.Health(ctx))
	assert.EqualValues(t, 1, spy.HealthCalls())
}

func TestCachedProvider_Invalidate(t *testing.T) {
	c, _ := newTestCache(t)
	spy := ttstest.New("alpha")
	p := NewCachedProvider(spy, c, time.Minute, nil)
	ctx := context.Background()

	_, _ = p.ListVoices(ctx)
	require.NoError(t, p.Invalidate(ctx))
	_, _ = p.ListVoices(ctx)
	assert.EqualValues(t, 2, spy.VoicesCalls())
}
