package demo

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

func ptr[T any](v T) *T { return &v }

func TestSynthesize_UniqueURLs(t *testing.T) {
	p := New("openai", "OpenAI (demo)", tts.Voice{ID: "nova", DisplayName: "Nova", LanguageTag: "en-US"})

	a, err := p.Synthesize(context.Background(), tts.SynthesisRequest{Text: "hi"})
	require.NoError(t, err)
	b, err := p.Synthesize(context.Background(), tts.SynthesisRequest{Text: "hi", VoiceID: ptr("nova"), Options: &tts.SynthesisOptions{Format: ptr("wav")}})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/openai-1.mp3", a.AudioURI)
	assert.Equal(t, "https://example.com/openai-2.wav", b.AudioURI)
	u, err := url.Parse(a.AudioURI)
	require.NoError(t, err)
	assert.True(t, u.IsAbs())
}

func TestSynthesize_Rejections(t *testing.T) {
	p := All()[0]
	_, err := p.Synthesize(context.Background(), tts.SynthesisRequest{Text: "hi", VoiceID: ptr("ghost")})
	assert.ErrorIs(t, err, tts.ErrInvalidRequest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Synthesize(ctx, tts.SynthesisRequest{Text: "hi"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAll_CatalogsWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range All() {
		assert.False(t, seen[p.ID()], "duplicate id %s", p.ID())
		seen[p.ID()] = true

		voices, err := p.ListVoices(context.Background())
		require.NoError(t, err)
		require.NotEmpty(t, voices)
		assert.Equal(t, voices, tts.FilterWellFormed(voices))
		assert.Equal(t, tts.HealthOK, p.Health(context.Background()))
	}
}
