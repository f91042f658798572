package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

func newTestProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, store)
}

func ptr[T any](v T) *T { return &v }

func TestSynthesize_WritesAudio(t *testing.T) {
	var got map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-fake-audio"))
	})

	res, err := p.Synthesize(context.Background(), tts.SynthesisRequest{
		Text:    "hello",
		VoiceID: ptr("nova"),
		Options: &tts.SynthesisOptions{Rate: ptr(1.5), Format: ptr("wav")},
	})
	require.NoError(t, err)

	assert.Equal(t, "tts-1", got["model"])
	assert.Equal(t, "hello", got["input"])
	assert.Equal(t, "nova", got["voice"])
	assert.Equal(t, "wav", got["response_format"])
	assert.InDelta(t, 1.5, got["speed"], 1e-9)

	u, err := url.Parse(res.AudioURI)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.True(t, strings.HasSuffix(u.Path, ".wav"))
	data, err := os.ReadFile(u.Path)
	require.NoError(t, err)
	assert.Equal(t, "ID3-fake-audio", string(data))
}

func TestSynthesize_Defaults(t *testing.T) {
	var got map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("x"))
	})

	res, err := p.Synthesize(context.Background(), tts.SynthesisRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "alloy", got["voice"])
	assert.Equal(t, "mp3", got["response_format"])
	assert.NotContains(t, got, "speed")
	assert.True(t, strings.HasSuffix(res.AudioURI, ".mp3"))
}

func TestSynthesize_RejectedLocally(t *testing.T) {
	called := false
	p := newTestProvider(t, func(http.ResponseWriter, *http.Request) { called = true })

	tests := []struct {
		name string
		req  tts.SynthesisRequest
	}{
		{"unknown voice", tts.SynthesisRequest{Text: "hi", VoiceID: ptr("bogus")}},
		{"bad format", tts.SynthesisRequest{Text: "hi", Options: &tts.SynthesisOptions{Format: ptr("midi")}}},
		{"rate too low", tts.SynthesisRequest{Text: "hi", Options: &tts.SynthesisOptions{Rate: ptr(0.1)}}},
		{"rate too high", tts.SynthesisRequest{Text: "hi", Options: &tts.SynthesisOptions{Rate: ptr(5.0)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Synthesize(context.Background(), tt.req)
			assert.ErrorIs(t, err, tts.ErrInvalidRequest)
		})
	}
	assert.False(t, called)
}

func TestSynthesize_VendorErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, tts.ErrInvalidRequest},
		{http.StatusUnauthorized, tts.ErrProviderUnavailable},
		{http.StatusInternalServerError, tts.ErrProviderUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			})
			_, err := p.Synthesize(context.Background(), tts.SynthesisRequest{Text: "hi"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestListVoices_Static(t *testing.T) {
	p := newTestProvider(t, func(http.ResponseWriter, *http.Request) {})
	a, err := p.ListVoices(context.Background())
	require.NoError(t, err)
	assert.Len(t, a, 6)
	for _, v := range a {
		assert.True(t, v.WellFormed())
	}

	a[0].ID = "mutated"
	b, _ := p.ListVoices(context.Background())
	assert.Equal(t, "alloy", b[0].ID)
}

func TestHealth(t *testing.T) {
	ok := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	})
	assert.Equal(t, tts.HealthOK, ok.Health(context.Background()))

	down := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.Equal(t, tts.HealthDegraded, down.Health(context.Background()))
}
