// Package openai adapts OpenAI's speech endpoint to the gateway contract.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

const ID = "openai"

const (
	defaultModel  = "tts-1"
	defaultVoice  = "alloy"
	defaultFormat = "mp3"
	minSpeed      = 0.25
	maxSpeed      = 4.0
)

var voices = []tts.Voice{
	{ID: "alloy", DisplayName: "Alloy", LanguageTag: "en-US", Gender: tts.GenderPtr("neutral")},
	{ID: "echo", DisplayName: "Echo", LanguageTag: "en-US", Gender: tts.GenderPtr("male")},
	{ID: "fable", DisplayName: "Fable", LanguageTag: "en-GB", Gender: tts.GenderPtr("neutral")},
	{ID: "onyx", DisplayName: "Onyx", LanguageTag: "en-US", Gender: tts.GenderPtr("male")},
	{ID: "nova", DisplayName: "Nova", LanguageTag: "en-US", Gender: tts.GenderPtr("female")},
	{ID: "shimmer", DisplayName: "Shimmer", LanguageTag: "en-US", Gender: tts.GenderPtr("female")},
}

var formats = map[string]bool{
	"mp3": true, "opus": true, "aac": true, "flac": true, "wav": true, "pcm": true,
}

type Config struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "tts-1"
}

// speechAPI is the slice of the go-openai client this provider uses.
type speechAPI interface {
	CreateSpeech(ctx context.Context, req goopenai.CreateSpeechRequest) (goopenai.RawResponse, error)
	ListModels(ctx context.Context) (goopenai.ModelsList, error)
}

type Provider struct {
	client speechAPI
	model  string
	store  storage.AudioStore
}

func New(cfg Config, store storage.AudioStore) *Provider {
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{client: goopenai.NewClientWithConfig(oc), model: cfg.Model, store: store}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) DisplayName() string { return "OpenAI TTS" }

// ListVoices returns the fixed OpenAI voice set; the API has no catalog endpoint.
func (p *Provider) ListVoices(context.Context) ([]tts.Voice, error) {
	out := make([]tts.Voice, len(voices))
	copy(out, voices)
	return out, nil
}

func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	voice := req.Voice(defaultVoice)
	if !knownVoice(voice) {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("unknown voice %q", voice), nil)
	}
	ext := req.Format(defaultFormat)
	if !formats[ext] {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("unsupported format %q", ext), nil)
	}

	speechReq := goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(p.model),
		Input:          req.Text,
		Voice:          goopenai.SpeechVoice(voice),
		ResponseFormat: goopenai.SpeechResponseFormat(ext),
	}
	if rate, ok := req.Rate(); ok {
		if rate < minSpeed || rate > maxSpeed {
			return nil, tts.InvalidRequest(ID, fmt.Sprintf("rate %.2f outside [%.2f, %.1f]", rate, minSpeed, maxSpeed), nil)
		}
		speechReq.Speed = rate
	}

	resp, err := p.client.CreateSpeech(ctx, speechReq)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, tts.Unavailable(ID, "read audio", err)
	}

	uri, err := p.store.Put(ctx, storage.ObjectKey(ID, ext), storage.ContentType(ext), audio)
	if err != nil {
		return nil, tts.Unavailable(ID, "store audio", err)
	}
	return &tts.SynthesisResult{AudioURI: uri}, nil
}

// Health lists models as a cheap authenticated round trip.
func (p *Provider) Health(ctx context.Context) tts.HealthStatus {
	if _, err := p.client.ListModels(ctx); err != nil {
		return tts.HealthDegraded
	}
	return tts.HealthOK
}

func knownVoice(id string) bool {
	for _, v := range voices {
		if v.ID == id {
			return true
		}
	}
	return false
}

func classify(err error) error {
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return tts.InvalidRequest(ID, "rejected by OpenAI", err)
	default:
		return tts.Unavailable(ID, "speech request failed", err)
	}
}
