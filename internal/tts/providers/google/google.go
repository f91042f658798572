// Package google adapts the Cloud Text-to-Speech REST API.
package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/httpx"
)

const ID = "google"

const (
	defaultBaseURL  = "https://texttospeech.googleapis.com"
	defaultLanguage = "en-US"
	defaultFormat   = "mp3"
)

var encodings = map[string]string{
	"mp3": "MP3",
	"wav": "LINEAR16",
	"ogg": "OGG_OPUS",
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Provider struct {
	cfg   Config
	http  *httpx.Client
	store storage.AudioStore
}

func New(cfg Config, store storage.AudioStore) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Provider{cfg: cfg, http: httpx.New(ID, cfg.Timeout), store: store}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) DisplayName() string { return "Google Cloud Text-to-Speech" }

type voicesResponse struct {
	Voices []struct {
		LanguageCodes          []string `json:"languageCodes"`
		Name                   string   `json:"name"`
		SSMLGender             string   `json:"ssmlGender"`
		NaturalSampleRateHertz int      `json:"naturalSampleRateHertz"`
	} `json:"voices"`
}

func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	var resp voicesResponse
	if err := p.http.DoJSON(ctx, http.MethodGet, p.endpoint("/v1/voices", nil), nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]tts.Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		lang := ""
		if len(v.LanguageCodes) > 0 {
			lang = v.LanguageCodes[0]
		}
		out = append(out, tts.Voice{
			ID:          v.Name,
			DisplayName: v.Name,
			LanguageTag: lang,
			Gender:      tts.GenderPtr(v.SSMLGender),
			Meta:        map[string]any{"naturalSampleRateHertz": v.NaturalSampleRateHertz},
		})
	}
	return out, nil
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text,omitempty"`
		SSML string `json:"ssml,omitempty"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate,omitempty"`
		Pitch         float64 `json:"pitch,omitempty"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	ext := req.Format(defaultFormat)
	encoding, ok := encodings[ext]
	if !ok {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("unsupported format %q", ext), nil)
	}

	var body synthesizeRequest
	if ssml, _ := req.Extra("ssml"); ssml == true {
		body.Input.SSML = req.Text
	} else {
		body.Input.Text = req.Text
	}
	body.Voice.LanguageCode = req.Lang(languageOf(req.Voice("")))
	body.Voice.Name = req.Voice("")
	body.AudioConfig.AudioEncoding = encoding
	if rate, ok := req.Rate(); ok {
		if rate < 0.25 || rate > 4.0 {
			return nil, tts.InvalidRequest(ID, fmt.Sprintf("rate %.2f outside [0.25, 4.0]", rate), nil)
		}
		body.AudioConfig.SpeakingRate = rate
	}
	if pitch, ok := req.Pitch(); ok {
		if pitch < -20 || pitch > 20 {
			return nil, tts.InvalidRequest(ID, fmt.Sprintf("pitch %.1f outside [-20, 20]", pitch), nil)
		}
		body.AudioConfig.Pitch = pitch
	}

	var resp synthesizeResponse
	if err := p.http.DoJSON(ctx, http.MethodPost, p.endpoint("/v1/text:synthesize", nil), nil, body, &resp); err != nil {
		return nil, err
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, tts.Unavailable(ID, "decode audioContent", err)
	}
	uri, err := p.store.Put(ctx, storage.ObjectKey(ID, ext), storage.ContentType(ext), audio)
	if err != nil {
		return nil, tts.Unavailable(ID, "store audio", err)
	}
	return &tts.SynthesisResult{AudioURI: uri}, nil
}

func (p *Provider) Health(ctx context.Context) tts.HealthStatus {
	return p.http.Probe(ctx, p.endpoint("/v1/voices", url.Values{"languageCode": {defaultLanguage}}), nil)
}

func (p *Provider) endpoint(path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("key", p.cfg.APIKey)
	return p.cfg.BaseURL + path + "?" + q.Encode()
}

// languageOf derives the language from names like "en-US-Wavenet-D".
func languageOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return defaultLanguage
	}
	return parts[0] + "-" + parts[1]
}
