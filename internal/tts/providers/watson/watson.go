// Package watson adapts IBM Watson Text to Speech.
package watson

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/httpx"
)

const ID = "watson"

const (
	defaultVoice  = "en-US_AllisonV3Voice"
	defaultFormat = "mp3"

	// rate_percentage and pitch_percentage are clamped by Watson to [-100, 100].
	minRate  = 0.5
	maxRate  = 2.0
	maxPitch = 12.0
)

var accepts = map[string]string{
	"mp3":  "audio/mp3",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg;codecs=opus",
	"flac": "audio/flac",
}

type Config struct {
	APIKey  string
	URL     string // service instance URL
	Timeout time.Duration
}

type Provider struct {
	baseURL string
	auth    string
	http    *httpx.Client
	store   storage.AudioStore
}

func New(cfg Config, store storage.AudioStore) *Provider {
	token := base64.StdEncoding.EncodeToString([]byte("apikey:" + cfg.APIKey))
	return &Provider{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		auth:    "Basic " + token,
		http:    httpx.New(ID, cfg.Timeout),
		store:   store,
	}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) DisplayName() string { return "IBM Watson Text to Speech" }

type voicesResponse struct {
	Voices []struct {
		Name        string `json:"name"`
		Language    string `json:"language"`
		Gender      string `json:"gender"`
		Description string `json:"description"`
	} `json:"voices"`
}

func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	var resp voicesResponse
	if err := p.http.DoJSON(ctx, http.MethodGet, p.baseURL+"/v1/voices", p.headers(), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]tts.Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		display := v.Description
		if display == "" {
			display = v.Name
		}
		out = append(out, tts.Voice{
			ID:          v.Name,
			DisplayName: display,
			LanguageTag: v.Language,
			Gender:      tts.GenderPtr(v.Gender),
		})
	}
	return out, nil
}

// Synthesize posts the text; Watson accepts SSML inline in the same field.
func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	ext := req.Format(defaultFormat)
	accept, ok := accepts[ext]
	if !ok {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("unsupported format %q", ext), nil)
	}

	q := url.Values{"voice": {req.Voice(defaultVoice)}}
	if rate, ok := req.Rate(); ok {
		if rate < minRate || rate > maxRate {
			return nil, tts.InvalidRequest(ID, fmt.Sprintf("rate %.2f outside [%.1f, %.1f]", rate, minRate, maxRate), nil)
		}
		// rate_percentage is a signed delta from the default speed.
		q.Set("rate_percentage", strconv.Itoa(int(math.Round((rate-1)*100))))
	}
	if pitch, ok := req.Pitch(); ok {
		if math.Abs(pitch) > maxPitch {
			return nil, tts.InvalidRequest(ID, fmt.Sprintf("pitch %.1f outside [-%.0f, %.0f] semitones", pitch, maxPitch, maxPitch), nil)
		}
		// Roughly 6% per semitone.
		q.Set("pitch_percentage", strconv.Itoa(int(math.Round(pitch*6))))
	}

	payload, err := json.Marshal(map[string]string{"text": req.Text})
	if err != nil {
		return nil, tts.InvalidRequest(ID, "marshal request", err)
	}
	headers := p.headers()
	headers["Accept"] = accept
	headers["Content-Type"] = "application/json"

	audio, _, err := p.http.DoRaw(ctx, http.MethodPost, p.baseURL+"/v1/synthesize?"+q.Encode(), headers, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	uri, err := p.store.Put(ctx, storage.ObjectKey(ID, ext), storage.ContentType(ext), audio)
	if err != nil {
		return nil, tts.Unavailable(ID, "store audio", err)
	}
	return &tts.SynthesisResult{AudioURI: uri}, nil
}

func (p *Provider) Health(ctx context.Context) tts.HealthStatus {
	return p.http.Probe(ctx, p.baseURL+"/v1/voices", p.headers())
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"Authorization": p.auth}
}
