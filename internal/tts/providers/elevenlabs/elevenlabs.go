// Package elevenlabs adapts the ElevenLabs REST API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/httpx"
)

const ID = "elevenlabs"

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_multilingual_v2"
	// Rachel, the stock ElevenLabs voice.
	defaultVoice  = "21m00Tcm4TlvDq8ikWAM"
	defaultFormat = "mp3"
)

var outputFormats = map[string]string{
	"mp3": "mp3_44100_128",
	"pcm": "pcm_24000",
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
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
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Provider{cfg: cfg, http: httpx.New(ID, cfg.Timeout), store: store}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) DisplayName() string { return "ElevenLabs" }

type voicesResponse struct {
	Voices []struct {
		VoiceID  string            `json:"voice_id"`
		Name     string            `json:"name"`
		Category string            `json:"category"`
		Labels   map[string]string `json:"labels"`
	} `json:"voices"`
}

// ListVoices maps the account's voices. ElevenLabs voices are multilingual,
// so the language tag comes from the voice labels and defaults to "en".
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	var resp voicesResponse
	if err := p.http.DoJSON(ctx, http.MethodGet, p.cfg.BaseURL+"/v1/voices", p.headers(), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]tts.Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		lang := v.Labels["language"]
		if lang == "" {
			lang = "en"
		}
		meta := map[string]any{}
		if v.Category != "" {
			meta["category"] = v.Category
		}
		if accent := v.Labels["accent"]; accent != "" {
			meta["accent"] = accent
		}
		voice := tts.Voice{ID: v.VoiceID, DisplayName: v.Name, LanguageTag: lang, Meta: meta}
		if g, ok := v.Labels["gender"]; ok {
			voice.Gender = tts.GenderPtr(g)
		}
		out = append(out, voice)
	}
	return out, nil
}

type voiceSettings struct {
	Stability       *float64 `json:"stability,omitempty"`
	SimilarityBoost *float64 `json:"similarity_boost,omitempty"`
	Speed           *float64 `json:"speed,omitempty"`
}

type synthesizeRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	LanguageCode  string         `json:"language_code,omitempty"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// Synthesize honours providerExtra keys stability and similarityBoost.
func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	ext := req.Format(defaultFormat)
	outputFormat, ok := outputFormats[ext]
	if !ok {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("unsupported format %q", ext), nil)
	}

	body := synthesizeRequest{Text: req.Text, ModelID: p.cfg.Model, LanguageCode: req.Lang("")}
	settings := voiceSettings{}
	if rate, ok := req.Rate(); ok {
		if rate < 0.7 || rate > 1.2 {
			return nil, tts.InvalidRequest(ID, fmt.Sprintf("rate %.2f outside [0.7, 1.2]", rate), nil)
		}
		settings.Speed = &rate
	}
	for key, dst := range map[string]**float64{"stability": &settings.Stability, "similarityBoost": &settings.SimilarityBoost} {
		v, ok := req.Extra(key)
		if !ok {
			continue
		}
		f, ok := v.(float64)
		if !ok || f < 0 || f > 1 {
			return nil, tts.InvalidRequest(ID, fmt.Sprintf("providerExtra.%s must be a number in [0, 1]", key), nil)
		}
		*dst = &f
	}
	if settings != (voiceSettings{}) {
		body.VoiceSettings = &settings
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?%s", p.cfg.BaseURL,
		url.PathEscape(req.Voice(defaultVoice)), url.Values{"output_format": {outputFormat}}.Encode())

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, tts.InvalidRequest(ID, "marshal request", err)
	}
	headers := p.headers()
	headers["Content-Type"] = "application/json"
	audio, _, err := p.http.DoRaw(ctx, http.MethodPost, endpoint, headers, bytes.NewReader(payload))
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
	return p.http.Probe(ctx, p.cfg.BaseURL+"/v1/models", p.headers())
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"xi-api-key": p.cfg.APIKey}
}
