// Package azure adapts Azure Cognitive Services Speech.
package azure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/httpx"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/ssml"
)

const ID = "azure"

const (
	defaultVoice  = "en-US-JennyNeural"
	defaultFormat = "mp3"
)

var outputFormats = map[string]string{
	"mp3": "audio-24khz-96kbitrate-mono-mp3",
	"wav": "riff-24khz-16bit-mono-pcm",
	"ogg": "ogg-24khz-16bit-mono-opus",
}

type Config struct {
	Key    string
	Region string
	// BaseURL overrides the regional endpoint.
	BaseURL string
	Timeout time.Duration
}

type Provider struct {
	baseURL string
	key     string
	http    *httpx.Client
	store   storage.AudioStore
}

func New(cfg Config, store storage.AudioStore) *Provider {
	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.tts.speech.microsoft.com", cfg.Region)
	}
	return &Provider{
		baseURL: strings.TrimRight(base, "/"),
		key:     cfg.Key,
		http:    httpx.New(ID, cfg.Timeout),
		store:   store,
	}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) DisplayName() string { return "Azure Speech" }

type azureVoice struct {
	ShortName   string   `json:"ShortName"`
	DisplayName string   `json:"DisplayName"`
	LocalName   string   `json:"LocalName"`
	Locale      string   `json:"Locale"`
	Gender      string   `json:"Gender"`
	VoiceType   string   `json:"VoiceType"`
	StyleList   []string `json:"StyleList"`
}

func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	var raw []azureVoice
	if err := p.http.DoJSON(ctx, http.MethodGet, p.baseURL+"/cognitiveservices/voices/list", p.headers(), nil, &raw); err != nil {
		return nil, err
	}
	out := make([]tts.Voice, 0, len(raw))
	for _, v := range raw {
		meta := map[string]any{}
		if v.LocalName != "" {
			meta["localName"] = v.LocalName
		}
		if v.VoiceType != "" {
			meta["voiceType"] = v.VoiceType
		}
		if len(v.StyleList) > 0 {
			meta["styles"] = v.StyleList
		}
		out = append(out, tts.Voice{
			ID:          v.ShortName,
			DisplayName: v.DisplayName,
			LanguageTag: v.Locale,
			Gender:      tts.GenderPtr(v.Gender),
			Meta:        meta,
		})
	}
	return out, nil
}

// Synthesize builds an SSML document; emotion maps to mstts:express-as.
func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	ext := req.Format(defaultFormat)
	outputFormat, ok := outputFormats[ext]
	if !ok {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("unsupported format %q", ext), nil)
	}

	doc, err := buildSSML(req)
	if err != nil {
		return nil, err
	}
	headers := p.headers()
	headers["Content-Type"] = "application/ssml+xml"
	headers["X-Microsoft-OutputFormat"] = outputFormat
	headers["User-Agent"] = "tts-gateway"

	audio, _, err := p.http.DoRaw(ctx, http.MethodPost, p.baseURL+"/cognitiveservices/v1", headers, strings.NewReader(doc))
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
	return p.http.Probe(ctx, p.baseURL+"/cognitiveservices/voices/list", p.headers())
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"Ocp-Apim-Subscription-Key": p.key}
}

func buildSSML(req tts.SynthesisRequest) (string, error) {
	voice := req.Voice(defaultVoice)
	lang := req.Lang(localeOf(voice))

	var rate, pitch string
	if r, ok := req.Rate(); ok {
		if r <= 0 || r > 3 {
			return "", tts.InvalidRequest(ID, fmt.Sprintf("rate %.2f outside (0, 3]", r), nil)
		}
		rate = ssml.RelativePercent(r)
	}
	if st, ok := req.Pitch(); ok {
		pitch = ssml.Semitones(st)
	}
	inner := ssml.Prosody(req.Text, rate, pitch)
	if emotion, ok := req.Emotion(); ok {
		inner = fmt.Sprintf(`<mstts:express-as style="%s">%s</mstts:express-as>`, ssml.Escape(emotion), inner)
	}

	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="https://www.w3.org/2001/mstts" xml:lang="%s"><voice name="%s">%s</voice></speak>`,
		ssml.Escape(lang), ssml.Escape(voice), inner,
	), nil
}

// localeOf derives the locale from names like "ja-JP-NanamiNeural".
func localeOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}
