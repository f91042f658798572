// Package voicevox adapts a VOICEVOX engine. Each speaker style is exposed as
// its own voice, keyed by the numeric style id.
package voicevox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/httpx"
)

const ID = "voicevox"

const (
	defaultURL = "http://localhost:50021"
	// 四国めたん (ノーマル)
	defaultSpeaker = "2"
)

type Config struct {
	URL     string
	Timeout time.Duration
}

type Provider struct {
	baseURL string
	http    *httpx.Client
	store   storage.AudioStore
}

func New(cfg Config, store storage.AudioStore) *Provider {
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	return &Provider{baseURL: strings.TrimRight(cfg.URL, "/"), http: httpx.New(ID, cfg.Timeout), store: store}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) DisplayName() string { return "VOICEVOX" }

type speaker struct {
	Name        string `json:"name"`
	SpeakerUUID string `json:"speaker_uuid"`
	Styles      []struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"styles"`
}

func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	var speakers []speaker
	if err := p.http.DoJSON(ctx, http.MethodGet, p.baseURL+"/speakers", nil, nil, &speakers); err != nil {
		return nil, err
	}
	var out []tts.Voice
	for _, s := range speakers {
		for _, style := range s.Styles {
			out = append(out, tts.Voice{
				ID:          strconv.Itoa(style.ID),
				DisplayName: fmt.Sprintf("%s (%s)", s.Name, style.Name),
				LanguageTag: "ja-JP",
				Meta:        map[string]any{"speakerUuid": s.SpeakerUUID, "style": style.Name},
			})
		}
	}
	if out == nil {
		out = []tts.Voice{}
	}
	return out, nil
}

// Synthesize runs the two-step audio_query/synthesis flow. Rate maps to
// speedScale and pitch (semitones) to pitchScale.
func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	if f := req.Format("wav"); f != "wav" {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("unsupported format %q", f), nil)
	}
	speakerID := req.Voice(defaultSpeaker)
	if _, err := strconv.Atoi(speakerID); err != nil {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("voice id %q is not a style id", speakerID), nil)
	}
	if rate, ok := req.Rate(); ok && (rate < 0.5 || rate > 2.0) {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("rate %.2f outside [0.5, 2.0]", rate), nil)
	}

	q := url.Values{"text": {req.Text}, "speaker": {speakerID}}
	var query map[string]any
	if err := p.http.DoJSON(ctx, http.MethodPost, p.baseURL+"/audio_query?"+q.Encode(), nil, nil, &query); err != nil {
		return nil, err
	}
	if query == nil {
		return nil, tts.Unavailable(ID, "empty audio query", nil)
	}
	if rate, ok := req.Rate(); ok {
		query["speedScale"] = rate
	}
	if pitch, ok := req.Pitch(); ok {
		// pitchScale is an offset where roughly 0.15 is one octave.
		query["pitchScale"] = pitch * 0.15 / 12
	}

	payload, err := json.Marshal(query)
	if err != nil {
		return nil, tts.Unavailable(ID, "encode audio query", err)
	}
	audio, _, err := p.http.DoRaw(ctx, http.MethodPost,
		p.baseURL+"/synthesis?"+url.Values{"speaker": {speakerID}}.Encode(),
		map[string]string{"Content-Type": "application/json", "Accept": "audio/wav"},
		bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	uri, err := p.store.Put(ctx, storage.ObjectKey(ID, "wav"), storage.ContentType("wav"), audio)
	if err != nil {
		return nil, tts.Unavailable(ID, "store audio", err)
	}
	return &tts.SynthesisResult{AudioURI: uri}, nil
}

func (p *Provider) Health(ctx context.Context) tts.HealthStatus {
	return p.http.Probe(ctx, p.baseURL+"/version", nil)
}
