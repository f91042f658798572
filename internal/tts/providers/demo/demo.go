// Package demo provides in-memory providers with fixed catalogs. They return
// placeholder URLs and never contact a vendor, which makes a gateway usable
// end to end without credentials.
package demo

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

type Provider struct {
	id     string
	label  string
	voices []tts.Voice
	seq    atomic.Int64
}

func New(id, label string, voices ...tts.Voice) *Provider {
	return &Provider{id: id, label: label, voices: voices}
}

// All returns demo stand-ins for the common vendors.
func All() []*Provider {
	return []*Provider{
		New("openai", "OpenAI (demo)",
			tts.Voice{ID: "nova", DisplayName: "Nova", LanguageTag: "en-US", Gender: tts.GenderPtr("female")},
			tts.Voice{ID: "shiro", DisplayName: "Shiro", LanguageTag: "ja-JP", Gender: tts.GenderPtr("male")},
		),
		New("google", "Google (demo)",
			tts.Voice{ID: "en-US-Wavenet-D", DisplayName: "en-US-Wavenet-D", LanguageTag: "en-US", Gender: tts.GenderPtr("male")},
		),
		New("watson", "Watson (demo)",
			tts.Voice{ID: "ja-JP_EmiV3Voice", DisplayName: "Emi", LanguageTag: "ja-JP", Gender: tts.GenderPtr("female")},
		),
		New("voicevox", "VOICEVOX (demo)",
			tts.Voice{ID: "2", DisplayName: "四国めたん (ノーマル)", LanguageTag: "ja-JP", Gender: tts.GenderPtr("female")},
		),
		New("polly", "Amazon Polly (demo)",
			tts.Voice{ID: "Joanna", DisplayName: "Joanna", LanguageTag: "en-US", Gender: tts.GenderPtr("female")},
		),
	}
}

func (p *Provider) ID() string          { return p.id }
func (p *Provider) DisplayName() string { return p.label }

func (p *Provider) ListVoices(context.Context) ([]tts.Voice, error) {
	out := make([]tts.Voice, len(p.voices))
	copy(out, p.voices)
	return out, nil
}

// Synthesize returns https://example.com/<id>-<n>.<format>. Voice ids outside
// the catalog are rejected like a real vendor would.
func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.VoiceID != nil && !p.has(*req.VoiceID) {
		return nil, tts.InvalidRequest(p.id, fmt.Sprintf("unknown voice %q", *req.VoiceID), nil)
	}
	n := p.seq.Add(1)
	return &tts.SynthesisResult{AudioURI: fmt.Sprintf("https://example.com/%s-%d.%s", p.id, n, req.Format("mp3"))}, nil
}

func (p *Provider) Health(context.Context) tts.HealthStatus { return tts.HealthOK }

func (p *Provider) has(id string) bool {
	for _, v := range p.voices {
		if v.ID == id {
			return true
		}
	}
	return false
}
