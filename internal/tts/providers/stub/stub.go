// Package stub registers vendors that are known but not yet integrated. They
// answer health and voice listing so clients can discover them, and refuse
// synthesis with a not-implemented error.
package stub

import (
	"context"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

type Provider struct {
	id    string
	label string
}

func New(id, label string) *Provider {
	return &Provider{id: id, label: label}
}

// All returns the placeholder vendors.
func All() []*Provider {
	return []*Provider{
		New("aitalk", "AITalk"),
		New("voicetext", "HOYA VoiceText"),
		New("coefont", "CoeFont"),
		New("murf", "Murf AI"),
	}
}

func (p *Provider) ID() string          { return p.id }
func (p *Provider) DisplayName() string { return p.label }

func (p *Provider) ListVoices(context.Context) ([]tts.Voice, error) {
	return []tts.Voice{}, nil
}

func (p *Provider) Synthesize(context.Context, tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	return nil, tts.NotImplemented(p.id, p.label+" synthesis is not implemented")
}

func (p *Provider) Health(context.Context) tts.HealthStatus { return tts.HealthOK }
