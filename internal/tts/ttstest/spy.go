// Package ttstest provides an in-memory provider for tests.
package ttstest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

// Spy is a scriptable tts.Provider that counts every call.
type Spy struct {
	Name   string
	Label  string
	Voices []tts.Voice

	// VoicesErr and SynthErr are returned from the matching calls when set.
	VoicesErr error
	SynthErr  error

	// HealthFunc overrides Health. It may panic to simulate a crashing provider.
	HealthFunc func(ctx context.Context) tts.HealthStatus

	// AudioURI overrides the generated result URI.
	AudioURI string

	voicesCalls atomic.Int64
	synthCalls  atomic.Int64
	healthCalls atomic.Int64

	mu       sync.Mutex
	requests []tts.SynthesisRequest
}

// New returns a healthy spy with a one-voice catalog.
func New(id string) *Spy {
	return &Spy{
		Name: id,
		Voices: []tts.Voice{
			{ID: id + "-voice", DisplayName: id + " voice", LanguageTag: "en-US", Gender: tts.GenderPtr("female")},
		},
	}
}

func (s *Spy) ID() string { return s.Name }

func (s *Spy) DisplayName() string { return s.Label }

func (s *Spy) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	s.voicesCalls.Add(1)
	if s.VoicesErr != nil {
		return nil, s.VoicesErr
	}
	out := make([]tts.Voice, len(s.Voices))
	copy(out, s.Voices)
	return out, nil
}

func (s *Spy) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	n := s.synthCalls.Add(1)
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.SynthErr != nil {
		return nil, s.SynthErr
	}
	uri := s.AudioURI
	if uri == "" {
		uri = fmt.Sprintf("https://example.com/%s-%d.mp3", s.Name, n)
	}
	return &tts.SynthesisResult{AudioURI: uri}, nil
}

func (s *Spy) Health(ctx context.Context) tts.HealthStatus {
	s.healthCalls.Add(1)
	if s.HealthFunc != nil {
		return s.HealthFunc(ctx)
	}
	return tts.HealthOK
}

// Calls returns the total number of contract calls, excluding ID.
func (s *Spy) Calls() int64 {
	return s.voicesCalls.Load() + s.synthCalls.Load() + s.healthCalls.Load()
}

func (s *Spy) SynthCalls() int64  { return s.synthCalls.Load() }
func (s *Spy) VoicesCalls() int64 { return s.voicesCalls.Load() }
func (s *Spy) HealthCalls() int64 { return s.healthCalls.Load() }

// LastRequest returns the most recent synthesis request.
func (s *Spy) LastRequest() (tts.SynthesisRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return tts.SynthesisRequest{}, false
	}
	return s.requests[len(s.requests)-1], true
}
