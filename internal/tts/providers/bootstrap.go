// Package providers wires the concrete vendor adapters into a registry.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikhilbhutani/ttsgateway/internal/config"
	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/azure"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/demo"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/elevenlabs"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/google"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/openai"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/piper"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/polly"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/stub"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/voicevox"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/watson"
)

// Wrapper decorates a provider before registration, e.g. with a voice cache.
type Wrapper func(tts.Provider) tts.Provider

// invalidator is a provider holding a cached voice catalog keyed by its id.
type invalidator interface {
	Invalidate(ctx context.Context) error
}

// Build constructs every provider whose configuration is present. Demo
// providers come first so that a configured vendor with the same id replaces
// its stand-in on registration.
func Build(ctx context.Context, cfg config.ProvidersConfig, store storage.AudioStore) ([]tts.Provider, error) {
	var out []tts.Provider

	if cfg.Demo {
		for _, p := range demo.All() {
			out = append(out, p)
		}
	}
	if cfg.Stubs {
		for _, p := range stub.All() {
			out = append(out, p)
		}
	}

	if cfg.OpenAI.APIKey != "" {
		out = append(out, openai.New(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}, store))
	}
	if cfg.Polly.Enabled || cfg.Polly.AccessKeyID != "" {
		p, err := polly.New(ctx, polly.Config{
			Region:          cfg.Polly.Region,
			AccessKeyID:     cfg.Polly.AccessKeyID,
			SecretAccessKey: cfg.Polly.SecretAccessKey,
		}, store)
		if err != nil {
			return nil, fmt.Errorf("polly: %w", err)
		}
		out = append(out, p)
	}
	if cfg.Google.APIKey != "" {
		out = append(out, google.New(google.Config{
			APIKey:  cfg.Google.APIKey,
			BaseURL: cfg.Google.BaseURL,
			Timeout: cfg.HTTPTimeout,
		}, store))
	}
	if cfg.Azure.Key != "" {
		out = append(out, azure.New(azure.Config{
			Key:     cfg.Azure.Key,
			Region:  cfg.Azure.Region,
			Timeout: cfg.HTTPTimeout,
		}, store))
	}
	if cfg.Watson.APIKey != "" {
		out = append(out, watson.New(watson.Config{
			APIKey:  cfg.Watson.APIKey,
			URL:     cfg.Watson.URL,
			Timeout: cfg.HTTPTimeout,
		}, store))
	}
	if cfg.ElevenLabs.APIKey != "" {
		out = append(out, elevenlabs.New(elevenlabs.Config{
			APIKey:  cfg.ElevenLabs.APIKey,
			BaseURL: cfg.ElevenLabs.BaseURL,
			Model:   cfg.ElevenLabs.Model,
			Timeout: cfg.HTTPTimeout,
		}, store))
	}
	if cfg.Voicevox.URL != "" {
		out = append(out, voicevox.New(voicevox.Config{URL: cfg.Voicevox.URL, Timeout: cfg.HTTPTimeout}, store))
	}
	if cfg.Piper.Model != "" {
		out = append(out, piper.New(piper.Config{BinPath: cfg.Piper.BinPath, ModelPath: cfg.Piper.Model}, store))
	}
	return out, nil
}

// Register builds the configured providers and binds them in reg, applying
// wrap to each when non-nil. It returns the ids in registration order.
func Register(ctx context.Context, reg *tts.Registry, cfg config.ProvidersConfig, store storage.AudioStore, wrap Wrapper, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	built, err := Build(ctx, cfg, store)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(built))
	for _, p := range built {
		if wrap != nil {
			p = wrap(p)
		}
		prev, err := reg.Register(p)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", p.ID(), err)
		}
		if prev != nil {
			logger.Info("provider replaced", "provider", p.ID(), "previous", tts.DisplayName(prev), "current", tts.DisplayName(p))
			// The replaced provider's catalog may still be cached under the shared id.
			if inv, ok := p.(invalidator); ok {
				if err := inv.Invalidate(ctx); err != nil {
					logger.Warn("voice cache invalidation failed", "provider", p.ID(), "error", err)
				}
			}
		} else {
			ids = append(ids, p.ID())
		}
		logger.Debug("provider registered", "provider", p.ID())
	}
	return ids, nil
}
