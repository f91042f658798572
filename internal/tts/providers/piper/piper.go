// Package piper runs a local Piper binary. The loaded model is the only voice.
package piper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

const ID = "piper"

type Config struct {
	BinPath   string // default: "piper"
	ModelPath string // path to the .onnx voice model
	// Language of the model; derived from names like en_US-amy-medium when empty.
	Language string
}

type Provider struct {
	cfg   Config
	store storage.AudioStore
}

func New(cfg Config, store storage.AudioStore) *Provider {
	if cfg.BinPath == "" {
		cfg.BinPath = "piper"
	}
	if cfg.Language == "" {
		cfg.Language = languageOf(cfg.ModelPath)
	}
	return &Provider{cfg: cfg, store: store}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) DisplayName() string { return "Piper (local)" }

func (p *Provider) ListVoices(context.Context) ([]tts.Voice, error) {
	return []tts.Voice{{
		ID:          p.voiceID(),
		DisplayName: p.voiceID(),
		LanguageTag: p.cfg.Language,
		Meta:        map[string]any{"model": p.cfg.ModelPath},
	}}, nil
}

// Synthesize pipes text into Piper via stdin and stores the raw 16-bit mono
// PCM it writes to stdout. Rate maps to --length_scale.
func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	if p.cfg.ModelPath == "" {
		return nil, tts.Unavailable(ID, "piper model path is not configured", nil)
	}
	if f := req.Format("pcm"); f != "pcm" {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("unsupported format %q", f), nil)
	}
	if v := req.Voice(p.voiceID()); v != p.voiceID() {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("unknown voice %q", v), nil)
	}

	args := []string{"--model", p.cfg.ModelPath, "--output-raw"}
	if rate, ok := req.Rate(); ok {
		if rate <= 0 {
			return nil, tts.InvalidRequest(ID, "rate must be positive", nil)
		}
		args = append(args, "--length_scale", strconv.FormatFloat(1/rate, 'f', 3, 64))
	}

	cmd := exec.CommandContext(ctx, p.cfg.BinPath, args...)
	cmd.Stdin = strings.NewReader(req.Text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, tts.Unavailable(ID, "piper interrupted", ctxErr)
		}
		return nil, tts.Unavailable(ID, fmt.Sprintf("piper failed (stderr: %s)", strings.TrimSpace(stderr.String())), err)
	}
	if stdout.Len() == 0 {
		return nil, tts.Unavailable(ID, "piper produced no audio", nil)
	}

	uri, err := p.store.Put(ctx, storage.ObjectKey(ID, "pcm"), storage.ContentType("pcm"), stdout.Bytes())
	if err != nil {
		return nil, tts.Unavailable(ID, "store audio", err)
	}
	return &tts.SynthesisResult{AudioURI: uri}, nil
}

// Health checks the binary is on PATH and the model file exists.
func (p *Provider) Health(context.Context) tts.HealthStatus {
	if _, err := exec.LookPath(p.cfg.BinPath); err != nil {
		return tts.HealthDegraded
	}
	if _, err := os.Stat(p.cfg.ModelPath); err != nil || p.cfg.ModelPath == "" {
		return tts.HealthDegraded
	}
	return tts.HealthOK
}

func (p *Provider) voiceID() string {
	base := filepath.Base(p.cfg.ModelPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// languageOf turns "en_US-amy-medium.onnx" into "en-US".
func languageOf(model string) string {
	base := filepath.Base(model)
	lang, _, ok := strings.Cut(base, "-")
	if !ok || !strings.Contains(lang, "_") {
		return "en-US"
	}
	return strings.ReplaceAll(lang, "_", "-")
}
