// Package dispatch routes validated requests to registered providers and fans
// health checks out across all of them.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/ttsgateway/internal/metrics"
	"github.com/nikhilbhutani/ttsgateway/internal/schema"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/usage"
)

const (
	opVoices     = "list_voices"
	opSynthesize = "synthesize"
	opHealth     = "health"
)

// Dispatcher is stateless per call. The registry and the providers it holds
// are the only shared state it touches.
type Dispatcher struct {
	registry  *tts.Registry
	validator *schema.Validator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	usage     usage.Recorder

	// statusLimit caps concurrent health calls; <= 0 means one goroutine per provider.
	statusLimit int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithUsageRecorder(r usage.Recorder) Option {
	return func(d *Dispatcher) { d.usage = r }
}

func WithStatusConcurrency(n int) Option {
	return func(d *Dispatcher) { d.statusLimit = n }
}

func New(registry *tts.Registry, validator *schema.Validator, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		validator: validator,
		logger:    slog.Default(),
		usage:     usage.Nop{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// voicesRequest is the /v1/voices payload.
type voicesRequest struct {
	Provider string `json:"provider"`
}

// ttsRequest is the canonical /v1/tts payload.
type ttsRequest struct {
	Provider string                `json:"provider"`
	Text     string                `json:"text"`
	Language *string               `json:"language"`
	VoiceID  *string               `json:"voiceId"`
	Options  *tts.SynthesisOptions `json:"options"`
}

// Providers returns the registered provider ids in registration order.
func (d *Dispatcher) Providers() []string {
	return d.registry.List()
}

// ProviderInfo pairs a provider id with its display label.
type ProviderInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Describe returns id and label for every registered provider.
func (d *Dispatcher) Describe() []ProviderInfo {
	providers := d.registry.Snapshot()
	out := make([]ProviderInfo, len(providers))
	for i, p := range providers {
		out[i] = ProviderInfo{ID: p.ID(), DisplayName: tts.DisplayName(p)}
	}
	return out
}

// Voices validates payload, resolves the provider and returns its catalog.
func (d *Dispatcher) Voices(ctx context.Context, payload []byte) ([]tts.Voice, error) {
	v, err := d.validator.Validate(schema.RouteVoices, payload)
	if err != nil {
		return nil, err
	}
	var req voicesRequest
	if err := v.Decode(&req); err != nil {
		return nil, tts.SchemaViolation("", err.Error())
	}

	p, ok := d.registry.Get(req.Provider)
	if !ok {
		return nil, tts.UnknownProvider(req.Provider)
	}

	start := time.Now()
	voices, err := p.ListVoices(ctx)
	if err != nil {
		err = tts.Classify(req.Provider, err)
		d.observe(req.Provider, opVoices, err, start)
		d.logger.WarnContext(ctx, "list voices failed", "provider", req.Provider, "error", err)
		return nil, err
	}
	d.observe(req.Provider, opVoices, nil, start)

	out := tts.FilterWellFormed(voices)
	if dropped := len(voices) - len(out); dropped > 0 {
		d.logger.DebugContext(ctx, "dropped malformed voices", "provider", req.Provider, "count", dropped)
	}
	return out, nil
}

// Synthesize validates payload, resolves the provider and renders the text.
// Optional fields absent from the payload reach the provider as nil.
func (d *Dispatcher) Synthesize(ctx context.Context, payload []byte) (*tts.SynthesisResult, error) {
	v, err := d.validator.Validate(schema.RouteTTS, payload)
	if err != nil {
		return nil, err
	}
	var req ttsRequest
	if err := v.Decode(&req); err != nil {
		return nil, tts.SchemaViolation("", err.Error())
	}

	p, ok := d.registry.Get(req.Provider)
	if !ok {
		return nil, tts.UnknownProvider(req.Provider)
	}

	sreq := tts.SynthesisRequest{
		Text:     req.Text,
		VoiceID:  req.VoiceID,
		Language: req.Language,
		Options:  req.Options,
	}

	start := time.Now()
	res, err := p.Synthesize(ctx, sreq)
	if err == nil {
		err = d.checkResult(req.Provider, res)
	}
	if err != nil {
		err = tts.Classify(req.Provider, err)
	}
	d.observe(req.Provider, opSynthesize, err, start)
	d.record(ctx, req.Provider, sreq, err, start)

	if err != nil {
		d.logger.WarnContext(ctx, "synthesis failed", "provider", req.Provider, "kind", tts.KindOf(err), "error", err)
		return nil, err
	}
	return res, nil
}

// Status calls Health on every registered provider concurrently and returns
// once all of them have answered. A provider that panics is reported degraded;
// the fan-out itself never fails.
func (d *Dispatcher) Status(ctx context.Context) map[string]tts.HealthStatus {
	start := time.Now()
	providers := d.registry.Snapshot()

	var (
		mu     sync.Mutex
		result = make(map[string]tts.HealthStatus, len(providers))
	)

	var g errgroup.Group
	if d.statusLimit > 0 {
		g.SetLimit(d.statusLimit)
	}
	for _, p := range providers {
		p := p
		g.Go(func() error {
			id := p.ID()
			status := d.health(ctx, p)

			mu.Lock()
			result[id] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	d.metrics.ObserveStatus(time.Since(start))
	return result
}

func (d *Dispatcher) health(ctx context.Context, p tts.Provider) (status tts.HealthStatus) {
	id := p.ID()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "provider health check panicked", "provider", id, "panic", r)
			status = tts.HealthDegraded
		}
		if status != tts.HealthOK {
			status = tts.HealthDegraded
		}
		var herr error
		if status != tts.HealthOK {
			herr = tts.Unavailable(id, "degraded", nil)
		}
		d.observe(id, opHealth, herr, start)
		d.metrics.SetHealth(id, status == tts.HealthOK)
	}()
	return p.Health(ctx)
}

func (d *Dispatcher) observe(provider, op string, err error, start time.Time) {
	d.metrics.ObserveCall(provider, op, string(tts.KindOf(err)), time.Since(start))
}

func (d *Dispatcher) record(ctx context.Context, provider string, req tts.SynthesisRequest, err error, start time.Time) {
	rec := usage.Record{
		Provider:  provider,
		VoiceID:   req.Voice(""),
		Language:  req.Lang(""),
		Chars:     len([]rune(req.Text)),
		Outcome:   metrics.OutcomeSuccess,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: start,
	}
	if err != nil {
		rec.Outcome = metrics.OutcomeError
		rec.Kind = string(tts.KindOf(err))
	}
	if rerr := d.usage.Record(ctx, rec); rerr != nil {
		d.logger.WarnContext(ctx, "failed to record usage", "provider", provider, "error", rerr)
	}
}

// checkResult holds provider output to the /v1/tts response schema: an
// absolute URI.
func (d *Dispatcher) checkResult(provider string, res *tts.SynthesisResult) error {
	if res == nil {
		return tts.Unavailable(provider, "provider returned no result", nil)
	}
	body, err := json.Marshal(res)
	if err != nil {
		return tts.Unavailable(provider, "encode result", err)
	}
	if err := d.validator.ValidateResponse(schema.RouteTTS, body); err != nil {
		return tts.Unavailable(provider, fmt.Sprintf("provider returned malformed audio uri %q: %v", res.AudioURI, err), nil)
	}
	return nil
}
