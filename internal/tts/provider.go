package tts

import "context"

// Provider is the capability set every TTS backend implements. The dispatcher
// only ever holds this interface.
type Provider interface {
	// ID is the registry key. It is stable and never empty.
	ID() string

	// ListVoices returns the provider's voice catalog. The list is fully
	// materialized and may be empty. Entries are well-formed or omitted.
	ListVoices(ctx context.Context) ([]Voice, error)

	// Synthesize renders req and returns the location of the audio. Errors are
	// *Error values of kind InvalidRequest, ProviderUnavailable or NotImplemented.
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)

	// Health never fails; internal faults are reported as HealthDegraded.
	Health(ctx context.Context) HealthStatus
}

// Describer is implemented by providers that have a human-readable label.
type Describer interface {
	DisplayName() string
}

// DisplayName returns the provider label, falling back to its id.
func DisplayName(p Provider) string {
	if d, ok := p.(Describer); ok && d.DisplayName() != "" {
		return d.DisplayName()
	}
	return p.ID()
}
