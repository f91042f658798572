package tts

import "strings"

// Gender is the speaker gender reported by a provider.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderNeutral Gender = "neutral"
	GenderUnknown Gender = "unknown"
)

// ParseGender normalizes vendor gender strings ("Female", "FEMALE",
// "SSML_VOICE_GENDER_UNSPECIFIED", ...) onto the Gender enum.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	case "neutral":
		return GenderNeutral
	default:
		return GenderUnknown
	}
}

// GenderPtr returns a pointer to the parsed gender, for Voice literals.
func GenderPtr(s string) *Gender {
	g := ParseGender(s)
	return &g
}

// Voice describes a voice offered by a provider.
type Voice struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	LanguageTag string         `json:"languageTag"` // BCP-47
	Gender      *Gender        `json:"gender,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// WellFormed reports whether the voice carries the fields every client relies on.
func (v Voice) WellFormed() bool {
	return v.ID != "" && v.LanguageTag != ""
}

// FilterWellFormed drops malformed entries. The returned slice is never nil.
func FilterWellFormed(voices []Voice) []Voice {
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if !v.WellFormed() {
			continue
		}
		if v.DisplayName == "" {
			v.DisplayName = v.ID
		}
		out = append(out, v)
	}
	return out
}

// SynthesisOptions holds optional synthesis tuning. A nil field means
// "use the provider default".
type SynthesisOptions struct {
	Rate          *float64       `json:"rate,omitempty"`
	Pitch         *float64       `json:"pitch,omitempty"`
	Emotion       *string        `json:"emotion,omitempty"`
	Format        *string        `json:"format,omitempty"`
	ProviderExtra map[string]any `json:"providerExtra,omitempty"`
}

// SynthesisRequest is the provider-facing synthesis input.
type SynthesisRequest struct {
	Text     string            `json:"text"`
	VoiceID  *string           `json:"voiceId,omitempty"`
	Language *string           `json:"language,omitempty"`
	Options  *SynthesisOptions `json:"options,omitempty"`
}

// Voice returns the requested voice id or fallback when unset.
func (r SynthesisRequest) Voice(fallback string) string {
	if r.VoiceID != nil && *r.VoiceID != "" {
		return *r.VoiceID
	}
	return fallback
}

// Lang returns the requested language or fallback when unset.
func (r SynthesisRequest) Lang(fallback string) string {
	if r.Language != nil && *r.Language != "" {
		return *r.Language
	}
	return fallback
}

// Format returns the requested output format or fallback when unset.
func (r SynthesisRequest) Format(fallback string) string {
	if r.Options != nil && r.Options.Format != nil && *r.Options.Format != "" {
		return *r.Options.Format
	}
	return fallback
}

// Rate returns the requested speaking rate multiplier, if any.
func (r SynthesisRequest) Rate() (float64, bool) {
	if r.Options == nil || r.Options.Rate == nil {
		return 0, false
	}
	return *r.Options.Rate, true
}

// Pitch returns the requested pitch shift, if any.
func (r SynthesisRequest) Pitch() (float64, bool) {
	if r.Options == nil || r.Options.Pitch == nil {
		return 0, false
	}
	return *r.Options.Pitch, true
}

func (r SynthesisRequest) Emotion() (string, bool) {
	if r.Options == nil || r.Options.Emotion == nil || *r.Options.Emotion == "" {
		return "", false
	}
	return *r.Options.Emotion, true
}

// Extra returns a provider-specific option and whether it was supplied.
func (r SynthesisRequest) Extra(key string) (any, bool) {
	if r.Options == nil || r.Options.ProviderExtra == nil {
		return nil, false
	}
	v, ok := r.Options.ProviderExtra[key]
	return v, ok
}

// SynthesisResult points at the generated audio.
type SynthesisResult struct {
	AudioURI string `json:"audioUrl"`
}

// HealthStatus is the coarse provider health.
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
)
