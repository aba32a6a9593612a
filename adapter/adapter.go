package adapter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	aisdk "github.com/Helicone/ai-sdk"
	"github.com/Helicone/ai-sdk/internal/cast"
)

// LanguageModel is the vendor-neutral model contract implemented by provider adapters.
type LanguageModel interface {
	// Provider returns the provider name (e.g. "helicone").
	Provider() string
	// ModelID returns the model identifier sent upstream.
	ModelID() string
	// Generate performs one non-streaming call.
	Generate(ctx context.Context, call *aisdk.CallOptions) (*aisdk.GenerateResult, error)
	// Stream opens a streaming call. Errors before the first event are returned directly;
	// later failures are yielded by the sequence, which ends after aisdk.Finish or an error.
	Stream(ctx context.Context, call *aisdk.CallOptions) (iter.Seq2[aisdk.StreamPart, error], error)
}

// Sentinel errors for adapter implementations. Callers should use errors.Is.
var (
	ErrUnsupportedRole        = errors.New("adapter: unsupported message role for this provider")
	ErrUnsupportedContentType = errors.New("adapter: unsupported content part type for this provider")
	ErrInvalidResponse        = errors.New("adapter: response body is malformed")
	ErrEmptyResponse          = errors.New("adapter: response contains no choices")
	ErrNilCall                = errors.New("adapter: call options must not be nil")
	ErrMalformedArgs          = errors.New("adapter: tool call arguments JSON is malformed")
)

// UnsupportedContentError names the role or part type a provider cannot translate.
// It wraps ErrUnsupportedRole or ErrUnsupportedContentType.
type UnsupportedContentError struct {
	Role     aisdk.Role
	PartType string
	Err      error
}

// Error implements error.
func (e *UnsupportedContentError) Error() string {
	if e.PartType == "" {
		return fmt.Sprintf("adapter: unsupported role %q", e.Role)
	}
	return fmt.Sprintf("adapter: unsupported part type %q in %s message", e.PartType, e.Role)
}

// Unwrap returns the wrapped sentinel for errors.Is.
func (e *UnsupportedContentError) Unwrap() error { return e.Err }

var _ error = (*UnsupportedContentError)(nil)

// UnsupportedRole returns an UnsupportedContentError for role.
func UnsupportedRole(role aisdk.Role) error {
	return &UnsupportedContentError{Role: role, Err: ErrUnsupportedRole}
}

// UnsupportedPart returns an UnsupportedContentError for a part inside a role's message.
func UnsupportedPart(role aisdk.Role, partType string) error {
	return &UnsupportedContentError{Role: role, PartType: partType, Err: ErrUnsupportedContentType}
}

// TextFromParts extracts concatenated text from parts, ignoring non-text parts.
func TextFromParts(parts []aisdk.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p.(aisdk.TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ModelParams holds well-known sampling keys extracted from a model config map.
// Use ExtractModelConfig to populate from map[string]any.
type ModelParams struct {
	Temperature      *float64
	MaxTokens        *int64
	TopP             *float64
	TopK             *int64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Seed             *int64
	Stop             []string
}

// ExtractModelConfig reads well-known keys from cfg and returns typed ModelParams.
// Keys: temperature, max_tokens, top_p, top_k, frequency_penalty, presence_penalty, seed, stop.
// Values of the wrong type are ignored.
func ExtractModelConfig(cfg map[string]any) ModelParams {
	var out ModelParams
	if cfg == nil {
		return out
	}
	out.Temperature = floatKey(cfg, "temperature")
	out.TopP = floatKey(cfg, "top_p")
	out.FrequencyPenalty = floatKey(cfg, "frequency_penalty")
	out.PresencePenalty = floatKey(cfg, "presence_penalty")
	out.MaxTokens = intKey(cfg, "max_tokens")
	out.TopK = intKey(cfg, "top_k")
	out.Seed = intKey(cfg, "seed")
	if v, ok := cfg["stop"]; ok {
		if ss, ok := cast.ToStringSlice(v); ok {
			out.Stop = ss
		}
	}
	return out
}

func floatKey(cfg map[string]any, key string) *float64 {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	f, ok := cast.ToFloat64(v)
	if !ok {
		return nil
	}
	return &f
}

func intKey(cfg map[string]any, key string) *int64 {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	i, ok := cast.ToInt64(v)
	if !ok {
		return nil
	}
	return &i
}

// IsZero reports whether no parameter is set.
func (p ModelParams) IsZero() bool {
	return p.Temperature == nil && p.MaxTokens == nil && p.TopP == nil && p.TopK == nil &&
		p.FrequencyPenalty == nil && p.PresencePenalty == nil && p.Seed == nil && len(p.Stop) == 0
}

// ApplyModelParams returns a shallow copy of call with every sampling field the call
// left unset filled from p. The call's own values always win.
func ApplyModelParams(call aisdk.CallOptions, p ModelParams) aisdk.CallOptions {
	if call.Temperature == nil {
		call.Temperature = p.Temperature
	}
	if call.MaxOutputTokens == nil {
		call.MaxOutputTokens = p.MaxTokens
	}
	if call.TopP == nil {
		call.TopP = p.TopP
	}
	if call.TopK == nil {
		call.TopK = p.TopK
	}
	if call.FrequencyPenalty == nil {
		call.FrequencyPenalty = p.FrequencyPenalty
	}
	if call.PresencePenalty == nil {
		call.PresencePenalty = p.PresencePenalty
	}
	if call.Seed == nil {
		call.Seed = p.Seed
	}
	if len(call.StopSequences) == 0 {
		call.StopSequences = p.Stop
	}
	return call
}
