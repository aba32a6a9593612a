package aisdk

// CallOptions is one vendor-neutral model call. Nil sampling fields are not sent.
type CallOptions struct {
	Prompt []Message

	MaxOutputTokens  *int64
	Temperature      *float64
	TopP             *float64
	TopK             *int64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	StopSequences    []string
	Seed             *int64

	Tools          []ToolDefinition
	ToolChoice     *ToolChoice
	ResponseFormat *ResponseFormat

	// Headers are extra HTTP headers for this call only.
	Headers map[string]string
	// ProviderOptions carries provider-specific settings keyed by provider name.
	ProviderOptions map[string]any
}

// Float returns a pointer to v, for optional CallOptions fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional CallOptions fields.
func Int(v int64) *int64 { return &v }
