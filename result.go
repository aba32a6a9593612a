package aisdk

import "net/http"

// FinishReason is the vendor-neutral reason generation stopped.
type FinishReason string

// Finish reasons.
const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content-filter"
	FinishReasonToolCalls     FinishReason = "tool-calls"
	FinishReasonOther         FinishReason = "other"
)

// Usage holds token counts for one call.
type Usage struct {
	InputTokens       int64
	OutputTokens      int64
	TotalTokens       int64
	CachedInputTokens int64
	ReasoningTokens   int64
}

// ResponseInfo describes the HTTP response a result came from.
type ResponseInfo struct {
	ID      string
	ModelID string
	Headers http.Header
}

// GenerateResult is the outcome of a non-streaming call.
type GenerateResult struct {
	Content      []Part
	FinishReason FinishReason
	Usage        Usage
	Response     ResponseInfo
}
