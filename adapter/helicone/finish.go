package helicone

import aisdk "github.com/Helicone/ai-sdk"

// MapFinishReason maps a gateway finish_reason to the unified vocabulary.
// Unknown and empty values map to aisdk.FinishReasonOther.
func MapFinishReason(raw string) aisdk.FinishReason {
	switch raw {
	case "stop", "eos":
		return aisdk.FinishReasonStop
	case "length", "max_tokens":
		return aisdk.FinishReasonLength
	case "content_filter":
		return aisdk.FinishReasonContentFilter
	case "tool_calls", "function_call":
		return aisdk.FinishReasonToolCalls
	default:
		return aisdk.FinishReasonOther
	}
}
