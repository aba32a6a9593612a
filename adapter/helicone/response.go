package helicone

import (
	"encoding/json"
	"fmt"
	"strings"

	aisdk "github.com/Helicone/ai-sdk"
	"github.com/Helicone/ai-sdk/adapter"
)

type chatResponse struct {
	ID      string           `json:"id"`
	Model   string           `json:"model"`
	Choices []responseChoice `json:"choices"`
	Usage   *wireUsage       `json:"usage"`
}

type responseChoice struct {
	Message      responseMessage `json:"message"`
	FinishReason *string         `json:"finish_reason"`
}

type responseMessage struct {
	Role             string         `json:"role"`
	Content          *string        `json:"content"`
	ReasoningContent *string        `json:"reasoning_content"`
	Reasoning        *string        `json:"reasoning"`
	ToolCalls        []wireToolCall `json:"tool_calls"`
}

type wireUsage struct {
	PromptTokens            int64                    `json:"prompt_tokens"`
	CompletionTokens        int64                    `json:"completion_tokens"`
	TotalTokens             *int64                   `json:"total_tokens"`
	PromptTokensDetails     *promptTokensDetails     `json:"prompt_tokens_details"`
	CompletionTokensDetails *completionTokensDetails `json:"completion_tokens_details"`
}

type promptTokensDetails struct {
	CachedTokens int64 `json:"cached_tokens"`
}

type completionTokensDetails struct {
	ReasoningTokens int64 `json:"reasoning_tokens"`
}

func (u *wireUsage) toUsage() aisdk.Usage {
	if u == nil {
		return aisdk.Usage{}
	}
	out := aisdk.Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.PromptTokens + u.CompletionTokens,
	}
	if u.TotalTokens != nil {
		out.TotalTokens = *u.TotalTokens
	}
	if u.PromptTokensDetails != nil {
		out.CachedInputTokens = u.PromptTokensDetails.CachedTokens
	}
	if u.CompletionTokensDetails != nil {
		out.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return out
}

// reasoningText returns whichever reasoning field the upstream vendor populated.
func reasoningText(content, alt *string) string {
	if content != nil && *content != "" {
		return *content
	}
	if alt != nil {
		return *alt
	}
	return ""
}

// translateResponse converts a decoded completion into a GenerateResult. Only the first choice is read.
func translateResponse(body *chatResponse) (*aisdk.GenerateResult, error) {
	if len(body.Choices) == 0 {
		return nil, adapter.ErrEmptyResponse
	}
	choice := body.Choices[0]
	msg := choice.Message

	var content []aisdk.Part
	if r := reasoningText(msg.ReasoningContent, msg.Reasoning); r != "" {
		content = append(content, aisdk.ReasoningPart{Text: r})
	}
	if msg.Content != nil {
		content = append(content, aisdk.TextPart{Text: *msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		input, err := decodeArguments(tc.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("%w: tool call %q (%s): %w", adapter.ErrMalformedArgs, tc.ID, tc.Function.Name, err)
		}
		content = append(content, aisdk.ToolCallPart{
			ToolCallID:       tc.ID,
			ToolName:         tc.Function.Name,
			Input:            input,
			ThoughtSignature: tc.ExtraContent.thoughtSignature(),
		})
	}

	var reason string
	if choice.FinishReason != nil {
		reason = *choice.FinishReason
	}
	return &aisdk.GenerateResult{
		Content:      content,
		FinishReason: MapFinishReason(reason),
		Usage:        body.Usage.toUsage(),
		Response:     aisdk.ResponseInfo{ID: body.ID, ModelID: body.Model},
	}, nil
}

// decodeArguments parses a tool-call arguments string; empty means no arguments.
func decodeArguments(s string) (any, error) {
	if strings.TrimSpace(s) == "" {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}
