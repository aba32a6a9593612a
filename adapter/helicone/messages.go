package helicone

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	aisdk "github.com/Helicone/ai-sdk"
	"github.com/Helicone/ai-sdk/adapter"
)

const defaultImageMediaType = "image/jpeg"

// wireMessage is one entry of the gateway's flat chat-message array.
// Content is a string for system/assistant/tool messages and []any for user messages;
// a nil Content is omitted (assistant messages carrying only tool calls).
type wireMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageContent struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL string `json:"url"`
}

// wireToolCall is used both for outbound assistant history and inbound responses.
type wireToolCall struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Function     wireFunction  `json:"function"`
	ExtraContent *extraContent `json:"extra_content,omitempty"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// extraContent carries out-of-band vendor metadata attached to a single tool call.
type extraContent struct {
	Google *googleExtra `json:"google,omitempty"`
}

type googleExtra struct {
	ThoughtSignature string `json:"thought_signature,omitempty"`
}

func (e *extraContent) thoughtSignature() string {
	if e == nil || e.Google == nil {
		return ""
	}
	return e.Google.ThoughtSignature
}

// convertMessages maps the conversation to wire messages, preserving turn order.
// Tool turns fan out into one wire message per tool result.
func convertMessages(msgs []aisdk.Message) ([]wireMessage, error) {
	out := make([]wireMessage, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case aisdk.RoleSystem:
			text, err := systemText(msg.Content)
			if err != nil {
				return nil, err
			}
			out = append(out, wireMessage{Role: "system", Content: text})
		case aisdk.RoleUser:
			m, err := userMessage(msg.Content)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		case aisdk.RoleAssistant:
			m, err := assistantMessage(msg.Content)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		case aisdk.RoleTool:
			ms, err := toolMessages(msg.Content)
			if err != nil {
				return nil, err
			}
			out = append(out, ms...)
		default:
			return nil, adapter.UnsupportedRole(msg.Role)
		}
	}
	return out, nil
}

func systemText(parts []aisdk.Part) (string, error) {
	for _, p := range parts {
		if _, ok := p.(aisdk.TextPart); !ok {
			return "", adapter.UnsupportedPart(aisdk.RoleSystem, partType(p))
		}
	}
	return adapter.TextFromParts(parts), nil
}

func userMessage(parts []aisdk.Part) (wireMessage, error) {
	content := make([]any, 0, len(parts))
	for _, p := range parts {
		switch x := p.(type) {
		case aisdk.TextPart:
			content = append(content, textContent{Type: "text", Text: x.Text})
		case aisdk.FilePart:
			u, err := fileURL(x)
			if err != nil {
				return wireMessage{}, err
			}
			content = append(content, imageContent{Type: "image_url", ImageURL: imageURL{URL: u}})
		default:
			return wireMessage{}, adapter.UnsupportedPart(aisdk.RoleUser, partType(p))
		}
	}
	return wireMessage{Role: "user", Content: content}, nil
}

// fileURL returns the part's URL, or a data URL built from its inline payload.
func fileURL(p aisdk.FilePart) (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	data := p.Base64
	if data == "" && len(p.Data) > 0 {
		data = base64.StdEncoding.EncodeToString(p.Data)
	}
	if data == "" {
		return "", fmt.Errorf("%w: file part has neither URL nor data", adapter.UnsupportedPart(aisdk.RoleUser, p.PartType()))
	}
	mediaType := p.MediaType
	if mediaType == "" {
		mediaType = defaultImageMediaType
	}
	return "data:" + mediaType + ";base64," + data, nil
}

func assistantMessage(parts []aisdk.Part) (wireMessage, error) {
	var b strings.Builder
	var toolCalls []wireToolCall
	for _, p := range parts {
		switch x := p.(type) {
		case aisdk.TextPart:
			b.WriteString(x.Text)
		case aisdk.ReasoningPart:
			b.WriteString(x.Text)
		case aisdk.ToolCallPart:
			args, err := encodeArguments(x.Input)
			if err != nil {
				return wireMessage{}, fmt.Errorf("tool call %q: %w", x.ToolCallID, err)
			}
			tc := wireToolCall{
				ID:       x.ToolCallID,
				Type:     "function",
				Function: wireFunction{Name: x.ToolName, Arguments: args},
			}
			if x.ThoughtSignature != "" {
				tc.ExtraContent = &extraContent{Google: &googleExtra{ThoughtSignature: x.ThoughtSignature}}
			}
			toolCalls = append(toolCalls, tc)
		default:
			return wireMessage{}, adapter.UnsupportedPart(aisdk.RoleAssistant, partType(p))
		}
	}
	m := wireMessage{Role: "assistant", ToolCalls: toolCalls}
	if b.Len() > 0 {
		m.Content = b.String()
	}
	return m, nil
}

// encodeArguments renders tool-call input as the arguments JSON string.
// json.RawMessage and strings are taken as already-encoded JSON.
func encodeArguments(input any) (string, error) {
	switch v := input.(type) {
	case nil:
		return "{}", nil
	case json.RawMessage:
		return validArguments(string(v))
	case string:
		return validArguments(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("%w: %w", adapter.ErrMalformedArgs, err)
		}
		return string(b), nil
	}
}

func validArguments(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "{}", nil
	}
	if !json.Valid([]byte(s)) {
		return "", adapter.ErrMalformedArgs
	}
	return s, nil
}

func toolMessages(parts []aisdk.Part) ([]wireMessage, error) {
	out := make([]wireMessage, 0, len(parts))
	for _, p := range parts {
		tr, ok := p.(aisdk.ToolResultPart)
		if !ok {
			return nil, adapter.UnsupportedPart(aisdk.RoleTool, partType(p))
		}
		content, err := toolResultContent(tr.Output)
		if err != nil {
			return nil, fmt.Errorf("tool result %q: %w", tr.ToolCallID, err)
		}
		out = append(out, wireMessage{
			Role:       "tool",
			Content:    content,
			ToolCallID: tr.ToolCallID,
			Name:       tr.ToolName,
		})
	}
	return out, nil
}

func toolResultContent(output aisdk.ToolResultOutput) (string, error) {
	switch o := output.(type) {
	case nil:
		return "", nil
	case aisdk.TextOutput:
		return o.Value, nil
	case aisdk.ErrorTextOutput:
		return o.Value, nil
	case aisdk.JSONOutput:
		return marshalOutput(o.Value)
	case aisdk.ErrorJSONOutput:
		return marshalOutput(o.Value)
	case aisdk.ContentOutput:
		lines := make([]string, 0, len(o.Items))
		for _, item := range o.Items {
			switch item.Type {
			case aisdk.ContentItemText:
				lines = append(lines, item.Text)
			case aisdk.ContentItemMedia:
				lines = append(lines, "[media: "+item.MediaType+"]")
			default:
				return "", fmt.Errorf("%w: tool result content item %q", adapter.ErrUnsupportedContentType, item.Type)
			}
		}
		return strings.Join(lines, "\n"), nil
	default:
		return "", fmt.Errorf("%w: tool result output %T", adapter.ErrUnsupportedContentType, output)
	}
}

func marshalOutput(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(b), nil
}

func partType(p aisdk.Part) string {
	if p == nil {
		return "nil"
	}
	return p.PartType()
}
