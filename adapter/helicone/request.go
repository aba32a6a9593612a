package helicone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/tidwall/sjson"

	aisdk "github.com/Helicone/ai-sdk"
	"github.com/Helicone/ai-sdk/adapter"
)

const chatCompletionsPath = "/v1/chat/completions"

type chatRequest struct {
	Model            string          `json:"model"`
	Messages         []wireMessage   `json:"messages,omitempty"`
	Stream           bool            `json:"stream"`
	StreamOptions    *streamOptions  `json:"stream_options,omitempty"`
	MaxTokens        *int64          `json:"max_tokens,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	TopK             *int64          `json:"top_k,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	Seed             *int64          `json:"seed,omitempty"`
	Tools            []wireTool      `json:"tools,omitempty"`
	ToolChoice       any             `json:"tool_choice,omitempty"`
	ResponseFormat   *responseFormat `json:"response_format,omitempty"`
	PromptID         string          `json:"prompt_id,omitempty"`
	Inputs           map[string]any  `json:"inputs,omitempty"`
	Environment      string          `json:"environment,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
}

type namedToolChoice struct {
	Type     string            `json:"type"`
	Function namedToolFunction `json:"function"`
}

type namedToolFunction struct {
	Name string `json:"name"`
}

// reservedBodyKeys are never overridden by ExtraBody.
var reservedBodyKeys = []string{"model", "stream", "messages"}

// newRequest builds the HTTP request for one call.
func (m *ChatModel) newRequest(ctx context.Context, call *aisdk.CallOptions, stream bool) (*http.Request, error) {
	if call == nil {
		return nil, adapter.ErrNilCall
	}
	opts, err := parseCallOptions(call.ProviderOptions[ProviderName])
	if err != nil {
		return nil, err
	}
	meta := m.cfg.metadata.merge(opts.Metadata)
	effective := *call
	if !m.cfg.modelParams.IsZero() {
		effective = adapter.ApplyModelParams(effective, m.cfg.modelParams)
	}
	body, err := m.buildBody(&effective, opts, meta, stream)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("helicone: build request: %w", err)
	}
	req.Header = m.buildHeaders(call.Headers, meta, stream)
	return req, nil
}

// buildBody encodes the chat request and merges ExtraBody into it.
func (m *ChatModel) buildBody(call *aisdk.CallOptions, opts CallOptions, meta Metadata, stream bool) ([]byte, error) {
	req, err := m.buildChatRequest(call, opts, meta, stream)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("helicone: encode request: %w", err)
	}
	return mergeExtraBody(body, opts.ExtraBody)
}

func (m *ChatModel) buildChatRequest(call *aisdk.CallOptions, opts CallOptions, meta Metadata, stream bool) (*chatRequest, error) {
	req := &chatRequest{
		Model:            modelField(m.modelID, meta.Fallbacks),
		Stream:           stream,
		MaxTokens:        call.MaxOutputTokens,
		Temperature:      call.Temperature,
		TopP:             call.TopP,
		TopK:             call.TopK,
		FrequencyPenalty: call.FrequencyPenalty,
		PresencePenalty:  call.PresencePenalty,
		Stop:             call.StopSequences,
		Seed:             call.Seed,
		Tools:            convertTools(call.Tools, m.cfg.log()),
	}
	if stream {
		req.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	if call.ToolChoice != nil {
		tc, err := toolChoice(*call.ToolChoice)
		if err != nil {
			return nil, err
		}
		req.ToolChoice = tc
	}
	if call.ResponseFormat != nil {
		req.ResponseFormat = convertResponseFormat(*call.ResponseFormat)
	}
	if opts.PromptID != "" {
		req.PromptID = opts.PromptID
		req.Inputs = opts.Inputs
		req.Environment = opts.Environment
		return req, nil
	}
	if len(call.Prompt) > 0 {
		msgs, err := convertMessages(call.Prompt)
		if err != nil {
			return nil, err
		}
		req.Messages = msgs
	}
	return req, nil
}

// modelField joins the primary model and its fallbacks with commas.
func modelField(modelID string, fallbacks []string) string {
	if len(fallbacks) == 0 {
		return modelID
	}
	ids := make([]string, 0, len(fallbacks)+1)
	ids = append(ids, modelID)
	for _, fb := range fallbacks {
		if fb != "" && fb != modelID {
			ids = append(ids, fb)
		}
	}
	return strings.Join(ids, ",")
}

func toolChoice(tc aisdk.ToolChoice) (any, error) {
	switch tc.Type {
	case aisdk.ToolChoiceAuto, aisdk.ToolChoiceRequired, aisdk.ToolChoiceNone:
		return string(tc.Type), nil
	case aisdk.ToolChoiceTool:
		if tc.ToolName == "" {
			return nil, fmt.Errorf("%w: tool choice %q needs a tool name", ErrUnsupportedToolChoice, tc.Type)
		}
		return namedToolChoice{Type: "function", Function: namedToolFunction{Name: tc.ToolName}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedToolChoice, tc.Type)
	}
}

func convertResponseFormat(rf aisdk.ResponseFormat) *responseFormat {
	if rf.Type != "json" {
		return nil
	}
	if rf.Schema == nil {
		return &responseFormat{Type: "json_object"}
	}
	name := rf.Name
	if name == "" {
		name = "response"
	}
	return &responseFormat{
		Type:       "json_schema",
		JSONSchema: &jsonSchema{Name: name, Description: rf.Description, Schema: rf.Schema},
	}
}

// mergeExtraBody sets each extra key at the top level of body, in sorted key order.
func mergeExtraBody(body []byte, extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return body, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if k != "" && !slices.Contains(reservedBodyKeys, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	var err error
	for _, k := range keys {
		body, err = sjson.SetBytes(body, escapePathKey(k), extra[k])
		if err != nil {
			return nil, fmt.Errorf("helicone: merge extra body key %q: %w", k, err)
		}
	}
	return body, nil
}

var pathKeyEscaper = strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, ":", `\:`)

// escapePathKey makes k a literal single-segment sjson path.
func escapePathKey(k string) string { return pathKeyEscaper.Replace(k) }

func (m *ChatModel) buildHeaders(perCall map[string]string, meta Metadata, stream bool) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	if stream {
		h.Set("Accept", "text/event-stream")
	}
	if m.cfg.apiKey != "" {
		h.Set("Authorization", "Bearer "+m.cfg.apiKey)
	}
	for k, v := range m.cfg.headers {
		setHeader(h, k, v)
	}
	meta.applyHeaders(h)
	for k, v := range perCall {
		setHeader(h, k, v)
	}
	return h
}
