package helicone

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aisdk "github.com/Helicone/ai-sdk"
)

// runFrames feeds frames through a fresh state machine and flushes it.
func runFrames(frames ...string) []aisdk.StreamPart {
	s := newStreamState(discardLogger(), seqIDs())
	var out []aisdk.StreamPart
	for _, f := range frames {
		out = append(out, s.process(f)...)
	}
	return append(out, s.flush()...)
}

func toolFrame(deltas ...string) string {
	return `{"choices":[{"delta":{"tool_calls":[` + strings.Join(deltas, ",") + `]}}]}`
}

func finishFrame(reason string) string {
	return `{"choices":[{"delta":{},"finish_reason":"` + reason + `"}]}`
}

func partTypes(parts []aisdk.StreamPart) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.PartType())
	}
	return out
}

func countFinish(parts []aisdk.StreamPart) int {
	n := 0
	for _, p := range parts {
		if _, ok := p.(aisdk.Finish); ok {
			n++
		}
	}
	return n
}

func TestStream_TextDeltasShareID(t *testing.T) {
	t.Parallel()
	got := runFrames(
		`{"choices":[{"delta":{"role":"assistant","content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":""}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		finishFrame("stop"),
		`{"choices":[],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
	)
	assert.Equal(t, []aisdk.StreamPart{
		aisdk.TextDelta{ID: "id-1", Delta: "Hel"},
		aisdk.TextDelta{ID: "id-1", Delta: "lo"},
		aisdk.Finish{Reason: aisdk.FinishReasonStop, Usage: aisdk.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}},
	}, got)
}

func TestStream_ReasoningAndTextHaveSeparateIDs(t *testing.T) {
	t.Parallel()
	got := runFrames(
		`{"choices":[{"delta":{"reasoning_content":"hmm"}}]}`,
		`{"choices":[{"delta":{"reasoning":" ok"}}]}`,
		`{"choices":[{"delta":{"content":"42"}}]}`,
	)
	assert.Equal(t, []aisdk.StreamPart{
		aisdk.ReasoningDelta{ID: "id-1", Delta: "hmm"},
		aisdk.ReasoningDelta{ID: "id-1", Delta: " ok"},
		aisdk.TextDelta{ID: "id-2", Delta: "42"},
		aisdk.Finish{Reason: aisdk.FinishReasonStop},
	}, got)
}

func TestStream_SingleFragmentToolCall(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"id":"c1","function":{"name":"get_weather","arguments":"{\"city\":\"Paris\"}"}}`),
		finishFrame("tool_calls"),
	)
	assert.Equal(t, []aisdk.StreamPart{
		aisdk.ToolInputStart{ID: "c1", ToolName: "get_weather"},
		aisdk.ToolInputDelta{ID: "c1", Delta: `{"city":"Paris"}`},
		aisdk.ToolInputEnd{ID: "c1"},
		aisdk.ToolCall{ToolCallID: "c1", ToolName: "get_weather", Input: map[string]any{"city": "Paris"}, RawInput: `{"city":"Paris"}`},
		aisdk.Finish{Reason: aisdk.FinishReasonToolCalls},
	}, got)
}

func TestStream_NoArgumentToolCall(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"id":"c1","function":{"name":"get_time"}}`),
		finishFrame("tool_calls"),
	)
	assert.Equal(t, []aisdk.StreamPart{
		aisdk.ToolInputStart{ID: "c1", ToolName: "get_time"},
		aisdk.ToolInputEnd{ID: "c1"},
		aisdk.ToolCall{ToolCallID: "c1", ToolName: "get_time", Input: map[string]any{}, RawInput: "{}"},
		aisdk.Finish{Reason: aisdk.FinishReasonToolCalls},
	}, got)
}

func TestStream_TwoInterleavedToolCalls(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(
			`{"index":0,"id":"a","type":"function","function":{"name":"f","arguments":""}}`,
			`{"index":1,"id":"b","type":"function","function":{"name":"g","arguments":""}}`,
		),
		toolFrame(`{"index":1,"function":{"arguments":"{\"y\":2}"}}`),
		toolFrame(`{"index":0,"function":{"arguments":"{\"x\":1}"}}`),
		finishFrame("tool_calls"),
	)
	assert.Equal(t, []aisdk.StreamPart{
		aisdk.ToolInputStart{ID: "a", ToolName: "f"},
		aisdk.ToolInputStart{ID: "b", ToolName: "g"},
		aisdk.ToolInputDelta{ID: "b", Delta: `{"y":2}`},
		aisdk.ToolInputEnd{ID: "b"},
		aisdk.ToolCall{ToolCallID: "b", ToolName: "g", Input: map[string]any{"y": float64(2)}, RawInput: `{"y":2}`},
		aisdk.ToolInputDelta{ID: "a", Delta: `{"x":1}`},
		aisdk.ToolInputEnd{ID: "a"},
		aisdk.ToolCall{ToolCallID: "a", ToolName: "f", Input: map[string]any{"x": float64(1)}, RawInput: `{"x":1}`},
		aisdk.Finish{Reason: aisdk.FinishReasonToolCalls},
	}, got)
}

func TestStream_FragmentedArguments(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"id":"c1","function":{"name":"search","arguments":""}}`),
		toolFrame(`{"index":0,"function":{"arguments":"{\"q\":"}}`),
		toolFrame(`{"index":0,"function":{"arguments":"\"go\"}"}}`),
	)
	assert.Equal(t, []string{
		"tool-input-start", "tool-input-delta", "tool-input-delta", "tool-input-end", "tool-call", "finish",
	}, partTypes(got))
	call, ok := got[4].(aisdk.ToolCall)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"q": "go"}, call.Input)
	assert.False(t, call.Invalid)
}

func TestStream_DeltasConcatenateToRawInput(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"function":{"arguments":"{\"a\":"}}`),
		toolFrame(`{"index":0,"id":"c1"}`),
		toolFrame(`{"index":0,"function":{"name":"f","arguments":"[1,"}}`),
		toolFrame(`{"index":0,"function":{"arguments":"2]}"}}`),
	)
	var joined strings.Builder
	var call aisdk.ToolCall
	for _, p := range got {
		switch x := p.(type) {
		case aisdk.ToolInputDelta:
			joined.WriteString(x.Delta)
		case aisdk.ToolCall:
			call = x
		}
	}
	assert.Equal(t, `{"a":[1,2]}`, call.RawInput)
	assert.Equal(t, call.RawInput, joined.String())
	assert.Equal(t, map[string]any{"a": []any{float64(1), float64(2)}}, call.Input)
}

func TestStream_BufferedArgumentsCatchUp(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"function":{"arguments":"{\"q\":"}}`),
		toolFrame(`{"index":0,"id":"c1","function":{"name":"search","arguments":"\"x\"}"}}`),
	)
	assert.Equal(t, []aisdk.StreamPart{
		aisdk.ToolInputStart{ID: "c1", ToolName: "search"},
		aisdk.ToolInputDelta{ID: "c1", Delta: `{"q":"x"}`},
		aisdk.ToolInputEnd{ID: "c1"},
		aisdk.ToolCall{ToolCallID: "c1", ToolName: "search", Input: map[string]any{"q": "x"}, RawInput: `{"q":"x"}`},
		aisdk.Finish{Reason: aisdk.FinishReasonStop},
	}, got)
}

func TestStream_NameBeforeID(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"function":{"name":"f","arguments":""}}`),
		toolFrame(`{"index":0,"id":"c1","function":{"arguments":"{}"}}`),
	)
	assert.Equal(t, []string{"tool-input-start", "tool-input-delta", "tool-input-end", "tool-call", "finish"}, partTypes(got))
	assert.Equal(t, aisdk.ToolInputStart{ID: "c1", ToolName: "f"}, got[0])
}

func TestStream_PlaceholderReplacedByFirstFragment(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"function":{"arguments":"{}"}}`),
		toolFrame(`{"index":0,"id":"c1","function":{"name":"f","arguments":"{\"a\":1}"}}`),
	)
	assert.Equal(t, []aisdk.StreamPart{
		aisdk.ToolInputStart{ID: "c1", ToolName: "f"},
		aisdk.ToolInputDelta{ID: "c1", Delta: `{"a":1}`},
		aisdk.ToolInputEnd{ID: "c1"},
		aisdk.ToolCall{ToolCallID: "c1", ToolName: "f", Input: map[string]any{"a": float64(1)}, RawInput: `{"a":1}`},
		aisdk.Finish{Reason: aisdk.FinishReasonStop},
	}, got)
}

func TestStream_FinalizeIsIdempotent(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"id":"c1","function":{"name":"f","arguments":"{\"a\":1}"}}`),
		toolFrame(`{"index":0,"function":{"arguments":"{\"b\":2}"}}`),
		toolFrame(`{"index":0,"id":"c9","function":{"name":"other"}}`),
		finishFrame("tool_calls"),
	)
	assert.Equal(t, []string{"tool-input-start", "tool-input-delta", "tool-input-end", "tool-call", "finish"}, partTypes(got))
}

func TestStream_FirstNonEmptyNameWins(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"id":"c1","function":{"name":"","arguments":""}}`),
		toolFrame(`{"index":0,"function":{"name":"first","arguments":""}}`),
		toolFrame(`{"index":0,"function":{"name":"second","arguments":"{}"}}`),
	)
	assert.Equal(t, aisdk.ToolInputStart{ID: "c1", ToolName: "first"}, got[0])
}

func TestStream_FinishReasonAppliedAfterFrameDeltas(t *testing.T) {
	t.Parallel()
	got := runFrames(
		`{"choices":[{"delta":{"content":"calling","tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{\"a\":"}}]},"finish_reason":"tool_calls"}]}`,
	)
	assert.Equal(t, []string{"text-delta", "tool-input-start", "tool-input-delta", "tool-input-end", "tool-call", "finish"}, partTypes(got))
	call := got[4].(aisdk.ToolCall)
	assert.True(t, call.Invalid)
	assert.Nil(t, call.Input)
	assert.Equal(t, `{"a":`, call.RawInput)
	assert.Equal(t, aisdk.FinishReasonToolCalls, got[5].(aisdk.Finish).Reason)
}

func TestStream_UnterminatedArgumentsAtEnd(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"id":"c1","function":{"name":"f","arguments":"{\"a\":tr"}}`),
	)
	assert.Equal(t, []aisdk.StreamPart{
		aisdk.ToolInputStart{ID: "c1", ToolName: "f"},
		aisdk.ToolInputDelta{ID: "c1", Delta: `{"a":tr`},
		aisdk.ToolInputEnd{ID: "c1"},
		aisdk.ToolCall{ToolCallID: "c1", ToolName: "f", RawInput: `{"a":tr`, Invalid: true},
		aisdk.Finish{Reason: aisdk.FinishReasonStop},
	}, got)
}

func TestStream_MissingIDIsGenerated(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"function":{"name":"f","arguments":"{\"a\":1}"}}`),
		finishFrame("tool_calls"),
	)
	assert.Equal(t, []aisdk.StreamPart{
		aisdk.ToolInputStart{ID: "id-1", ToolName: "f"},
		aisdk.ToolInputDelta{ID: "id-1", Delta: `{"a":1}`},
		aisdk.ToolInputEnd{ID: "id-1"},
		aisdk.ToolCall{ToolCallID: "id-1", ToolName: "f", Input: map[string]any{"a": float64(1)}, RawInput: `{"a":1}`},
		aisdk.Finish{Reason: aisdk.FinishReasonToolCalls},
	}, got)
}

func TestStream_MissingNameIsDropped(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"id":"c1","function":{"arguments":"{\"a\":1}"}}`),
	)
	assert.Equal(t, []aisdk.StreamPart{aisdk.Finish{Reason: aisdk.FinishReasonStop}}, got)
}

func TestStream_IndexDefaultsToArrayPosition(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(
			`{"id":"a","function":{"name":"f","arguments":""}}`,
			`{"id":"b","function":{"name":"g","arguments":""}}`,
		),
		toolFrame(`{"function":{"arguments":"{}"}}`, `{"function":{"arguments":"[]"}}`),
	)
	var calls []aisdk.ToolCall
	for _, p := range got {
		if c, ok := p.(aisdk.ToolCall); ok {
			calls = append(calls, c)
		}
	}
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].ToolCallID)
	assert.Equal(t, "{}", calls[0].RawInput)
	assert.Equal(t, "b", calls[1].ToolCallID)
	assert.Equal(t, "[]", calls[1].RawInput)
}

func TestStream_ThoughtSignature(t *testing.T) {
	t.Parallel()
	got := runFrames(
		toolFrame(`{"index":0,"id":"c1","function":{"name":"f","arguments":"{}"},"extra_content":{"google":{"thought_signature":"sig-1"}}}`),
	)
	call := got[3].(aisdk.ToolCall)
	assert.Equal(t, "sig-1", call.ThoughtSignature)
}

func TestStream_UsageOverwrite(t *testing.T) {
	t.Parallel()
	got := runFrames(
		`{"choices":[{"delta":{"content":"a"}}],"usage":{"prompt_tokens":1,"completion_tokens":1}}`,
		`{"choices":[],"usage":{"prompt_tokens":9,"completion_tokens":4,"prompt_tokens_details":{"cached_tokens":2}}}`,
	)
	require.Len(t, got, 2)
	assert.Equal(t, aisdk.Finish{
		Reason: aisdk.FinishReasonStop,
		Usage:  aisdk.Usage{InputTokens: 9, OutputTokens: 4, TotalTokens: 13, CachedInputTokens: 2},
	}, got[1])
}

func TestStream_MalformedFramesSkipped(t *testing.T) {
	t.Parallel()
	got := runFrames(
		`not json`,
		`[1,2,3]`,
		`{"choices":[{"delta":{"content":"ok"}}]}`,
		`{"choices":[{"delta":{"tool_calls":"wrong"}}]}`,
	)
	assert.Equal(t, []aisdk.StreamPart{
		aisdk.TextDelta{ID: "id-1", Delta: "ok"},
		aisdk.Finish{Reason: aisdk.FinishReasonStop},
	}, got)
}

func TestStream_ExactlyOneFinish(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		frames []string
	}{
		{"empty", nil},
		{"finish reason twice", []string{finishFrame("length"), finishFrame("stop")}},
		{"tools then finish", []string{
			toolFrame(`{"index":0,"id":"c1","function":{"name":"f","arguments":"{"}}`),
			finishFrame("tool_calls"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := runFrames(tt.frames...)
			assert.Equal(t, 1, countFinish(got))
			_, last := got[len(got)-1].(aisdk.Finish)
			assert.True(t, last)
		})
	}
}

func TestStream_LastFinishReasonWins(t *testing.T) {
	t.Parallel()
	got := runFrames(finishFrame("length"), finishFrame("safety_block"))
	assert.Equal(t, aisdk.Finish{Reason: aisdk.FinishReasonOther}, got[0])
}
