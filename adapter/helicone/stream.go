package helicone

import (
	"encoding/json"
	"log/slog"
	"strings"

	aisdk "github.com/Helicone/ai-sdk"
)

const emptyArguments = "{}"

type chunkFrame struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *wireUsage    `json:"usage"`
}

type chunkChoice struct {
	Delta        *chunkDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type chunkDelta struct {
	Content          *string         `json:"content"`
	ReasoningContent *string         `json:"reasoning_content"`
	Reasoning        *string         `json:"reasoning"`
	ToolCalls        []toolCallDelta `json:"tool_calls"`
}

type toolCallDelta struct {
	Index        *int           `json:"index"`
	ID           *string        `json:"id"`
	Function     *functionDelta `json:"function"`
	ExtraContent *extraContent  `json:"extra_content"`
}

type functionDelta struct {
	Name      *string `json:"name"`
	Arguments *string `json:"arguments"`
}

// toolAccumulator collects the fragments of one streamed tool call.
type toolAccumulator struct {
	id               string
	name             string
	args             string
	thoughtSignature string
	announced        bool // tool-input-start emitted
	finalized        bool // tool-input-end and tool-call emitted, or dropped
}

// streamState turns decoded frames into stream parts. It is owned by a single
// iterator and is not safe for concurrent use.
type streamState struct {
	logger *slog.Logger
	newID  func() string

	textID      string
	reasoningID string
	usage       aisdk.Usage
	reason      aisdk.FinishReason

	tools map[int]*toolAccumulator
	order []int // indexes in first-seen order
}

func newStreamState(logger *slog.Logger, newID func() string) *streamState {
	return &streamState{
		logger: logger,
		newID:  newID,
		reason: aisdk.FinishReasonStop,
		tools:  make(map[int]*toolAccumulator),
	}
}

// process applies one event payload and returns the parts it produced.
// Malformed payloads are skipped.
func (s *streamState) process(data string) []aisdk.StreamPart {
	var frame chunkFrame
	if err := json.Unmarshal([]byte(data), &frame); err != nil {
		s.logger.Debug("helicone: skipping malformed stream frame", "err", err)
		return nil
	}
	if frame.Usage != nil {
		s.usage = frame.Usage.toUsage()
	}
	if len(frame.Choices) == 0 {
		return nil
	}
	choice := frame.Choices[0]

	var out []aisdk.StreamPart
	if d := choice.Delta; d != nil {
		if r := reasoningText(d.ReasoningContent, d.Reasoning); r != "" {
			if s.reasoningID == "" {
				s.reasoningID = s.newID()
			}
			out = append(out, aisdk.ReasoningDelta{ID: s.reasoningID, Delta: r})
		}
		if d.Content != nil && *d.Content != "" {
			if s.textID == "" {
				s.textID = s.newID()
			}
			out = append(out, aisdk.TextDelta{ID: s.textID, Delta: *d.Content})
		}
		for pos, tc := range d.ToolCalls {
			out = s.applyToolDelta(out, pos, tc)
		}
	}
	if choice.FinishReason != nil && *choice.FinishReason != "" {
		s.reason = MapFinishReason(*choice.FinishReason)
		out = s.finalizeOpen(out)
	}
	return out
}

func (s *streamState) applyToolDelta(out []aisdk.StreamPart, pos int, tc toolCallDelta) []aisdk.StreamPart {
	idx := pos
	if tc.Index != nil {
		idx = *tc.Index
	}
	acc, ok := s.tools[idx]
	if !ok {
		acc = &toolAccumulator{}
		s.tools[idx] = acc
		s.order = append(s.order, idx)
	}
	if acc.finalized {
		s.logger.Debug("helicone: dropping fragment for completed tool call", "index", idx, "id", acc.id)
		return out
	}

	hasID := tc.ID != nil && *tc.ID != ""
	hasName := tc.Function != nil && tc.Function.Name != nil && *tc.Function.Name != ""
	if hasID && acc.id == "" {
		acc.id = *tc.ID
	}
	if hasName && acc.name == "" {
		acc.name = *tc.Function.Name
	}
	if sig := tc.ExtraContent.thoughtSignature(); sig != "" && acc.thoughtSignature == "" {
		acc.thoughtSignature = sig
	}

	var args *string
	if tc.Function != nil {
		args = tc.Function.Arguments
	}
	fragment := args != nil && *args != ""
	if fragment {
		if acc.args == emptyArguments {
			acc.args = *args
		} else {
			acc.args += *args
		}
	}

	switch {
	case !acc.announced && acc.id != "" && acc.name != "":
		// Everything buffered so far, this fragment included, goes out as one catch-up delta.
		acc.announced = true
		out = append(out, aisdk.ToolInputStart{ID: acc.id, ToolName: acc.name})
		if acc.args != "" {
			out = append(out, aisdk.ToolInputDelta{ID: acc.id, Delta: acc.args})
		}
	case acc.announced && fragment:
		out = append(out, aisdk.ToolInputDelta{ID: acc.id, Delta: *args})
	}

	if !acc.announced {
		return out
	}
	if acc.args == "" {
		if args == nil && hasID && hasName {
			return s.finalize(out, acc)
		}
		return out
	}
	if json.Valid([]byte(acc.args)) {
		return s.finalize(out, acc)
	}
	return out
}

// finalizeOpen completes every accumulator not yet finalized, in first-seen order.
func (s *streamState) finalizeOpen(out []aisdk.StreamPart) []aisdk.StreamPart {
	for _, idx := range s.order {
		out = s.finalize(out, s.tools[idx])
	}
	return out
}

// finalize is the single completion path for a tool call. It runs at most once per accumulator.
func (s *streamState) finalize(out []aisdk.StreamPart, acc *toolAccumulator) []aisdk.StreamPart {
	if acc.finalized {
		return out
	}
	acc.finalized = true
	if acc.name == "" {
		s.logger.Warn("helicone: dropping streamed tool call without a name", "id", acc.id)
		return out
	}
	if acc.id == "" {
		acc.id = s.newID()
	}
	if !acc.announced {
		acc.announced = true
		out = append(out, aisdk.ToolInputStart{ID: acc.id, ToolName: acc.name})
		if acc.args != "" {
			out = append(out, aisdk.ToolInputDelta{ID: acc.id, Delta: acc.args})
		}
	}

	call := aisdk.ToolCall{
		ToolCallID:       acc.id,
		ToolName:         acc.name,
		RawInput:         acc.args,
		ThoughtSignature: acc.thoughtSignature,
	}
	if strings.TrimSpace(call.RawInput) == "" {
		call.RawInput = emptyArguments
	}
	var input any
	if err := json.Unmarshal([]byte(call.RawInput), &input); err != nil {
		s.logger.Warn("helicone: streamed tool call arguments are not valid JSON",
			"id", acc.id, "tool", acc.name, "err", err)
		call.Invalid = true
	} else {
		call.Input = input
	}
	return append(out, aisdk.ToolInputEnd{ID: acc.id}, call)
}

// flush completes open tool calls and emits the single Finish part.
func (s *streamState) flush() []aisdk.StreamPart {
	out := s.finalizeOpen(nil)
	return append(out, aisdk.Finish{Reason: s.reason, Usage: s.usage})
}
