package aisdk

// StreamPart is a sealed interface for events emitted by a streaming call.
//
// Order contract: for one tool call ToolInputStart precedes every ToolInputDelta,
// which precede ToolInputEnd, which precedes ToolCall; ToolCall is emitted once per
// call; Finish is emitted once and is always last. Text deltas keep wire order.
type StreamPart interface {
	isStreamPart()
	// PartType returns the event name (e.g. "text-delta", "finish").
	PartType() string
}

// TextDelta is a fragment of the call's single text stream.
type TextDelta struct {
	ID    string
	Delta string
}

// ReasoningDelta is a fragment of the call's reasoning stream.
type ReasoningDelta struct {
	ID    string
	Delta string
}

// ToolInputStart announces a tool call once its id and name are known.
type ToolInputStart struct {
	ID       string
	ToolName string
}

// ToolInputDelta carries a raw fragment of a tool call's argument JSON.
type ToolInputDelta struct {
	ID    string
	Delta string
}

// ToolInputEnd marks the end of a tool call's argument stream.
type ToolInputEnd struct {
	ID string
}

// ToolCall is a completed tool call. Input is the decoded arguments; when the
// accumulated arguments never became valid JSON, Invalid is set and only RawInput is filled.
type ToolCall struct {
	ToolCallID       string
	ToolName         string
	Input            any
	RawInput         string
	Invalid          bool
	ThoughtSignature string
}

// Finish ends the stream with the final reason and usage snapshot.
type Finish struct {
	Reason FinishReason
	Usage  Usage
}

func (TextDelta) isStreamPart()      {}
func (ReasoningDelta) isStreamPart() {}
func (ToolInputStart) isStreamPart() {}
func (ToolInputDelta) isStreamPart() {}
func (ToolInputEnd) isStreamPart()   {}
func (ToolCall) isStreamPart()       {}
func (Finish) isStreamPart()         {}

func (TextDelta) PartType() string      { return "text-delta" }
func (ReasoningDelta) PartType() string { return "reasoning-delta" }
func (ToolInputStart) PartType() string { return "tool-input-start" }
func (ToolInputDelta) PartType() string { return "tool-input-delta" }
func (ToolInputEnd) PartType() string   { return "tool-input-end" }
func (ToolCall) PartType() string       { return "tool-call" }
func (Finish) PartType() string         { return "finish" }
