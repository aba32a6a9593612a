package aisdk

// Role is the message role in a conversation (system, user, assistant, tool).
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Part is a sealed interface for message parts. Only package types implement it via isPart().
type Part interface {
	isPart()
	// PartType returns the wire-neutral part name (e.g. "text", "tool-call").
	PartType() string
}

// TextPart holds plain text content.
type TextPart struct {
	Text string
}

func (TextPart) isPart()          {}
func (TextPart) PartType() string { return "text" }

// ReasoningPart holds model reasoning text from a previous assistant turn.
type ReasoningPart struct {
	Text string
}

func (ReasoningPart) isPart()          {}
func (ReasoningPart) PartType() string { return "reasoning" }

// FilePart holds an image or file referenced by URL or carried inline.
// URL wins over Base64, Base64 wins over Data.
type FilePart struct {
	MediaType string
	URL       string
	Base64    string // already base64-encoded payload
	Data      []byte // raw bytes, encoded on the wire
}

func (FilePart) isPart()          {}
func (FilePart) PartType() string { return "file" }

// ToolCallPart represents a model request to call a tool (in assistant messages and results).
type ToolCallPart struct {
	ToolCallID string
	ToolName   string
	// Input is the decoded arguments object. json.RawMessage and JSON strings are sent verbatim.
	Input any
	// ThoughtSignature is an opaque vendor token that must be echoed back with the call.
	ThoughtSignature string
}

func (ToolCallPart) isPart()          {}
func (ToolCallPart) PartType() string { return "tool-call" }

// ToolResultPart is the result of a tool call (in messages with RoleTool).
type ToolResultPart struct {
	ToolCallID string
	ToolName   string
	Output     ToolResultOutput
}

func (ToolResultPart) isPart()          {}
func (ToolResultPart) PartType() string { return "tool-result" }

// ToolResultOutput is a sealed interface for the payload of a ToolResultPart.
type ToolResultOutput interface {
	isToolResultOutput()
}

// TextOutput is a plain-text tool result.
type TextOutput struct{ Value string }

// ErrorTextOutput is a plain-text tool failure.
type ErrorTextOutput struct{ Value string }

// JSONOutput is a structured tool result, JSON-encoded on the wire.
type JSONOutput struct{ Value any }

// ErrorJSONOutput is a structured tool failure, JSON-encoded on the wire.
type ErrorJSONOutput struct{ Value any }

// ContentOutput is a mixed text/media tool result.
type ContentOutput struct{ Items []ContentItem }

func (TextOutput) isToolResultOutput()      {}
func (ErrorTextOutput) isToolResultOutput() {}
func (JSONOutput) isToolResultOutput()      {}
func (ErrorJSONOutput) isToolResultOutput() {}
func (ContentOutput) isToolResultOutput()   {}

// ContentItem types.
const (
	ContentItemText  = "text"
	ContentItemMedia = "media"
)

// ContentItem is one entry of a ContentOutput.
type ContentItem struct {
	Type      string // ContentItemText or ContentItemMedia
	Text      string
	Data      string // base64 media payload
	MediaType string
}

// Message is a single conversation turn with role and ordered content parts.
type Message struct {
	Role    Role
	Content []Part
}
