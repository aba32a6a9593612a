package aisdk

// SchemaConverter is a tool input schema held in a non-JSON-Schema representation
// (e.g. a validation library type). JSONSchema converts it on demand.
type SchemaConverter interface {
	JSONSchema() (map[string]any, error)
}

// SchemaFunc adapts a function to SchemaConverter.
type SchemaFunc func() (map[string]any, error)

// JSONSchema implements SchemaConverter.
func (f SchemaFunc) JSONSchema() (map[string]any, error) { return f() }

// ToolDefinition is the universal function tool description.
// InputSchema takes precedence; Schema is consulted only when InputSchema is nil.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Schema      SchemaConverter
}

// ToolChoiceType selects how the model may use tools.
type ToolChoiceType string

// Tool choice policies.
const (
	ToolChoiceAuto     ToolChoiceType = "auto"
	ToolChoiceRequired ToolChoiceType = "required"
	ToolChoiceNone     ToolChoiceType = "none"
	ToolChoiceTool     ToolChoiceType = "tool"
)

// ToolChoice is the tool policy for a call. ToolName is used only with ToolChoiceTool.
type ToolChoice struct {
	Type     ToolChoiceType
	ToolName string
}

// ResponseFormat requests structured output. Type "json" with a nil Schema asks for any JSON object.
type ResponseFormat struct {
	Type        string // "text" or "json"
	Name        string
	Description string
	Schema      map[string]any
}
