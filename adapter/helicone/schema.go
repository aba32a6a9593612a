package helicone

import (
	"fmt"
	"log/slog"
	"maps"

	aisdk "github.com/Helicone/ai-sdk"
)

type wireTool struct {
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func convertTools(tools []aisdk.ToolDefinition, logger *slog.Logger) []wireTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, wireTool{
			Type: "function",
			Function: wireToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toolParameters(t, logger),
			},
		})
	}
	return out
}

// toolParameters returns the tool's JSON Schema. InputSchema is used as is;
// otherwise Schema is converted. A failed conversion degrades to an open object.
func toolParameters(t aisdk.ToolDefinition, logger *slog.Logger) map[string]any {
	if t.InputSchema != nil {
		return objectSchema(t.InputSchema)
	}
	if t.Schema == nil {
		return map[string]any{"type": "object"}
	}
	s, err := convertSchema(t.Schema)
	if err != nil || s == nil {
		logger.Warn("helicone: tool schema conversion failed, sending open object schema",
			"tool", t.Name, "err", err)
		return map[string]any{"type": "object"}
	}
	return objectSchema(s)
}

func convertSchema(c aisdk.SchemaConverter) (s map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("schema converter panicked: %v", r)
		}
	}()
	return c.JSONSchema()
}

// objectSchema adds "type":"object" when the schema names no type. The input is not modified.
func objectSchema(s map[string]any) map[string]any {
	if _, ok := s["type"]; ok {
		return s
	}
	out := maps.Clone(s)
	out["type"] = "object"
	return out
}
