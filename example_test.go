package aisdk_test

import (
	"fmt"

	aisdk "github.com/Helicone/ai-sdk"
)

func ExampleCallOptions() {
	call := &aisdk.CallOptions{
		Prompt: []aisdk.Message{
			{Role: aisdk.RoleSystem, Content: []aisdk.Part{aisdk.TextPart{Text: "Be brief."}}},
			{Role: aisdk.RoleUser, Content: []aisdk.Part{aisdk.TextPart{Text: "Weather in Paris?"}}},
		},
		Temperature:     aisdk.Float(0.2),
		MaxOutputTokens: aisdk.Int(256),
		Tools: []aisdk.ToolDefinition{{
			Name:        "get_weather",
			Description: "Current weather for a city",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"city": map[string]any{"type": "string"}},
			},
		}},
		ToolChoice: &aisdk.ToolChoice{Type: aisdk.ToolChoiceAuto},
	}
	fmt.Println(len(call.Prompt), call.Tools[0].Name, *call.Temperature)
	// Output: 2 get_weather 0.2
}
