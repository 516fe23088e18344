package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"ocr_image",
		"ocr_capture_region",
		"ocr_pdf",
		"ocr_detect_regions",
		"ocr_candidates",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		toolMap[tool.Name] = tool
	}
	if len(toolMap) != len(tools) {
		t.Error("tool names must be unique")
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}
			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("InputSchema required should be a []string")
			}
			// Every required parameter must be described.
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required parameter %s has no schema", r)
				}
			}
			if _, ok := props["path"]; !ok {
				t.Error("every tool takes a file path")
			}
		})
	}
}

func TestToolDefinitions_AccuracyEnum(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		props := tool.InputSchema["properties"].(map[string]interface{})
		acc, ok := props["accuracy"].(map[string]interface{})
		if !ok {
			continue
		}
		enum, _ := acc["enum"].([]string)
		if len(enum) != 2 || enum[0] != "standard" || enum[1] != "high" {
			t.Errorf("%s: accuracy enum %v", tool.Name, enum)
		}
	}
}
