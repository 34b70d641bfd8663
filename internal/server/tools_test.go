package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sam02425/Document-Portal/internal/pipeline"
)

func TestGetToolDefinitions(t *testing.T) {
	expected := []string{
		"document_assess_quality",
		"document_normalize",
		"document_compress",
		"document_crop",
		"document_ocr",
		"document_extract_fields",
		"document_process",
		"document_merge_pages",
		"document_match_identity",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}
	for _, name := range expected {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(toolMap) != len(expected) {
		t.Errorf("got %d tools, want %d", len(toolMap), len(expected))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if !strings.HasPrefix(tool.Name, "document_") {
				t.Errorf("tool name %q lacks the document_ prefix", tool.Name)
			}
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok || len(props) == 0 {
				t.Fatal("InputSchema has no properties")
			}
			if required, ok := tool.InputSchema["required"].([]string); ok {
				for _, r := range required {
					if _, ok := props[r]; !ok {
						t.Errorf("required %q is not a property", r)
					}
				}
			}
			if _, err := json.Marshal(tool); err != nil {
				t.Errorf("tool does not marshal: %v", err)
			}
		})
	}
}

func TestToolDefinitions_ImageInputs(t *testing.T) {
	single := map[string]bool{
		"document_assess_quality": true,
		"document_normalize":      true,
		"document_compress":       true,
		"document_crop":           true,
		"document_ocr":            true,
		"document_extract_fields": true,
	}
	for _, tool := range GetToolDefinitions() {
		if !single[tool.Name] {
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		for _, key := range []string{"path", "image_base64"} {
			if _, ok := props[key]; !ok {
				t.Errorf("%s: missing %s", tool.Name, key)
			}
		}
	}
}

// Every listed tool has a handler.
func TestToolDefinitions_Dispatch(t *testing.T) {
	s := newTestServer(pipeline.Deps{})
	for _, tool := range GetToolDefinitions() {
		_, err := s.executeTool(context.Background(), tool.Name, json.RawMessage(`{}`))
		if err != nil && strings.Contains(err.Error(), "unknown tool") {
			t.Errorf("%s has no handler", tool.Name)
		}
	}
	if _, err := s.executeTool(context.Background(), "document_unknown", nil); err == nil {
		t.Error("unknown tool should fail")
	}
}
