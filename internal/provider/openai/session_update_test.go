package openai

import (
	"testing"

	"github.com/Gahroot/the-tribunal-sub000/internal/provider"
)

func TestBuildSessionUpdateIncludesToolsAndFormats(t *testing.T) {
	cfg := provider.SessionConfig{
		SystemPrompt:      "be helpful",
		InputFormat:       provider.AudioFormat{SampleRateHz: 24000},
		OutputFormat:      provider.AudioFormat{SampleRateHz: 24000},
		Voice:             "verse",
		SilenceDurationMs: 700,
		ToolSchemas: []provider.ToolSchema{
			{Name: "check_availability", Description: "check slots"},
		},
	}

	msg := buildSessionUpdate(cfg)
	if msg["type"] != "session.update" {
		t.Fatalf("expected session.update envelope, got %+v", msg["type"])
	}
	session := msg["session"].(map[string]interface{})
	if session["instructions"] != "be helpful" {
		t.Fatalf("expected instructions carried through, got %v", session["instructions"])
	}
	tools := session["tools"].([]map[string]interface{})
	if len(tools) != 1 || tools[0]["name"] != "check_availability" {
		t.Fatalf("expected one tool schema, got %+v", tools)
	}
}
