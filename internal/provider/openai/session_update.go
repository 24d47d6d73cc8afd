package openai

import "github.com/Gahroot/the-tribunal-sub000/internal/provider"

// buildSessionUpdate translates the provider-agnostic SessionConfig into
// OpenAI's session.update event shape, grounded on the teacher's
// ephemeral-token session configuration in
// internal/core/model/openai/session.go (audio.input/output format,
// server_vad turn detection, transcription, tool schema).
func buildSessionUpdate(cfg provider.SessionConfig) map[string]interface{} {
	turnDetection := map[string]interface{}{
		"type": "server_vad",
	}
	if cfg.SilenceDurationMs > 0 {
		turnDetection["silence_duration_ms"] = cfg.SilenceDurationMs
	} else {
		turnDetection["silence_duration_ms"] = 500
	}

	session := map[string]interface{}{
		"type":         "realtime",
		"model":        defaultModel,
		"instructions": cfg.SystemPrompt,
		"audio": map[string]interface{}{
			"input": map[string]interface{}{
				"format": map[string]interface{}{
					"type": "audio/pcm",
					"rate": cfg.InputFormat.SampleRateHz,
				},
				"transcription": map[string]interface{}{
					"model": "gpt-4o-transcribe",
				},
				"turn_detection": turnDetection,
			},
			"output": map[string]interface{}{
				"format": map[string]interface{}{
					"type": "audio/pcm",
					"rate": cfg.OutputFormat.SampleRateHz,
				},
				"voice": cfg.Voice,
			},
		},
	}

	if cfg.Temperature > 0 {
		session["temperature"] = cfg.Temperature
	}
	if len(cfg.ToolSchemas) > 0 {
		tools := make([]map[string]interface{}, 0, len(cfg.ToolSchemas))
		for _, t := range cfg.ToolSchemas {
			tools = append(tools, map[string]interface{}{
				"type":        "function",
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			})
		}
		session["tools"] = tools
	}

	return map[string]interface{}{
		"type":    "session.update",
		"session": session,
	}
}
