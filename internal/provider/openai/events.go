package openai

import (
	"encoding/base64"
	"encoding/json"

	"github.com/Gahroot/the-tribunal-sub000/internal/provider"
)

// decodeEvent maps one OpenAI Realtime wire event to the provider-agnostic
// Event shape, grounded on the switch in the teacher's
// internal/core/model/openai/events.go. Event types this bridge has no
// use for (rate_limits.updated, conversation.item.added, the various
// input_audio_buffer.* bookkeeping events) are intentionally dropped.
func decodeEvent(eventType string, raw []byte) (provider.Event, bool) {
	switch eventType {
	case "response.audio.delta", "response.output_audio.delta":
		var body struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return provider.Event{}, false
		}
		pcm, err := base64.StdEncoding.DecodeString(body.Delta)
		if err != nil {
			return provider.Event{}, false
		}
		return provider.Event{Type: provider.EventAudioDelta, AudioPCM: pcm}, true

	case "response.audio_transcript.delta", "response.output_audio_transcript.delta":
		var body struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return provider.Event{}, false
		}
		return provider.Event{Type: provider.EventTranscriptDelta, Transcript: body.Delta}, true

	case "conversation.item.input_audio_transcription.completed":
		var body struct {
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return provider.Event{}, false
		}
		return provider.Event{Type: provider.EventUserTranscriptDone, Transcript: body.Transcript}, true

	case "input_audio_buffer.speech_started":
		return provider.Event{Type: provider.EventSpeechStarted}, true

	case "response.created":
		return provider.Event{Type: provider.EventResponseCreated}, true

	case "response.done":
		return provider.Event{Type: provider.EventResponseDone}, true

	case "response.function_call_arguments.done":
		var body struct {
			CallID    string `json:"call_id"`
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return provider.Event{}, false
		}
		return provider.Event{
			Type:             provider.EventFunctionCall,
			FunctionCallID:   body.CallID,
			FunctionName:     body.Name,
			FunctionArgsJSON: body.Arguments,
		}, true

	case "error":
		var body struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &body)
		return provider.Event{Type: provider.EventError, Err: errString(body.Error.Message)}, true

	default:
		return provider.Event{}, false
	}
}

type wireError string

func (e wireError) Error() string { return string(e) }

func errString(msg string) error {
	if msg == "" {
		msg = "openai provider: unspecified error"
	}
	return wireError(msg)
}
