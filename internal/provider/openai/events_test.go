package openai

import (
	"encoding/base64"
	"testing"

	"github.com/Gahroot/the-tribunal-sub000/internal/provider"
)

func TestDecodeAudioDelta(t *testing.T) {
	payload := []byte(`{"type":"response.audio.delta","delta":"` + base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}) + `"}`)
	ev, ok := decodeEvent("response.audio.delta", payload)
	if !ok || ev.Type != provider.EventAudioDelta {
		t.Fatalf("expected audio delta event, got %+v ok=%v", ev, ok)
	}
	if len(ev.AudioPCM) != 4 {
		t.Fatalf("expected 4 decoded bytes, got %d", len(ev.AudioPCM))
	}
}

func TestDecodeTranscriptDelta(t *testing.T) {
	ev, ok := decodeEvent("response.audio_transcript.delta", []byte(`{"type":"response.audio_transcript.delta","delta":"hel"}`))
	if !ok || ev.Type != provider.EventTranscriptDelta || ev.Transcript != "hel" {
		t.Fatalf("unexpected event: %+v ok=%v", ev, ok)
	}
}

func TestDecodeFunctionCall(t *testing.T) {
	ev, ok := decodeEvent("response.function_call_arguments.done", []byte(`{"call_id":"c1","name":"check_availability","arguments":"{}"}`))
	if !ok || ev.Type != provider.EventFunctionCall || ev.FunctionCallID != "c1" || ev.FunctionName != "check_availability" {
		t.Fatalf("unexpected event: %+v ok=%v", ev, ok)
	}
}

func TestDecodeUnknownEventIsIgnored(t *testing.T) {
	_, ok := decodeEvent("rate_limits.updated", []byte(`{"type":"rate_limits.updated"}`))
	if ok {
		t.Fatal("expected unknown/unused event type to be dropped")
	}
}

func TestDecodeErrorEvent(t *testing.T) {
	ev, ok := decodeEvent("error", []byte(`{"type":"error","error":{"message":"boom"}}`))
	if !ok || ev.Type != provider.EventError || ev.Err == nil || ev.Err.Error() != "boom" {
		t.Fatalf("unexpected event: %+v ok=%v", ev, ok)
	}
}
