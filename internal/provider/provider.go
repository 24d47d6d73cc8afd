// Package provider defines the capability-set interface every
// conversational AI provider must implement, decoupled from any single
// vendor's wire protocol. The session state machine drives a session
// entirely through this interface, so swapping providers (or running one
// provider for speech and another for synthesis in hybrid mode) never
// touches session logic.
package provider

import "context"

// Kind names a provider implementation.
type Kind string

const (
	KindRealtime Kind = "realtime" // combined STT+LLM+TTS in one stream
	KindHybridSTT Kind = "hybrid_stt"
	KindHybridTTS Kind = "hybrid_tts"
)

// AudioFormat describes the sample format a provider leg speaks.
type AudioFormat struct {
	SampleRateHz int
	Encoding     string // "pcm16" or "ulaw"
}

// Session is one open connection to a provider for the lifetime of a
// call. Implementations are not required to be safe for concurrent use
// from more than the single session event loop that owns them.
type Session interface {
	// Configure sends the initial session-configuration message: system
	// prompt, audio format declarations, turn-detection parameters, and
	// the enabled tool schema.
	Configure(ctx context.Context, cfg SessionConfig) error

	// SendAudio forwards one ingress audio frame (already in this
	// provider's expected format and sample rate) to the provider.
	SendAudio(ctx context.Context, pcm []byte) error

	// SubmitToolResult reports a completed tool call's result and asks
	// the provider to continue the response.
	SubmitToolResult(ctx context.Context, callID string, result []byte) error

	// InjectContext adds an out-of-band system or assistant message
	// without waiting on a user turn (used for greetings and tool
	// progress narration).
	InjectContext(ctx context.Context, role, content string) error

	// Cancel requests the provider stop its current response, used on
	// barge-in.
	Cancel(ctx context.Context) error

	// Events returns the channel of decoded provider events. The
	// channel closes when the underlying connection closes.
	Events() <-chan Event

	// Close tears down the connection.
	Close() error
}

// SessionConfig is the provider-agnostic shape of the initial
// configuration message.
type SessionConfig struct {
	SystemPrompt       string
	Greeting           string
	InputFormat        AudioFormat
	OutputFormat       AudioFormat
	TurnDetectionMode  string
	SilenceDurationMs  int
	Temperature        float64
	Voice              string
	ToolSchemas        []ToolSchema
}

// ToolSchema is the provider-facing description of one callable tool.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// EventType is the provider-agnostic event the session loop switches on.
type EventType string

const (
	EventAudioDelta            EventType = "audio_delta"
	EventTranscriptDelta       EventType = "transcript_delta"
	EventUserTranscriptDone    EventType = "user_transcript_done"
	EventSpeechStarted         EventType = "speech_started"
	EventResponseCreated       EventType = "response_created"
	EventResponseDone          EventType = "response_done"
	EventFunctionCall          EventType = "function_call"
	EventError                 EventType = "error"
)

// Event is one decoded provider event, with only the fields relevant to
// its Type populated.
type Event struct {
	Type EventType

	AudioPCM   []byte
	Transcript string

	FunctionCallID   string
	FunctionName     string
	FunctionArgsJSON string

	Err error
}
