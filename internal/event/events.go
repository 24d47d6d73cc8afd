package event

import (
	"time"
)

// EventType represents the type of event
type EventType string

// Connection lifecycle events
const (
	// Connection lifecycle
	ConnectionCreated    EventType = "connection.created"
	ConnectionReady      EventType = "connection.ready"
	ConnectionTerminated EventType = "connection.terminated"

	// Voice session lifecycle
	SessionRinging   EventType = "session.ringing"
	SessionAnswered  EventType = "session.answered"
	SessionStreaming EventType = "session.streaming"
	SessionCompleted EventType = "session.completed"
	SessionFailed    EventType = "session.failed"

	// Provider connection events
	ProviderConnectionInit   EventType = "provider.connection_initialized"
	ProviderAudioReady       EventType = "provider.audio_ready"
	ProviderToolCallReceived EventType = "provider.tool_call_received"
	ProviderGreetingSent     EventType = "provider.greeting_sent"

	// Carrier events
	CarrierCallStarted    EventType = "carrier.call_started"
	CarrierCallAnswered   EventType = "carrier.call_answered"
	CarrierCallTerminated EventType = "carrier.call_terminated"
	CarrierStreamReady    EventType = "carrier.stream_ready"

	// IVR/DTMF events
	IVRModeChanged  EventType = "ivr.mode_changed"
	IVRLoopDetected EventType = "ivr.loop_detected"
	DTMFSent        EventType = "dtmf.sent"

	// Bandit events
	BanditArmSelected EventType = "bandit.arm_selected"
	BanditArmUpdated  EventType = "bandit.arm_updated"

	// Campaign events
	CampaignContactDispatched EventType = "campaign.contact_dispatched"
	CampaignContactFailed     EventType = "campaign.contact_failed"

	// Internal/system events
	HandlerPanic EventType = "handler.panic"
)

// ConnectionEvent represents a connection-related event
type ConnectionEvent struct {
	Type         EventType   `json:"type"`
	ConnectionID string      `json:"connection_id"`
	CallID       string      `json:"call_id,omitempty"`
	AgentID      string      `json:"agent_id,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Data         interface{} `json:"data,omitempty"`
	Error        error       `json:"error,omitempty"`
}

// SessionEventData carries voice-session lifecycle event data.
type SessionEventData struct {
	ConnectionID string `json:"connection_id"`
	CallID       string `json:"call_id"`
	AgentID      string `json:"agent_id,omitempty"`
	State        string `json:"state,omitempty"`
}

// ProviderEventData carries realtime-provider connection event data.
type ProviderEventData struct {
	ConnectionID  string `json:"connection_id"`
	IsReady       bool   `json:"is_ready"`
	AudioReady    bool   `json:"audio_ready,omitempty"`
	GreetingSent  bool   `json:"greeting_sent,omitempty"`
	ToolName      string `json:"tool_name,omitempty"`
	Error         error  `json:"error,omitempty"`
}

// CarrierEventData carries carrier (telephony) call event data.
type CarrierEventData struct {
	ConnectionID  string `json:"connection_id"`
	CallID        string `json:"call_id"`
	CallerNumber  string `json:"caller_number,omitempty"`
	CalledNumber  string `json:"called_number,omitempty"`
	AgentID       string `json:"agent_id,omitempty"`
	StreamURL     string `json:"stream_url,omitempty"`
}

// IVREventData carries IVR classification / loop-detection event data.
type IVREventData struct {
	ConnectionID string `json:"connection_id"`
	Mode         string `json:"mode,omitempty"`
	PreviousMode string `json:"previous_mode,omitempty"`
	Digits       string `json:"digits,omitempty"`
}

// BanditEventData carries prompt-version selection/update event data.
type BanditEventData struct {
	AgentID         string  `json:"agent_id"`
	PromptVersionID string  `json:"prompt_version_id"`
	Alpha           float64 `json:"alpha"`
	Beta            float64 `json:"beta"`
}

// CampaignEventData carries campaign dispatch event data.
type CampaignEventData struct {
	CampaignID string `json:"campaign_id"`
	ContactID  string `json:"contact_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// NewConnectionEvent creates a new connection event
func NewConnectionEvent(eventType EventType, connectionID string) *ConnectionEvent {
	return &ConnectionEvent{
		Type:         eventType,
		ConnectionID: connectionID,
		Timestamp:    time.Now(),
	}
}

// WithCallID adds call ID to the event
func (e *ConnectionEvent) WithCallID(callID string) *ConnectionEvent {
	e.CallID = callID
	return e
}

// WithAgentID adds agent ID to the event
func (e *ConnectionEvent) WithAgentID(agentID string) *ConnectionEvent {
	e.AgentID = agentID
	return e
}

// WithData adds data to the event
func (e *ConnectionEvent) WithData(data interface{}) *ConnectionEvent {
	e.Data = data
	return e
}

// WithError adds error to the event
func (e *ConnectionEvent) WithError(err error) *ConnectionEvent {
	e.Error = err
	return e
}

// IsError returns true if the event contains an error
func (e *ConnectionEvent) IsError() bool {
	return e.Error != nil
}

// GetSessionData returns session event data if available
func (e *ConnectionEvent) GetSessionData() (*SessionEventData, bool) {
	data, ok := e.Data.(*SessionEventData)
	return data, ok
}

// GetProviderData returns provider event data if available
func (e *ConnectionEvent) GetProviderData() (*ProviderEventData, bool) {
	data, ok := e.Data.(*ProviderEventData)
	return data, ok
}

// GetCarrierData returns carrier event data if available
func (e *ConnectionEvent) GetCarrierData() (*CarrierEventData, bool) {
	data, ok := e.Data.(*CarrierEventData)
	return data, ok
}

// GetIVRData returns IVR event data if available
func (e *ConnectionEvent) GetIVRData() (*IVREventData, bool) {
	data, ok := e.Data.(*IVREventData)
	return data, ok
}

// GetBanditData returns bandit event data if available
func (e *ConnectionEvent) GetBanditData() (*BanditEventData, bool) {
	data, ok := e.Data.(*BanditEventData)
	return data, ok
}

// GetCampaignData returns campaign event data if available
func (e *ConnectionEvent) GetCampaignData() (*CampaignEventData, bool) {
	data, ok := e.Data.(*CampaignEventData)
	return data, ok
}
