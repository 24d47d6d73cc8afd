package domain

import (
	"time"
)

// Agent is the config-plane entity describing how a voice agent behaves.
// Mutating an agent's prompt never rewrites history in place: it creates
// a new PromptVersion.
type Agent struct {
	ID          string      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	DisplayName string      `json:"display_name" gorm:"type:varchar(255);not null"`
	ChannelMode ChannelMode `json:"channel_mode" gorm:"type:varchar(16);not null;default:'voice'"`

	VoiceProvider VoiceProvider `json:"voice_provider" gorm:"type:varchar(16);not null;default:'a'"`
	VoiceID       string        `json:"voice_id" gorm:"type:varchar(255)"`

	BaseSystemPrompt string  `json:"base_system_prompt" gorm:"type:text;not null"`
	InitialGreeting  *string `json:"initial_greeting" gorm:"type:text"`
	Temperature      float64 `json:"temperature" gorm:"default:0.8"`

	TurnDetectionMode      string  `json:"turn_detection_mode" gorm:"type:varchar(32);default:'server_vad'"`
	TurnDetectionThreshold float64 `json:"turn_detection_threshold" gorm:"default:0.5"`
	SilenceDurationMs      int     `json:"silence_duration_ms" gorm:"default:500"`

	CalendarEventTypeID *string     `json:"calendar_event_type_id" gorm:"type:varchar(64)"`
	EnabledTools        StringSlice `json:"enabled_tools" gorm:"type:jsonb"`

	IVREnabled      bool    `json:"ivr_enabled" gorm:"default:true"`
	IVRGoal         *string `json:"ivr_goal" gorm:"type:text"`
	IVRLoopThreshold float64 `json:"ivr_loop_threshold" gorm:"default:0.85"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Agent.
func (Agent) TableName() string {
	return "agents"
}

// PromptVersion is one bandit arm: an immutable prompt payload plus mutable
// selection statistics. Content never changes after creation; arm_status,
// alpha, beta and the counters mutate under exclusive bandit control.
type PromptVersion struct {
	ID            string `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AgentID       string `json:"agent_id" gorm:"type:uuid;not null;index"`
	VersionNumber int    `json:"version_number" gorm:"not null"`

	SystemPrompt    string  `json:"system_prompt" gorm:"type:text;not null"`
	InitialGreeting *string `json:"initial_greeting" gorm:"type:text"`
	Temperature     float64 `json:"temperature" gorm:"default:0.8"`

	IsActive   bool      `json:"is_active" gorm:"default:true"`
	IsBaseline bool      `json:"is_baseline" gorm:"default:false"`
	ArmStatus  ArmStatus `json:"arm_status" gorm:"type:varchar(16);not null;default:'active'"`

	// Beta(alpha, beta) posterior over the conversion rate. Start at (1,1),
	// the uniform prior, on creation.
	BanditAlpha float64 `json:"bandit_alpha" gorm:"not null;default:1"`
	BanditBeta  float64 `json:"bandit_beta" gorm:"not null;default:1"`

	RewardCount       int `json:"reward_count" gorm:"default:0"`
	TotalCalls        int `json:"total_calls" gorm:"default:0"`
	SuccessfulCalls   int `json:"successful_calls" gorm:"default:0"`
	BookedAppointments int `json:"booked_appointments" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for PromptVersion.
func (PromptVersion) TableName() string {
	return "prompt_versions"
}

// MeanEstimate is the Beta posterior mean (alpha / (alpha + beta)).
func (p *PromptVersion) MeanEstimate() float64 {
	return p.BanditAlpha / (p.BanditAlpha + p.BanditBeta)
}

// IsSelectable reports whether the arm may receive traffic: the bandit
// path restricts selection to active arms, while the legacy single-arm
// path only checks IsActive.
func (p *PromptVersion) IsSelectable() bool {
	return p.ArmStatus == ArmActive
}

// CreateAgentRequest is the input to create a new Agent. Creating the
// agent inserts the Agent row only; no PromptVersion row is created.
type CreateAgentRequest struct {
	DisplayName      string
	ChannelMode      ChannelMode
	VoiceProvider    VoiceProvider
	VoiceID          string
	BaseSystemPrompt string
	InitialGreeting  *string
	Temperature      float64
	EnabledTools     []string
	IVREnabled       bool
	IVRGoal          *string
}
