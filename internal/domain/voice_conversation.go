package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// TranscriptEntry is one append-only line of a session's transcript.
// Role is "user" or "agent".
type TranscriptEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// TranscriptEntries is a jsonb-backed ordered list of TranscriptEntry,
// persisted on the anchor message row at session close.
type TranscriptEntries []TranscriptEntry

// VoiceConversation is the anchor row keyed by the carrier call id: it
// identifies a session's business context (agent, contact, campaign
// offer) and receives the final transcript and booking outcome when the
// session ends.
type VoiceConversation struct {
	ID              string             `json:"id" gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()"`
	CallControlID   string             `json:"call_control_id" gorm:"column:call_control_id;unique;not null"`
	AgentID         string             `json:"agent_id" gorm:"column:agent_id;type:uuid;not null;index"`
	PromptVersionID string             `json:"prompt_version_id" gorm:"column:prompt_version_id;type:uuid;not null"`
	ContactID       *string            `json:"contact_id" gorm:"column:contact_id;type:uuid"`
	CampaignID      *string            `json:"campaign_id" gorm:"column:campaign_id;type:uuid"`
	Direction       SessionDirection   `json:"direction" gorm:"column:direction;type:varchar(16);not null"`
	State           SessionState       `json:"state" gorm:"column:state;type:varchar(16);not null;default:'initiated'"`
	BookingOutcome  *string            `json:"booking_outcome" gorm:"column:booking_outcome;type:varchar(16)"`
	Transcript      TranscriptEntries  `json:"transcript" gorm:"column:transcript;type:jsonb"`
	StartedAt       time.Time          `json:"started_at" gorm:"column:started_at"`
	EndedAt         *time.Time         `json:"ended_at" gorm:"column:ended_at"`
	CreatedAt       time.Time          `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (VoiceConversation) TableName() string {
	return "voice_conversations"
}

// Value/Scan for TranscriptEntries, mirroring the JSONB pattern in common.go.
func (t TranscriptEntries) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	return json.Marshal([]TranscriptEntry(t))
}

func (t *TranscriptEntries) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("domain: TranscriptEntries.Scan: unsupported type")
		}
		bytes = []byte(str)
	}
	if len(bytes) == 0 {
		*t = nil
		return nil
	}
	var out []TranscriptEntry
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*t = out
	return nil
}
