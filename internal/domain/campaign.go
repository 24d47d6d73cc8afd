package domain

import (
	"fmt"
	"strings"
	"time"
)

// Campaign is an outbound dispatch job against a contact list: either an
// SMS-only blast or a voice call with an SMS fallback when the call goes
// unanswered. A campaign belongs to one Agent when it places voice calls.
type Campaign struct {
	ID        string       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Workspace string       `json:"workspace" gorm:"type:varchar(255);not null;index"`
	Name      string       `json:"name" gorm:"type:varchar(255);not null"`
	Type      CampaignType `json:"type" gorm:"type:varchar(32);not null"`
	Status    CampaignStatus `json:"status" gorm:"type:varchar(16);not null;default:'draft'"`

	AgentID *string `json:"agent_id" gorm:"type:uuid;index"`

	MessageTemplate string `json:"message_template" gorm:"type:text"`
	// FollowUpMessageTemplate is sent for every follow-up in the chain;
	// empty disables follow-ups regardless of MaxFollowUps.
	FollowUpMessageTemplate string `json:"follow_up_message_template" gorm:"type:text"`

	// SendingWindowStartHour/EndHour bound the local hours during which
	// sends may go out, e.g. 9 to 20. Days uses three-letter weekday
	// abbreviations ("mon", "tue", ...); empty means every day.
	SendingWindowStartHour int         `json:"sending_window_start_hour" gorm:"default:9"`
	SendingWindowEndHour   int         `json:"sending_window_end_hour" gorm:"default:20"`
	SendingWindowDays      StringSlice `json:"sending_window_days" gorm:"type:jsonb"`
	Timezone               string      `json:"timezone" gorm:"type:varchar(64);default:'UTC'"`

	PerNumberPerMinute int `json:"per_number_per_minute" gorm:"default:3"`
	// MessagesPerMinute caps this campaign's aggregate send rate across all
	// contacts combined, independent of PerNumberPerMinute's per-number cap.
	MessagesPerMinute int `json:"messages_per_minute" gorm:"default:10"`

	// MaxFollowUps and FollowUpDelayHours drive the follow-up chain: after
	// an initial send with no reply, the dispatcher schedules up to
	// MaxFollowUps further sends, each FollowUpDelayHours after the last.
	// Zero MaxFollowUps disables follow-ups entirely.
	MaxFollowUps       int `json:"max_follow_ups" gorm:"default:0"`
	FollowUpDelayHours int `json:"follow_up_delay_hours" gorm:"default:24"`

	// Offer fields are optional; OfferName nil means no offer is attached
	// and the {offer_*} template placeholders are left untouched.
	OfferName          *string  `json:"offer_name,omitempty" gorm:"type:varchar(255)"`
	OfferDiscountType  *string  `json:"offer_discount_type,omitempty" gorm:"type:varchar(32)"`
	OfferDiscountValue *float64 `json:"offer_discount_value,omitempty"`
	OfferDescription   *string  `json:"offer_description,omitempty" gorm:"type:text"`
	OfferTerms         *string  `json:"offer_terms,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// OfferDiscountText renders the offer's discount as the short phrase the
// message template's {offer_discount} placeholder expects. Empty when no
// offer is attached or the discount type is unrecognized.
func (c *Campaign) OfferDiscountText() string {
	if c.OfferDiscountType == nil {
		return ""
	}
	value := 0.0
	if c.OfferDiscountValue != nil {
		value = *c.OfferDiscountValue
	}
	switch *c.OfferDiscountType {
	case "percentage":
		return fmt.Sprintf("%g%% off", value)
	case "fixed":
		return fmt.Sprintf("$%g off", value)
	case "free_service":
		return "Free service"
	default:
		return ""
	}
}

// TableName sets the table name for Campaign.
func (Campaign) TableName() string {
	return "campaigns"
}

// IsDispatchable reports whether the campaign is in a state the
// dispatcher should pull contacts from.
func (c *Campaign) IsDispatchable() bool {
	return c.Status == CampaignRunning
}

var weekdayAbbrev = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// WithinSendingWindow reports whether now, converted to the campaign's
// timezone, falls inside the configured sending hours and (when
// SendingWindowDays is non-empty) on a permitted weekday. An unparsable
// Timezone falls back to UTC rather than rejecting every send.
func (c *Campaign) WithinSendingWindow(now time.Time) bool {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	hour := local.Hour()
	if hour < c.SendingWindowStartHour || hour >= c.SendingWindowEndHour {
		return false
	}

	if len(c.SendingWindowDays) == 0 {
		return true
	}
	today := weekdayAbbrev[int(local.Weekday())]
	for _, day := range c.SendingWindowDays {
		if strings.EqualFold(day, today) {
			return true
		}
	}
	return false
}

// CampaignContact is one contact's enrollment in a campaign: the unit the
// dispatcher advances through ContactPending -> ... -> a terminal status.
type CampaignContact struct {
	ID         string                `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CampaignID string                `json:"campaign_id" gorm:"type:uuid;not null;index:idx_campaign_contacts_campaign_status"`
	ContactID  string                `json:"contact_id" gorm:"type:uuid;not null;index"`
	Status     CampaignContactStatus `json:"status" gorm:"type:varchar(32);not null;default:'pending';index:idx_campaign_contacts_campaign_status"`

	Attempts     int        `json:"attempts" gorm:"default:0"`
	LastAttempt  *time.Time `json:"last_attempt_at"`
	CallControlID *string   `json:"call_control_id" gorm:"type:varchar(128)"`

	// MessagesSent counts the initial send plus every follow-up sent so
	// far. FollowUpsSent counts only follow-ups, gated against the
	// campaign's MaxFollowUps. NextFollowUpAt is when the next follow-up
	// becomes due; nil means none is scheduled (follow-ups disabled,
	// chain exhausted, or a reply already arrived). LastError records the
	// most recent send/dial failure reason for operator visibility.
	MessagesSent   int        `json:"messages_sent" gorm:"default:0"`
	FollowUpsSent  int        `json:"follow_ups_sent" gorm:"default:0"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at"`
	LastError      *string    `json:"last_error" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for CampaignContact.
func (CampaignContact) TableName() string {
	return "campaign_contacts"
}

// CreateCampaignRequest is the input to create a new Campaign.
type CreateCampaignRequest struct {
	Workspace       string
	Name            string
	Type            CampaignType
	AgentID         *string
	MessageTemplate string
}
