package task

import (
	"context"
)

// TaskType defines the type of asynchronous task dispatched across pods via
// the distributed bus.
type TaskType string

const (
	// TaskTypeInboundCall processes a carrier-originated inbound call:
	// answer, start the media stream, and bring up the provider leg.
	TaskTypeInboundCall TaskType = "inbound_call"
	// TaskTypeOutboundCall places a carrier call for a campaign contact.
	TaskTypeOutboundCall TaskType = "outbound_call"
	// TaskTypeCampaignBatch asks any subscribed worker to pull and dispatch
	// the next batch of due campaign contacts.
	TaskTypeCampaignBatch TaskType = "campaign_batch"
	// TaskTypeBanditRecompute asks any subscribed worker to re-run the
	// bandit elimination/winner check for an agent's arms.
	TaskTypeBanditRecompute TaskType = "bandit_recompute"
)

// SessionTask represents an asynchronous task payload routed between pods.
type SessionTask struct {
	Type         TaskType `json:"type"`
	ConnectionID string   `json:"connection_id"`
	Payload      []byte   `json:"payload"` // JSON payload of the originating request
}

// Bus defines the interface for the distributed task bus.
type Bus interface {
	Publish(ctx context.Context, task SessionTask) error
	Subscribe(ctx context.Context, handler func(SessionTask)) error
}
