// Package registry tracks which pod owns which in-flight voice session, so
// any pod that receives a carrier webhook or media frame for a call can
// find (or confirm the absence of) the owning pod.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"github.com/Gahroot/the-tribunal-sub000/pkg/redis"
	"go.uber.org/zap"
)

const (
	cleanupChannel = "voice:session:cleanup"
	sessionTTL     = 1 * time.Hour
)

// Entry is the monitoring record kept for one in-flight session.
type Entry struct {
	CallControlID string    `json:"call_control_id"`
	PodID         string    `json:"pod_id"`
	AgentID       string    `json:"agent_id"`
	Direction     string    `json:"direction"`
	StartedAt     time.Time `json:"started_at"`
}

type cleanupMessage struct {
	CallControlID string `json:"call_control_id"`
}

// Registry records session ownership in Redis, keyed by the carrier call id.
type Registry struct {
	redisSvc redis.RedisServiceInterface
	podID    string
}

// NewRegistry creates a registry bound to this pod's identity.
func NewRegistry(redisSvc redis.RedisServiceInterface, podID string) *Registry {
	return &Registry{redisSvc: redisSvc, podID: podID}
}

// Register records that this pod now owns callControlID's session.
func (r *Registry) Register(ctx context.Context, entry Entry) error {
	entry.PodID = r.podID
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	key := r.redisSvc.GenerateKey(redis.SessionInfo, entry.CallControlID)
	if err := r.redisSvc.SetValue(ctx, key, string(data), sessionTTL); err != nil {
		return err
	}
	logger.Base().Info("session registered", zap.String("call_control_id", entry.CallControlID), zap.String("pod_id", r.podID))
	return nil
}

// Unregister removes the ownership record for callControlID.
func (r *Registry) Unregister(ctx context.Context, callControlID string) error {
	key := r.redisSvc.GenerateKey(redis.SessionInfo, callControlID)
	return r.redisSvc.DelValue(ctx, key)
}

// Lookup returns the ownership record for callControlID, if any pod has
// registered one.
func (r *Registry) Lookup(ctx context.Context, callControlID string) (*Entry, error) {
	key := r.redisSvc.GenerateKey(redis.SessionInfo, callControlID)
	raw, err := r.redisSvc.GetValue(ctx, key)
	if err != nil {
		if err == redis.ErrKeyNotExist {
			return nil, nil
		}
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("registry: decode entry: %w", err)
	}
	return &entry, nil
}

// NotifyCleanup broadcasts a cleanup request to every pod, in case the
// owning pod crashed without unregistering.
func (r *Registry) NotifyCleanup(ctx context.Context, callControlID string) error {
	logger.Base().Info("broadcasting session cleanup", zap.String("call_control_id", callControlID))
	return r.redisSvc.Publish(ctx, cleanupChannel, cleanupMessage{CallControlID: callControlID})
}

// SubscribeToCleanup listens for cleanup broadcasts from any pod.
func (r *Registry) SubscribeToCleanup(ctx context.Context, handler func(callControlID string)) error {
	return r.redisSvc.Subscribe(ctx, cleanupChannel, func(payload string) {
		var msg cleanupMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			logger.Base().Error("failed to decode cleanup message", zap.Error(err))
			return
		}
		handler(msg.CallControlID)
	})
}
