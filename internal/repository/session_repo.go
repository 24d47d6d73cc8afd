package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
	"gorm.io/gorm"
)

// SessionRepository persists the VoiceConversation anchor row for each
// call: its business context at creation, and its final transcript,
// state, and booking outcome at close.
type SessionRepository interface {
	Create(ctx context.Context, conv *domain.VoiceConversation) error
	GetByCallControlID(ctx context.Context, callControlID string) (*domain.VoiceConversation, error)
	UpdateState(ctx context.Context, callControlID string, state domain.SessionState) error
	SetBookingOutcome(ctx context.Context, callControlID, outcome string) error
	Finish(ctx context.Context, callControlID string, transcript domain.TranscriptEntries, state domain.SessionState) error
}

// GormSessionRepository implements SessionRepository, grounded on the
// teacher's VoiceConversationRepository (same create-then-update-by-
// call-control-id shape).
type GormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(ctx context.Context, conv *domain.VoiceConversation) error {
	if conv.StartedAt.IsZero() {
		conv.StartedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return fmt.Errorf("create session anchor row: %w", err)
	}
	return nil
}

func (r *GormSessionRepository) GetByCallControlID(ctx context.Context, callControlID string) (*domain.VoiceConversation, error) {
	var conv domain.VoiceConversation
	if err := r.db.WithContext(ctx).First(&conv, "call_control_id = ?", callControlID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("session not found: %s", callControlID)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &conv, nil
}

func (r *GormSessionRepository) UpdateState(ctx context.Context, callControlID string, state domain.SessionState) error {
	if err := r.db.WithContext(ctx).Model(&domain.VoiceConversation{}).
		Where("call_control_id = ?", callControlID).Update("state", state).Error; err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	return nil
}

func (r *GormSessionRepository) SetBookingOutcome(ctx context.Context, callControlID, outcome string) error {
	if err := r.db.WithContext(ctx).Model(&domain.VoiceConversation{}).
		Where("call_control_id = ?", callControlID).Update("booking_outcome", outcome).Error; err != nil {
		return fmt.Errorf("set booking outcome: %w", err)
	}
	return nil
}

func (r *GormSessionRepository) Finish(ctx context.Context, callControlID string, transcript domain.TranscriptEntries, state domain.SessionState) error {
	now := time.Now()
	updates := map[string]interface{}{
		"state":      state,
		"transcript": transcript,
		"ended_at":   &now,
	}
	if err := r.db.WithContext(ctx).Model(&domain.VoiceConversation{}).
		Where("call_control_id = ?", callControlID).Updates(updates).Error; err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}
