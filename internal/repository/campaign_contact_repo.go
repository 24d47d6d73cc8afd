package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignContactRepository persists and advances CampaignContact
// enrollment rows.
type CampaignContactRepository interface {
	Enroll(ctx context.Context, campaignID, contactID string) (*domain.CampaignContact, error)
	// NextBatch returns up to limit pending enrollments for campaignID,
	// locked against concurrent pickup by another pod (FOR UPDATE SKIP
	// LOCKED), mirroring the teacher's claim-a-row-for-exclusive-work
	// pattern used for session ownership.
	NextBatch(ctx context.Context, campaignID string, limit int) ([]*domain.CampaignContact, error)
	// FollowUpDue returns up to limit enrollments whose follow-up is due:
	// status sent or delivered, no reply received, next_follow_up_at in
	// the past, locked the same way as NextBatch.
	FollowUpDue(ctx context.Context, campaignID string, limit int) ([]*domain.CampaignContact, error)
	UpdateStatus(ctx context.Context, id string, status domain.CampaignContactStatus) error
	RecordAttempt(ctx context.Context, id, callControlID string) error
	// RecordSend sets status to sent, increments messages_sent and, when
	// nextFollowUpAt is non-nil, schedules the first follow-up.
	RecordSend(ctx context.Context, id string, nextFollowUpAt *time.Time) error
	// RecordFollowUp advances the follow-up chain: increments
	// follow_ups_sent and messages_sent, and reschedules next_follow_up_at
	// (nil terminates the chain).
	RecordFollowUp(ctx context.Context, id string, nextFollowUpAt *time.Time) error
	// MarkFailed sets status to failed and records reason for operator
	// visibility.
	MarkFailed(ctx context.Context, id string, reason string) error
	// HasOutstandingWork reports whether campaignID still has pending
	// enrollments or enrollments with a follow-up scheduled, used to
	// decide whether the campaign can transition to completed.
	HasOutstandingWork(ctx context.Context, campaignID string) (bool, error)
}

// GormCampaignContactRepository implements CampaignContactRepository.
type GormCampaignContactRepository struct {
	db *gorm.DB
}

func NewGormCampaignContactRepository(db *gorm.DB) *GormCampaignContactRepository {
	return &GormCampaignContactRepository{db: db}
}

func (r *GormCampaignContactRepository) Enroll(ctx context.Context, campaignID, contactID string) (*domain.CampaignContact, error) {
	cc := &domain.CampaignContact{
		CampaignID: campaignID,
		ContactID:  contactID,
		Status:     domain.ContactPending,
	}
	if err := r.db.WithContext(ctx).Create(cc).Error; err != nil {
		return nil, fmt.Errorf("enroll campaign contact: %w", err)
	}
	return cc, nil
}

func (r *GormCampaignContactRepository) NextBatch(ctx context.Context, campaignID string, limit int) ([]*domain.CampaignContact, error) {
	var contacts []*domain.CampaignContact
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("campaign_id = ? AND status = ?", campaignID, domain.ContactPending).
			Order("created_at ASC").
			Limit(limit).
			Find(&contacts).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim campaign contact batch: %w", err)
	}
	return contacts, nil
}

func (r *GormCampaignContactRepository) FollowUpDue(ctx context.Context, campaignID string, limit int) ([]*domain.CampaignContact, error) {
	var contacts []*domain.CampaignContact
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("campaign_id = ? AND status IN ? AND next_follow_up_at IS NOT NULL AND next_follow_up_at <= ?",
				campaignID, []domain.CampaignContactStatus{domain.ContactSent, domain.ContactDelivered}, time.Now()).
			Order("next_follow_up_at ASC").
			Limit(limit).
			Find(&contacts).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim follow-up due batch: %w", err)
	}
	return contacts, nil
}

func (r *GormCampaignContactRepository) UpdateStatus(ctx context.Context, id string, status domain.CampaignContactStatus) error {
	if err := r.db.WithContext(ctx).Model(&domain.CampaignContact{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("update campaign contact status: %w", err)
	}
	return nil
}

func (r *GormCampaignContactRepository) RecordSend(ctx context.Context, id string, nextFollowUpAt *time.Time) error {
	updates := map[string]interface{}{
		"status":            domain.ContactSent,
		"messages_sent":     gorm.Expr("messages_sent + 1"),
		"next_follow_up_at": nextFollowUpAt,
	}
	if err := r.db.WithContext(ctx).Model(&domain.CampaignContact{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("record campaign contact send: %w", err)
	}
	return nil
}

func (r *GormCampaignContactRepository) RecordFollowUp(ctx context.Context, id string, nextFollowUpAt *time.Time) error {
	updates := map[string]interface{}{
		"messages_sent":     gorm.Expr("messages_sent + 1"),
		"follow_ups_sent":   gorm.Expr("follow_ups_sent + 1"),
		"next_follow_up_at": nextFollowUpAt,
	}
	if err := r.db.WithContext(ctx).Model(&domain.CampaignContact{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("record campaign contact follow-up: %w", err)
	}
	return nil
}

func (r *GormCampaignContactRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	updates := map[string]interface{}{
		"status":     domain.ContactFailed,
		"last_error": reason,
	}
	if err := r.db.WithContext(ctx).Model(&domain.CampaignContact{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("mark campaign contact failed: %w", err)
	}
	return nil
}

func (r *GormCampaignContactRepository) HasOutstandingWork(ctx context.Context, campaignID string) (bool, error) {
	var pending int64
	if err := r.db.WithContext(ctx).Model(&domain.CampaignContact{}).
		Where("campaign_id = ? AND status = ?", campaignID, domain.ContactPending).
		Count(&pending).Error; err != nil {
		return false, fmt.Errorf("count pending campaign contacts: %w", err)
	}
	if pending > 0 {
		return true, nil
	}

	var scheduled int64
	if err := r.db.WithContext(ctx).Model(&domain.CampaignContact{}).
		Where("campaign_id = ? AND next_follow_up_at IS NOT NULL", campaignID).
		Count(&scheduled).Error; err != nil {
		return false, fmt.Errorf("count scheduled follow-ups: %w", err)
	}
	return scheduled > 0, nil
}

func (r *GormCampaignContactRepository) RecordAttempt(ctx context.Context, id, callControlID string) error {
	updates := map[string]interface{}{
		"attempts":        gorm.Expr("attempts + 1"),
		"last_attempt":    gorm.Expr("now()"),
		"call_control_id": callControlID,
		"status":          domain.ContactCalling,
	}
	if err := r.db.WithContext(ctx).Model(&domain.CampaignContact{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("record campaign contact attempt: %w", err)
	}
	return nil
}
