package repository

import (
	"context"
	"fmt"

	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
	"gorm.io/gorm"
)

// PromptVersionRepository persists the bandit arms (PromptVersion rows)
// belonging to an Agent.
type PromptVersionRepository interface {
	Create(ctx context.Context, pv *domain.PromptVersion) error
	GetByID(ctx context.Context, id string) (*domain.PromptVersion, error)
	GetActiveByAgentID(ctx context.Context, agentID string) ([]*domain.PromptVersion, error)
	GetAllByAgentID(ctx context.Context, agentID string) ([]*domain.PromptVersion, error)
	// RecordOutcome atomically increments the call counters and, when a
	// reward occurred, the reward count and bandit alpha/beta, grounded
	// on the teacher's update-by-primary-key pattern.
	RecordOutcome(ctx context.Context, id string, booked bool) error
	SetArmStatus(ctx context.Context, id string, status domain.ArmStatus) error
}

// GormPromptVersionRepository implements PromptVersionRepository.
type GormPromptVersionRepository struct {
	db *gorm.DB
}

func NewGormPromptVersionRepository(db *gorm.DB) *GormPromptVersionRepository {
	return &GormPromptVersionRepository{db: db}
}

func (r *GormPromptVersionRepository) Create(ctx context.Context, pv *domain.PromptVersion) error {
	if err := r.db.WithContext(ctx).Create(pv).Error; err != nil {
		return fmt.Errorf("create prompt version: %w", err)
	}
	return nil
}

func (r *GormPromptVersionRepository) GetByID(ctx context.Context, id string) (*domain.PromptVersion, error) {
	var pv domain.PromptVersion
	if err := r.db.WithContext(ctx).First(&pv, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("prompt version not found: %s", id)
		}
		return nil, fmt.Errorf("get prompt version: %w", err)
	}
	return &pv, nil
}

func (r *GormPromptVersionRepository) GetActiveByAgentID(ctx context.Context, agentID string) ([]*domain.PromptVersion, error) {
	var versions []*domain.PromptVersion
	if err := r.db.WithContext(ctx).
		Where("agent_id = ? AND arm_status = ?", agentID, domain.ArmActive).
		Order("version_number ASC").Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("list active prompt versions: %w", err)
	}
	return versions, nil
}

func (r *GormPromptVersionRepository) GetAllByAgentID(ctx context.Context, agentID string) ([]*domain.PromptVersion, error) {
	var versions []*domain.PromptVersion
	if err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("version_number ASC").Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("list prompt versions: %w", err)
	}
	return versions, nil
}

func (r *GormPromptVersionRepository) RecordOutcome(ctx context.Context, id string, booked bool) error {
	updates := map[string]interface{}{
		"total_calls": gorm.Expr("total_calls + 1"),
	}
	if booked {
		updates["successful_calls"] = gorm.Expr("successful_calls + 1")
		updates["booked_appointments"] = gorm.Expr("booked_appointments + 1")
		updates["reward_count"] = gorm.Expr("reward_count + 1")
		updates["bandit_alpha"] = gorm.Expr("bandit_alpha + 1")
	} else {
		updates["bandit_beta"] = gorm.Expr("bandit_beta + 1")
		updates["reward_count"] = gorm.Expr("reward_count + 1")
	}
	if err := r.db.WithContext(ctx).Model(&domain.PromptVersion{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("record prompt version outcome: %w", err)
	}
	return nil
}

func (r *GormPromptVersionRepository) SetArmStatus(ctx context.Context, id string, status domain.ArmStatus) error {
	if err := r.db.WithContext(ctx).Model(&domain.PromptVersion{}).Where("id = ?", id).Update("arm_status", status).Error; err != nil {
		return fmt.Errorf("set prompt version arm status: %w", err)
	}
	return nil
}
