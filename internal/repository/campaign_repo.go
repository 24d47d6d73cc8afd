package repository

import (
	"context"
	"fmt"

	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
	"gorm.io/gorm"
)

// CampaignRepository persists Campaign rows.
type CampaignRepository interface {
	Create(ctx context.Context, req *domain.CreateCampaignRequest) (*domain.Campaign, error)
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
	GetRunning(ctx context.Context) ([]*domain.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error
}

// GormCampaignRepository implements CampaignRepository.
type GormCampaignRepository struct {
	db *gorm.DB
}

func NewGormCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

func (r *GormCampaignRepository) Create(ctx context.Context, req *domain.CreateCampaignRequest) (*domain.Campaign, error) {
	c := &domain.Campaign{
		Workspace:       req.Workspace,
		Name:            req.Name,
		Type:            req.Type,
		AgentID:         req.AgentID,
		MessageTemplate: req.MessageTemplate,
		Status:          domain.CampaignDraft,
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return c, nil
}

func (r *GormCampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	var c domain.Campaign
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("campaign not found: %s", id)
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &c, nil
}

func (r *GormCampaignRepository) GetRunning(ctx context.Context) ([]*domain.Campaign, error) {
	var campaigns []*domain.Campaign
	if err := r.db.WithContext(ctx).Where("status = ?", domain.CampaignRunning).Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("list running campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *GormCampaignRepository) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	if err := r.db.WithContext(ctx).Model(&domain.Campaign{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	return nil
}
