package repository

import (
	"context"
	"fmt"

	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// AgentRepository persists Agent config-plane rows.
type AgentRepository interface {
	Create(ctx context.Context, req *domain.CreateAgentRequest) (*domain.Agent, error)
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetAll(ctx context.Context) ([]*domain.Agent, error)
	Update(ctx context.Context, agent *domain.Agent) error
}

// GormAgentRepository implements AgentRepository using GORM, grounded on
// the teacher's GormVoiceAgentRepository (same Create/GetByID/GetAll/
// Update shape, generalized to the new Agent entity).
type GormAgentRepository struct {
	db *gorm.DB
}

func NewGormAgentRepository(db *gorm.DB) *GormAgentRepository {
	return &GormAgentRepository{db: db}
}

func (r *GormAgentRepository) Create(ctx context.Context, req *domain.CreateAgentRequest) (*domain.Agent, error) {
	agent := &domain.Agent{}
	if err := copier.Copy(agent, req); err != nil {
		return nil, fmt.Errorf("copy create agent request: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return agent, nil
}

func (r *GormAgentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("agent not found: %s", id)
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return &agent, nil
}

func (r *GormAgentRepository) GetAll(ctx context.Context) ([]*domain.Agent, error) {
	var agents []*domain.Agent
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

func (r *GormAgentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	if err := r.db.WithContext(ctx).Save(agent).Error; err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	return nil
}
