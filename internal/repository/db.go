// Package repository implements Postgres persistence for the bridge's
// config-plane (Agent, PromptVersion) and CRUD-plane (Contact, Campaign,
// CampaignContact, VoiceConversation) entities, via GORM, grounded on the
// teacher's GormRepositoryManager wiring.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Manager gives handlers and services access to every repository behind
// one dependency.
type Manager interface {
	Agent() AgentRepository
	PromptVersion() PromptVersionRepository
	Session() SessionRepository
	Contact() ContactRepository
	Campaign() CampaignRepository
	CampaignContact() CampaignContactRepository

	WithTx(ctx context.Context, fn func(ctx context.Context, repos Manager) error) error
	Ping(ctx context.Context) error
	Close() error
}

// GormManager implements Manager against a single Postgres connection.
type GormManager struct {
	db *gorm.DB

	agentRepo           *GormAgentRepository
	promptVersionRepo   *GormPromptVersionRepository
	sessionRepo         *GormSessionRepository
	contactRepo         *GormContactRepository
	campaignRepo        *GormCampaignRepository
	campaignContactRepo *GormCampaignContactRepository
}

// NewGormManager creates a Manager over db.
func NewGormManager(db *gorm.DB) *GormManager {
	return &GormManager{
		db:                  db,
		agentRepo:           NewGormAgentRepository(db),
		promptVersionRepo:   NewGormPromptVersionRepository(db),
		sessionRepo:         NewGormSessionRepository(db),
		contactRepo:         NewGormContactRepository(db),
		campaignRepo:        NewGormCampaignRepository(db),
		campaignContactRepo: NewGormCampaignContactRepository(db),
	}
}

func (m *GormManager) Agent() AgentRepository                     { return m.agentRepo }
func (m *GormManager) PromptVersion() PromptVersionRepository     { return m.promptVersionRepo }
func (m *GormManager) Session() SessionRepository                 { return m.sessionRepo }
func (m *GormManager) Contact() ContactRepository                 { return m.contactRepo }
func (m *GormManager) Campaign() CampaignRepository               { return m.campaignRepo }
func (m *GormManager) CampaignContact() CampaignContactRepository { return m.campaignContactRepo }

func (m *GormManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewGormManager(tx))
	})
}

func (m *GormManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *GormManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
