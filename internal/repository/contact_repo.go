package repository

import (
	"context"
	"fmt"

	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// ContactRepository persists Contact rows, grounded on the teacher's
// GormVoiceTenantRepository's Create/GetByID/Exists shape.
type ContactRepository interface {
	Create(ctx context.Context, req *domain.CreateContactRequest) (*domain.Contact, error)
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
	GetByWorkspaceAndPhone(ctx context.Context, workspace, phone string) (*domain.Contact, error)
	MarkOptedOut(ctx context.Context, id string) error
	IsOptedOut(ctx context.Context, workspace, phone string) (bool, error)
}

// GormContactRepository implements ContactRepository.
type GormContactRepository struct {
	db *gorm.DB
}

func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

func (r *GormContactRepository) Create(ctx context.Context, req *domain.CreateContactRequest) (*domain.Contact, error) {
	contact := &domain.Contact{}
	if err := copier.Copy(contact, req); err != nil {
		return nil, fmt.Errorf("copy create contact request: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return contact, nil
}

func (r *GormContactRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	var contact domain.Contact
	if err := r.db.WithContext(ctx).First(&contact, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("contact not found: %s", id)
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return &contact, nil
}

func (r *GormContactRepository) GetByWorkspaceAndPhone(ctx context.Context, workspace, phone string) (*domain.Contact, error) {
	var contact domain.Contact
	if err := r.db.WithContext(ctx).First(&contact, "workspace = ? AND phone = ?", workspace, phone).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("contact not found: %s/%s", workspace, phone)
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return &contact, nil
}

func (r *GormContactRepository) MarkOptedOut(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Model(&domain.Contact{}).Where("id = ?", id).Update("opted_out", true).Error; err != nil {
		return fmt.Errorf("mark contact opted out: %w", err)
	}
	return nil
}

func (r *GormContactRepository) IsOptedOut(ctx context.Context, workspace, phone string) (bool, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).Select("opted_out").First(&contact, "workspace = ? AND phone = ?", workspace, phone).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check contact opt-out: %w", err)
	}
	return contact.OptedOut, nil
}
