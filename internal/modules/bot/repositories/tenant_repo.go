package repositories

import (
	"github.com/evopoliki/wabot/internal/modules/bot/models"
	"gorm.io/gorm"
)

type TenantRepo interface {
	GetBySlug(slug string) (*models.Tenant, error)
	List() ([]models.Tenant, error)
}

type tenantRepo struct {
	db *gorm.DB
}

func NewTenantRepo(db *gorm.DB) TenantRepo {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) GetBySlug(slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.First(&tenant, "slug = ? AND active = ?", slug, true).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepo) List() ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.Where("active = ?", true).Order("id").Find(&tenants).Error
	return tenants, err
}
