package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Tenant is a row in the catalog database. The runtime tenant registry is
// environment-driven; this row only anchors the tenant-scoped catalog data
// (prices, patterns) through its numeric ID.
type Tenant struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Name string `gorm:"size:255;not null" json:"name"`

	Contacts datatypes.JSON `gorm:"type:json" json:"contacts,omitempty"`
	Settings datatypes.JSON `gorm:"type:json" json:"settings,omitempty"`

	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// Brand is a car make. Global reference data shared by all tenants.
type Brand struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	NameRu    string    `gorm:"size:100" json:"name_ru,omitempty"`
	Slug      string    `gorm:"size:100;uniqueIndex" json:"slug"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Models []Model `gorm:"foreignKey:BrandID" json:"models,omitempty"`
}

func (Brand) TableName() string {
	return "brands"
}

// BodyType drives base prices and option applicability (sedan, suv, ...).
type BodyType struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Code      string `gorm:"size:50;uniqueIndex;not null" json:"code"`
	NameRu    string `gorm:"size:100;not null" json:"name_ru"`
	SortOrder int    `gorm:"default:0" json:"sort_order"`
}

func (BodyType) TableName() string {
	return "body_types"
}

// Model is a car model with its production year range and body type.
type Model struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	BrandID uint   `gorm:"not null;index" json:"brand_id"`
	Name    string `gorm:"size:100;not null" json:"name"`
	NameRu  string `gorm:"size:100" json:"name_ru,omitempty"`

	YearFrom *int `json:"year_from,omitempty"`
	YearTo   *int `json:"year_to,omitempty"` // nil = still in production

	BodyTypeID *uint          `gorm:"index" json:"body_type_id,omitempty"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:json" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Brand    *Brand    `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	BodyType *BodyType `gorm:"foreignKey:BodyTypeID" json:"body_type,omitempty"`
}

func (Model) TableName() string {
	return "models"
}

// CoversYear reports whether the given production year falls in this model's
// range. Zero year (not asked) always matches.
func (m *Model) CoversYear(year int) bool {
	if year == 0 {
		return true
	}
	if m.YearFrom != nil && year < *m.YearFrom {
		return false
	}
	if m.YearTo != nil && year > *m.YearTo {
		return false
	}
	return true
}

// DisplayName renders "Camry (2018-2023)" for menus.
func (m *Model) DisplayName() string {
	if m.YearFrom == nil {
		return m.Name
	}
	to := "..."
	if m.YearTo != nil {
		to = fmt.Sprintf("%d", *m.YearTo)
	}
	return fmt.Sprintf("%s (%d-%s)", m.Name, *m.YearFrom, to)
}

// ProductCategory is what the tenant sells (eva_mats, seat_covers, ...).
type ProductCategory struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Code          string `gorm:"size:50;uniqueIndex;not null" json:"code"`
	NameRu        string `gorm:"size:255;not null" json:"name_ru"`
	DescriptionRu string `gorm:"type:text" json:"description_ru,omitempty"`
	SortOrder     int    `gorm:"default:0" json:"sort_order"`
	Active        bool   `gorm:"default:true" json:"active"`

	Options []ProductOption `gorm:"foreignKey:CategoryID" json:"options,omitempty"`
}

func (ProductCategory) TableName() string {
	return "product_categories"
}

// ProductOption modifies a category's price or configuration
// (with_borders, third_row, ...).
type ProductOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CategoryID uint   `gorm:"not null;index;uniqueIndex:uq_option_category_code" json:"category_id"`
	Code       string `gorm:"size:50;not null;uniqueIndex:uq_option_category_code" json:"code"`
	NameRu     string `gorm:"size:255;not null" json:"name_ru"`

	// boolean | choice | addon
	OptionType string `gorm:"size:20;not null" json:"option_type"`

	AllowedValues datatypes.JSON `gorm:"type:json" json:"allowed_values,omitempty"`
	ApplicableTo  datatypes.JSON `gorm:"type:json" json:"applicable_to,omitempty"`

	SortOrder int `gorm:"default:0" json:"sort_order"`
}

func (ProductOption) TableName() string {
	return "product_options"
}

// Price holds a tenant-scoped base or option price, optionally specialized by
// body type. Exactly one of CategoryID/OptionID is set; the constraint lives
// in the migration.
type Price struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	TenantID uint `gorm:"not null;index" json:"tenant_id"`

	CategoryID *uint `gorm:"index" json:"category_id,omitempty"`
	OptionID   *uint `gorm:"index" json:"option_id,omitempty"`
	BodyTypeID *uint `json:"body_type_id,omitempty"` // nil = all body types

	BasePrice float64 `gorm:"type:decimal(10,2);not null" json:"base_price"`
	Currency  string  `gorm:"size:3;default:'KGS'" json:"currency"`

	ValidFrom time.Time  `gorm:"autoCreateTime" json:"valid_from"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Price) TableName() string {
	return "prices"
}

// Pattern records whether the tenant can manufacture a category for a model.
// Unique per (tenant, category, model).
type Pattern struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	TenantID   uint `gorm:"not null;uniqueIndex:uq_pattern_tenant_category_model" json:"tenant_id"`
	CategoryID uint `gorm:"not null;uniqueIndex:uq_pattern_tenant_category_model" json:"category_id"`
	ModelID    uint `gorm:"not null;index;uniqueIndex:uq_pattern_tenant_category_model" json:"model_id"`

	Available bool   `gorm:"default:true" json:"available"`
	Notes     string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Model *Model `gorm:"foreignKey:ModelID" json:"model,omitempty"`
}

func (Pattern) TableName() string {
	return "patterns"
}
