package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evopoliki/wabot/internal/modules/bot/models"
	"gorm.io/gorm"
)

// ErrPriceNotFound marks a catalog misconfiguration: the funnel asked for a
// price row nobody seeded.
var ErrPriceNotFound = errors.New("price not configured")

type CatalogRepo interface {
	GetCategories() ([]models.ProductCategory, error)
	GetCategoryByCode(code string) (*models.ProductCategory, error)
	GetOptionsForCategory(categoryID uint) ([]models.ProductOption, error)

	GetBrands() ([]models.Brand, error)
	GetBrandByName(name string) (*models.Brand, error)

	// GetModelsForBrand returns only models the tenant can actually serve,
	// i.e. models with at least one available pattern.
	GetModelsForBrand(tenantID uint, brandName, categoryCode string) ([]models.Model, error)

	// FindModel fuzzy-matches a model within a brand, preferring one whose
	// production years cover the given year (0 = don't care).
	FindModel(brandName, modelName string, year int) (*models.Model, error)

	// SearchPattern reports whether an available pattern exists for the
	// tenant, category and car. Not finding one is a valid outcome.
	SearchPattern(tenantID uint, categoryCode, brandName, modelName string, year int) (bool, error)

	GetBasePrice(tenantID uint, categoryCode, bodyTypeCode string) (float64, error)
	GetOptionPrice(tenantID uint, optionCode, bodyTypeCode string) (float64, error)
}

type catalogRepo struct {
	db *gorm.DB
}

func NewCatalogRepo(db *gorm.DB) CatalogRepo {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) GetCategories() ([]models.ProductCategory, error) {
	var categories []models.ProductCategory
	err := r.db.Where("active = ?", true).
		Order("sort_order, id").
		Find(&categories).Error
	return categories, err
}

func (r *catalogRepo) GetCategoryByCode(code string) (*models.ProductCategory, error) {
	var category models.ProductCategory
	err := r.db.First(&category, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *catalogRepo) GetOptionsForCategory(categoryID uint) ([]models.ProductOption, error) {
	var options []models.ProductOption
	err := r.db.Where("category_id = ?", categoryID).
		Order("sort_order, id").
		Find(&options).Error
	return options, err
}

func (r *catalogRepo) GetBrands() ([]models.Brand, error) {
	var brands []models.Brand
	err := r.db.Order("name").Find(&brands).Error
	return brands, err
}

func (r *catalogRepo) GetBrandByName(name string) (*models.Brand, error) {
	var brand models.Brand
	err := r.db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%").
		Order("name").
		First(&brand).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

func (r *catalogRepo) GetModelsForBrand(tenantID uint, brandName, categoryCode string) ([]models.Model, error) {
	brand, err := r.GetBrandByName(brandName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	query := r.db.Model(&models.Model{}).
		Distinct("models.*").
		Joins("JOIN patterns ON patterns.model_id = models.id").
		Where("models.brand_id = ?", brand.ID).
		Where("patterns.tenant_id = ? AND patterns.available = ?", tenantID, true)

	if categoryCode != "" {
		query = query.
			Joins("JOIN product_categories ON product_categories.id = patterns.category_id").
			Where("product_categories.code = ?", categoryCode)
	}

	var result []models.Model
	err = query.Order("models.name").Find(&result).Error
	return result, err
}

func (r *catalogRepo) FindModel(brandName, modelName string, year int) (*models.Model, error) {
	brand, err := r.GetBrandByName(brandName)
	if err != nil {
		return nil, err
	}

	needle := "%" + strings.ToLower(modelName) + "%"
	var candidates []models.Model
	err = r.db.Preload("BodyType").
		Where("brand_id = ?", brand.ID).
		Where("LOWER(name) LIKE ? OR LOWER(name_ru) LIKE ?", needle, needle).
		Order("name").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	// Prefer a generation covering the requested year, fall back to the
	// first name match so an out-of-range year still resolves the car.
	for i := range candidates {
		if candidates[i].CoversYear(year) {
			return &candidates[i], nil
		}
	}
	if len(candidates) > 0 {
		return &candidates[0], nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *catalogRepo) SearchPattern(tenantID uint, categoryCode, brandName, modelName string, year int) (bool, error) {
	category, err := r.GetCategoryByCode(categoryCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	model, err := r.FindModel(brandName, modelName, year)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	var count int64
	err = r.db.Model(&models.Pattern{}).
		Where("tenant_id = ? AND category_id = ? AND model_id = ? AND available = ?",
			tenantID, category.ID, model.ID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *catalogRepo) GetBasePrice(tenantID uint, categoryCode, bodyTypeCode string) (float64, error) {
	category, err := r.GetCategoryByCode(categoryCode)
	if err != nil {
		return 0, priceLookupErr("category", categoryCode, err)
	}

	query := r.db.Model(&models.Price{}).
		Where("tenant_id = ? AND category_id = ? AND option_id IS NULL", tenantID, category.ID)
	query = scopeBodyType(r.db, query, bodyTypeCode)

	var price models.Price
	if err := query.First(&price).Error; err != nil {
		return 0, priceLookupErr("base price", categoryCode, err)
	}
	return price.BasePrice, nil
}

func (r *catalogRepo) GetOptionPrice(tenantID uint, optionCode, bodyTypeCode string) (float64, error) {
	var option models.ProductOption
	if err := r.db.First(&option, "code = ?", optionCode).Error; err != nil {
		return 0, priceLookupErr("option", optionCode, err)
	}

	query := r.db.Model(&models.Price{}).
		Where("tenant_id = ? AND option_id = ? AND category_id IS NULL", tenantID, option.ID)
	query = scopeBodyType(r.db, query, bodyTypeCode)

	var price models.Price
	if err := query.First(&price).Error; err != nil {
		return 0, priceLookupErr("option price", optionCode, err)
	}
	return price.BasePrice, nil
}

// scopeBodyType narrows a price query to one body type, falling back to rows
// valid for all body types. A body-specific row wins over the generic one.
func scopeBodyType(db, query *gorm.DB, bodyTypeCode string) *gorm.DB {
	if bodyTypeCode == "" {
		return query.Where("body_type_id IS NULL")
	}

	var bodyType models.BodyType
	if err := db.First(&bodyType, "code = ?", bodyTypeCode).Error; err != nil {
		// Unknown body type behaves like "no body-specific row"
		return query.Where("body_type_id IS NULL")
	}
	return query.Where("body_type_id = ? OR body_type_id IS NULL", bodyType.ID).
		Order("body_type_id IS NULL")
}

func priceLookupErr(what, code string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %q", ErrPriceNotFound, what, code)
	}
	return err
}
