package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/evopoliki/wabot/internal/core/airtable"
	"github.com/evopoliki/wabot/internal/core/session"
	"github.com/evopoliki/wabot/internal/core/tenant"
	"github.com/evopoliki/wabot/internal/modules/bot/repositories"
)

// ToolService executes the operations the assistant (and the IVR funnel) can
// request: catalog reads, pattern lookup, price calculation and lead creation.
// Every result is a string the assistant can relay; failures never surface as
// errors to the run.
type ToolService struct {
	tenant   *tenant.Tenant
	catalog  repositories.CatalogRepo
	airtable *airtable.Client
}

func NewToolService(t *tenant.Tenant, catalog repositories.CatalogRepo, at *airtable.Client) *ToolService {
	return &ToolService{tenant: t, catalog: catalog, airtable: at}
}

// PriceBreakdown is what calculate_price returns on success.
type PriceBreakdown struct {
	TotalPrice   float64            `json:"total_price"`
	BasePrice    float64            `json:"base_price"`
	OptionsPrice float64            `json:"options_price"`
	Breakdown    map[string]float64 `json:"breakdown"`
}

// Execute dispatches one named tool call. Unknown names come back as an error
// string so the assistant can recover instead of the run dying.
func (s *ToolService) Execute(ctx context.Context, name string, args json.RawMessage, sess *session.Session) string {
	log.Printf("🔧 [TOOL] [%s] %s(%s)", s.tenant.Slug, name, compactArgs(args))

	switch name {
	case "get_available_categories":
		return s.availableCategories()
	case "get_available_brands":
		return s.availableBrands()
	case "get_available_models":
		return s.availableModels(args)
	case "search_patterns":
		return s.searchPatterns(args, sess)
	case "calculate_price":
		return s.calculatePrice(args, sess)
	case "create_airtable_lead":
		return s.createLead(ctx, args, sess)
	default:
		log.Printf("⚠️ [TOOL] [%s] Unknown tool %q", s.tenant.Slug, name)
		return fmt.Sprintf("ERROR: unknown tool %q", name)
	}
}

func (s *ToolService) availableCategories() string {
	categories, err := s.catalog.GetCategories()
	if err != nil {
		log.Printf("❌ [TOOL] [%s] get_available_categories: %v", s.tenant.Slug, err)
		return "ERROR: failed to load categories"
	}

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.NameRu)
	}
	return jsonList(names)
}

func (s *ToolService) availableBrands() string {
	brands, err := s.catalog.GetBrands()
	if err != nil {
		log.Printf("❌ [TOOL] [%s] get_available_brands: %v", s.tenant.Slug, err)
		return "ERROR: failed to load brands"
	}

	names := make([]string, 0, len(brands))
	for _, b := range brands {
		names = append(names, b.Name)
	}
	return jsonList(names)
}

func (s *ToolService) availableModels(args json.RawMessage) string {
	var in struct {
		BrandName    string `json:"brand_name"`
		CategoryCode string `json:"category_code"`
	}
	if err := json.Unmarshal(args, &in); err != nil || in.BrandName == "" {
		return "ERROR: invalid arguments"
	}

	models, err := s.catalog.GetModelsForBrand(s.tenant.CatalogID, in.BrandName, in.CategoryCode)
	if err != nil {
		log.Printf("❌ [TOOL] [%s] get_available_models: %v", s.tenant.Slug, err)
		return "ERROR: failed to load models"
	}
	if models == nil {
		return fmt.Sprintf("ERROR: brand %q not found", in.BrandName)
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.DisplayName())
	}
	return jsonList(names)
}

func (s *ToolService) searchPatterns(args json.RawMessage, sess *session.Session) string {
	var in struct {
		BrandName    string `json:"brand_name"`
		ModelName    string `json:"model_name"`
		CategoryCode string `json:"category_code"`
		Year         int    `json:"year"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "NOT_FOUND"
	}

	found, err := s.catalog.SearchPattern(s.tenant.CatalogID, in.CategoryCode, in.BrandName, in.ModelName, in.Year)
	if err != nil {
		log.Printf("❌ [TOOL] [%s] search_patterns: %v", s.tenant.Slug, err)
		return "NOT_FOUND"
	}

	sess.Draft.CategoryCode = in.CategoryCode
	sess.Draft.Brand = in.BrandName
	sess.Draft.Model = in.ModelName
	if in.Year > 0 {
		sess.Draft.Year = in.Year
	}
	sess.Draft.PatternFound = found

	if found {
		log.Printf("✅ [TOOL] [%s] Patterns found for %s %s", s.tenant.Slug, in.BrandName, in.ModelName)
		return "FOUND"
	}
	log.Printf("⚠️ [TOOL] [%s] No patterns for %s %s", s.tenant.Slug, in.BrandName, in.ModelName)
	return "NOT_FOUND"
}

func (s *ToolService) calculatePrice(args json.RawMessage, sess *session.Session) string {
	var in struct {
		BrandName    string          `json:"brand_name"`
		ModelName    string          `json:"model_name"`
		CategoryCode string          `json:"category_code"`
		Options      map[string]bool `json:"options"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "ERROR: invalid arguments"
	}

	breakdown, err := s.Price(in.CategoryCode, in.BrandName, in.ModelName, in.Options)
	if err != nil {
		if errors.Is(err, repositories.ErrPriceNotFound) {
			log.Printf("⚠️ [TOOL] [%s] No price configured for %s: %v", s.tenant.Slug, in.CategoryCode, err)
			return "ERROR: price is not configured for this combination, ask the client to contact the manager"
		}
		log.Printf("❌ [TOOL] [%s] calculate_price: %v", s.tenant.Slug, err)
		return "ERROR: failed to calculate price"
	}

	sess.Draft.BasePrice = breakdown.BasePrice
	sess.Draft.OptionsPrice = breakdown.OptionsPrice
	sess.Draft.TotalPrice = breakdown.TotalPrice

	out, err := json.Marshal(breakdown)
	if err != nil {
		return "ERROR: failed serializing price"
	}
	log.Printf("💰 [TOOL] [%s] Price calculated: %.0f", s.tenant.Slug, breakdown.TotalPrice)
	return string(out)
}

// Price computes base + option deltas for the car's body type. The IVR funnel
// calls this directly, the assistant goes through calculate_price.
func (s *ToolService) Price(categoryCode, brandName, modelName string, options map[string]bool) (*PriceBreakdown, error) {
	bodyTypeCode := ""
	if model, err := s.catalog.FindModel(brandName, modelName, 0); err == nil && model.BodyType != nil {
		bodyTypeCode = model.BodyType.Code
	}

	base, err := s.catalog.GetBasePrice(s.tenant.CatalogID, categoryCode, bodyTypeCode)
	if err != nil {
		return nil, err
	}

	breakdown := &PriceBreakdown{
		BasePrice: base,
		Breakdown: map[string]float64{},
	}
	for code, selected := range options {
		if !selected {
			breakdown.Breakdown[code] = 0
			continue
		}
		delta, err := s.catalog.GetOptionPrice(s.tenant.CatalogID, code, bodyTypeCode)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", code, err)
		}
		breakdown.Breakdown[code] = delta
		breakdown.OptionsPrice += delta
	}

	breakdown.TotalPrice = breakdown.BasePrice + breakdown.OptionsPrice
	return breakdown, nil
}

func (s *ToolService) createLead(ctx context.Context, args json.RawMessage, sess *session.Session) string {
	var in struct {
		ClientName   string  `json:"client_name"`
		CategoryName string  `json:"category_name"`
		BrandName    string  `json:"brand_name"`
		ModelName    string  `json:"model_name"`
		Options      string  `json:"options"`
		Price        float64 `json:"price"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "ERROR: invalid arguments"
	}

	recordID, err := s.SubmitLead(ctx, airtable.Lead{
		Name:     in.ClientName,
		Phone:    PhoneFromChatID(sess.ChatID),
		Username: sess.ChatID,
		Category: in.CategoryName,
		CarBrand: in.BrandName,
		CarModel: in.ModelName,
		Options:  in.Options,
		Price:    in.Price,
	})
	if err != nil {
		log.Printf("❌ [TOOL] [%s] create_airtable_lead: %v", s.tenant.Slug, err)
		return "Произошла ошибка при сохранении заявки. Сообщи клиенту о технической проблеме и попроси связаться с менеджером напрямую."
	}

	sess.Draft.ContactName = in.ClientName
	log.Printf("✅ [TOOL] [%s] Lead created, record %s", s.tenant.Slug, recordID)
	return fmt.Sprintf("Заявка успешно создана с ID %s. Сообщи клиенту, что все готово и менеджер скоро свяжется с ним для подтверждения заказа.", recordID)
}

// SubmitLead pushes a lead into the tenant's Airtable base. Also used by the
// IVR funnel at the confirmation step.
func (s *ToolService) SubmitLead(ctx context.Context, lead airtable.Lead) (string, error) {
	if s.airtable == nil || !s.airtable.Configured() {
		return "", fmt.Errorf("airtable is not configured for tenant %s", s.tenant.Slug)
	}
	return s.airtable.CreateLead(ctx, lead)
}

// PhoneFromChatID extracts the client phone from a WhatsApp chat ID,
// "996555123456@c.us" becomes "+996555123456".
func PhoneFromChatID(chatID string) string {
	number, _, _ := strings.Cut(chatID, "@")
	if number == "" {
		return ""
	}
	return "+" + number
}

func jsonList(items []string) string {
	out, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(out)
}

func compactArgs(args json.RawMessage) string {
	s := string(args)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
