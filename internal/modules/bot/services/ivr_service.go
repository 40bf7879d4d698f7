package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/evopoliki/wabot/internal/core/airtable"
	"github.com/evopoliki/wabot/internal/core/i18n"
	"github.com/evopoliki/wabot/internal/core/session"
	"github.com/evopoliki/wabot/internal/core/tenant"
	"github.com/evopoliki/wabot/internal/modules/bot/repositories"
)

// brandPageSize is how many brands one menu page shows. Sentinels 0 and 9
// page backwards and forwards, so digits 1..8 stay free for selection.
const brandPageSize = 8

// IVRService walks a conversation through the numbered order funnel:
// category, brand, model, year, options, contacts, lead. Every reply comes
// from the tenant's locale bundle.
type IVRService struct {
	tenant  *tenant.Tenant
	texts   *i18n.Bundle
	catalog repositories.CatalogRepo
	tools   *ToolService
}

func NewIVRService(t *tenant.Tenant, catalog repositories.CatalogRepo, tools *ToolService) *IVRService {
	return &IVRService{tenant: t, texts: t.Texts, catalog: catalog, tools: tools}
}

// Handle advances the funnel one step for the given input and returns the
// reply text. The caller holds the conversation lock.
func (s *IVRService) Handle(ctx context.Context, sess *session.Session, text string) string {
	input := strings.TrimSpace(text)

	switch sess.State {
	case session.StateIdle:
		return s.greet(sess)
	case session.StateMainMenu:
		return s.handleMainMenu(sess, input)
	case session.StateCategorySelected, session.StateBrandPagination:
		return s.handleBrandList(sess, input)
	case session.StateBrandSelected:
		return s.handleBrandConfirm(sess, input)
	case session.StateModelInput:
		return s.handleModel(sess, input)
	case session.StateYearInput:
		return s.handleYear(sess, input)
	case session.StateOptionsInput:
		return s.handleOptions(sess, input)
	case session.StateContactName:
		return s.handleName(sess, input)
	case session.StateContactPhone:
		return s.handlePhone(ctx, sess, input)
	case session.StateConfirmed:
		sess.ResetFunnel()
		return s.renderMainMenu(sess, s.texts.Get("greeting.return"))
	default:
		log.Printf("⚠️ [IVR] [%s] Unknown state %q for %s, resetting", s.tenant.Slug, sess.State, sess.ChatID)
		sess.ResetFunnel()
		return s.renderMainMenu(sess, s.texts.Get("greeting.return"))
	}
}

// ShowMainMenu resets the funnel and renders the menu. The webhook service
// calls this when a menu keyword arrives.
func (s *IVRService) ShowMainMenu(sess *session.Session) string {
	sess.ResetFunnel()
	return s.renderMainMenu(sess, s.texts.Get("greeting.return"))
}

func (s *IVRService) greet(sess *session.Session) string {
	sess.State = session.StateMainMenu
	return s.renderMainMenu(sess, s.texts.Get("greeting.first"))
}

func (s *IVRService) renderMainMenu(sess *session.Session, header string) string {
	categories, err := s.catalog.GetCategories()
	if err != nil || len(categories) == 0 {
		log.Printf("❌ [IVR] [%s] Failed to load categories: %v", s.tenant.Slug, err)
		return s.texts.Get("error.generic")
	}

	sess.Menu.Categories = sess.Menu.Categories[:0]
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(s.texts.Get("menu.header"))
	b.WriteString("\n")
	b.WriteString(s.texts.Get("menu.category_prompt"))
	b.WriteString("\n")
	for i, c := range categories {
		sess.Menu.Categories = append(sess.Menu.Categories, session.MenuItem{Code: c.Code, Name: c.NameRu})
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.NameRu)
	}
	b.WriteString("\n")
	b.WriteString(s.texts.Get("menu.footer"))
	return b.String()
}

func (s *IVRService) handleMainMenu(sess *session.Session, input string) string {
	idx, ok := menuChoice(input, len(sess.Menu.Categories))
	if !ok {
		return s.texts.Get("ivr.invalid_input")
	}

	item := sess.Menu.Categories[idx]
	sess.Draft.CategoryCode = item.Code
	sess.Draft.CategoryName = item.Name

	brands, err := s.catalog.GetBrands()
	if err != nil || len(brands) == 0 {
		log.Printf("❌ [IVR] [%s] Failed to load brands: %v", s.tenant.Slug, err)
		return s.texts.Get("error.generic")
	}

	sess.Menu.Brands = sess.Menu.Brands[:0]
	for _, brand := range brands {
		sess.Menu.Brands = append(sess.Menu.Brands, brand.Name)
	}
	sess.Menu.BrandPage = 0
	sess.State = session.StateCategorySelected
	return s.renderBrandPage(sess)
}

func (s *IVRService) renderBrandPage(sess *session.Session) string {
	total := len(sess.Menu.Brands)
	pages := (total + brandPageSize - 1) / brandPageSize
	if sess.Menu.BrandPage >= pages {
		sess.Menu.BrandPage = pages - 1
	}

	start := sess.Menu.BrandPage * brandPageSize
	end := start + brandPageSize
	if end > total {
		end = total
	}

	var b strings.Builder
	b.WriteString(s.texts.Get("ivr.brand_prompt",
		"page", strconv.Itoa(sess.Menu.BrandPage+1),
		"pages", strconv.Itoa(pages)))
	b.WriteString("\n")
	for i, name := range sess.Menu.Brands[start:end] {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	if pages > 1 {
		b.WriteString("\n")
		b.WriteString(s.texts.Get("ivr.brand_nav"))
	}
	return b.String()
}

func (s *IVRService) handleBrandList(sess *session.Session, input string) string {
	total := len(sess.Menu.Brands)
	pages := (total + brandPageSize - 1) / brandPageSize

	switch input {
	case "0":
		if sess.Menu.BrandPage > 0 {
			sess.Menu.BrandPage--
		}
		sess.State = session.StateBrandPagination
		return s.renderBrandPage(sess)
	case "9":
		if sess.Menu.BrandPage < pages-1 {
			sess.Menu.BrandPage++
		}
		sess.State = session.StateBrandPagination
		return s.renderBrandPage(sess)
	}

	start := sess.Menu.BrandPage * brandPageSize
	end := start + brandPageSize
	if end > total {
		end = total
	}

	idx, ok := menuChoice(input, end-start)
	if !ok {
		return s.texts.Get("ivr.invalid_input")
	}

	sess.Menu.PendingBrand = sess.Menu.Brands[start+idx]
	sess.State = session.StateBrandSelected
	return s.texts.Get("ivr.brand_confirm", "brand", sess.Menu.PendingBrand)
}

func (s *IVRService) handleBrandConfirm(sess *session.Session, input string) string {
	switch input {
	case "1":
		sess.Draft.Brand = sess.Menu.PendingBrand
		sess.Menu.PendingBrand = ""
		sess.State = session.StateModelInput
		return s.texts.Get("ivr.model_prompt")
	case "2":
		sess.Menu.PendingBrand = ""
		sess.State = session.StateBrandPagination
		return s.renderBrandPage(sess)
	default:
		return s.texts.Get("ivr.invalid_input")
	}
}

func (s *IVRService) handleModel(sess *session.Session, input string) string {
	if input == "" {
		return s.texts.Get("ivr.invalid_input")
	}

	sess.Draft.Model = input
	sess.State = session.StateYearInput
	return s.texts.Get("ivr.year_prompt")
}

func (s *IVRService) handleYear(sess *session.Session, input string) string {
	year, err := strconv.Atoi(input)
	if err != nil || year < 1950 || year > time.Now().Year()+1 {
		return s.texts.Get("ivr.year_invalid")
	}
	sess.Draft.Year = year

	found, err := s.catalog.SearchPattern(s.tenant.CatalogID,
		sess.Draft.CategoryCode, sess.Draft.Brand, sess.Draft.Model, year)
	if err != nil {
		log.Printf("❌ [IVR] [%s] Pattern search failed: %v", s.tenant.Slug, err)
		return s.texts.Get("error.generic")
	}
	sess.Draft.PatternFound = found

	if !found {
		log.Printf("🔍 [IVR] [%s] No patterns for %s %s, offering manual measure", s.tenant.Slug, sess.Draft.Brand, sess.Draft.Model)
		sess.State = session.StateContactName
		return s.texts.Get("ivr.pattern_not_found",
			"brand", sess.Draft.Brand,
			"model", sess.Draft.Model,
			"category", sess.Draft.CategoryName) +
			"\n\n" + s.texts.Get("ivr.name_prompt")
	}

	reply := s.texts.Get("ivr.pattern_found",
		"brand", sess.Draft.Brand,
		"model", sess.Draft.Model)

	options := s.loadOptions(sess)
	if len(options) == 0 {
		// Nothing to choose, price and move straight to contacts
		return reply + "\n\n" + s.finishOptions(sess)
	}

	sess.State = session.StateOptionsInput
	return reply + "\n\n" + s.renderOptions(sess)
}

func (s *IVRService) loadOptions(sess *session.Session) []session.MenuItem {
	category, err := s.catalog.GetCategoryByCode(sess.Draft.CategoryCode)
	if err != nil {
		log.Printf("❌ [IVR] [%s] Category %q vanished: %v", s.tenant.Slug, sess.Draft.CategoryCode, err)
		return nil
	}

	options, err := s.catalog.GetOptionsForCategory(category.ID)
	if err != nil {
		log.Printf("❌ [IVR] [%s] Failed to load options: %v", s.tenant.Slug, err)
		return nil
	}

	sess.Menu.Options = sess.Menu.Options[:0]
	for _, option := range options {
		sess.Menu.Options = append(sess.Menu.Options, session.MenuItem{Code: option.Code, Name: option.NameRu})
	}
	return sess.Menu.Options
}

func (s *IVRService) renderOptions(sess *session.Session) string {
	var b strings.Builder
	b.WriteString(s.texts.Get("ivr.options_prompt", "category", sess.Draft.CategoryName))
	b.WriteString("\n")
	for i, option := range sess.Menu.Options {
		mark := ""
		if sess.Draft.Options[option.Code] {
			mark = " ✅"
		}
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, option.Name, mark)
	}
	b.WriteString("\n")
	b.WriteString(s.texts.Get("ivr.options_done"))
	return b.String()
}

func (s *IVRService) handleOptions(sess *session.Session, input string) string {
	if input == "0" {
		return s.finishOptions(sess)
	}

	idx, ok := menuChoice(input, len(sess.Menu.Options))
	if !ok {
		return s.texts.Get("ivr.invalid_input")
	}

	if sess.Draft.Options == nil {
		sess.Draft.Options = map[string]bool{}
	}
	code := sess.Menu.Options[idx].Code
	sess.Draft.Options[code] = !sess.Draft.Options[code]
	return s.renderOptions(sess)
}

// finishOptions prices the draft and moves on to contact collection. A
// missing price row is reported but does not kill the funnel: the manager
// quotes manually.
func (s *IVRService) finishOptions(sess *session.Session) string {
	sess.State = session.StateContactName

	breakdown, err := s.tools.Price(sess.Draft.CategoryCode, sess.Draft.Brand, sess.Draft.Model, sess.Draft.Options)
	if err != nil {
		log.Printf("⚠️ [IVR] [%s] Price unavailable for %s: %v", s.tenant.Slug, sess.Draft.CategoryCode, err)
		return s.texts.Get("error.generic") + "\n\n" + s.texts.Get("ivr.name_prompt")
	}

	sess.Draft.BasePrice = breakdown.BasePrice
	sess.Draft.OptionsPrice = breakdown.OptionsPrice
	sess.Draft.TotalPrice = breakdown.TotalPrice

	summary := s.texts.Get("ivr.price_summary",
		"total", formatPrice(breakdown.TotalPrice),
		"base", formatPrice(breakdown.BasePrice),
		"options", formatPrice(breakdown.OptionsPrice))
	return summary + "\n\n" + s.texts.Get("ivr.name_prompt")
}

func (s *IVRService) handleName(sess *session.Session, input string) string {
	if input == "" {
		return s.texts.Get("ivr.invalid_input")
	}

	sess.Draft.ContactName = input
	sess.State = session.StateContactPhone
	return s.texts.Get("ivr.phone_prompt")
}

func (s *IVRService) handlePhone(ctx context.Context, sess *session.Session, input string) string {
	phone, ok := normalizePhone(input)
	if !ok {
		return s.texts.Get("ivr.phone_invalid")
	}
	sess.Draft.ContactPhone = phone

	if _, err := s.tools.SubmitLead(ctx, s.leadFromDraft(sess)); err != nil {
		log.Printf("❌ [IVR] [%s] Lead submission failed for %s: %v", s.tenant.Slug, sess.ChatID, err)
		return s.texts.Get("ivr.lead_failed")
	}

	log.Printf("✅ [IVR] [%s] Lead created for %s (%s %s)", s.tenant.Slug, sess.ChatID, sess.Draft.Brand, sess.Draft.Model)
	sess.State = session.StateConfirmed
	return s.texts.Get("ivr.confirmed", "name", sess.Draft.ContactName) +
		"\n\n" + s.texts.Get("menu.footer")
}

func (s *IVRService) leadFromDraft(sess *session.Session) airtable.Lead {
	var selected []string
	for _, option := range sess.Menu.Options {
		if sess.Draft.Options[option.Code] {
			selected = append(selected, option.Name)
		}
	}
	if !sess.Draft.PatternFound {
		selected = append(selected, "индивидуальный замер")
	}

	return airtable.Lead{
		Name:     sess.Draft.ContactName,
		Phone:    sess.Draft.ContactPhone,
		Username: sess.ChatID,
		Category: sess.Draft.CategoryName,
		CarBrand: sess.Draft.Brand,
		CarModel: fmt.Sprintf("%s (%d)", sess.Draft.Model, sess.Draft.Year),
		Options:  strings.Join(selected, ", "),
		Price:    sess.Draft.TotalPrice,
	}
}

// menuChoice parses a 1-based menu digit against the number of entries shown.
func menuChoice(input string, count int) (int, bool) {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > count {
		return 0, false
	}
	return n - 1, true
}

// normalizePhone keeps digits (and a leading +) and rejects anything too
// short to be a phone number.
func normalizePhone(input string) (string, bool) {
	var b strings.Builder
	for i, r := range input {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", false
		}
	}

	phone := b.String()
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 9 {
		return "", false
	}
	return phone, true
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
