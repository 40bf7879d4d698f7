package tenant

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/evopoliki/wabot/internal/core/i18n"
)

// Mode selects how inbound messages for a tenant are handled.
type Mode string

const (
	ModeIVR    Mode = "ivr"
	ModeDialog Mode = "dialog"
)

// Tenant is one configured client of the platform. Built once at startup
// from environment variables, immutable afterwards.
type Tenant struct {
	Slug        string
	DisplayName string
	Language    string

	// GreenAPI messaging credentials
	InstanceID  string
	APIToken    string
	APIURL      string
	PhoneNumber string

	// AI dialog mode
	Mode            Mode
	OpenAIKey       string
	AssistantID     string

	// Airtable lead tracking (optional)
	AirtableToken   string
	AirtableBaseID  string
	AirtableTableID string

	// Numeric ID of this tenant's row in the catalog database,
	// resolved once at startup.
	CatalogID uint

	Texts *i18n.Bundle
}

// MenuKeywords returns the tenant-language phrases that force a reset to the
// main menu from any state.
func (t *Tenant) MenuKeywords() []string {
	return t.Texts.GetList("commands.menu")
}

// DialogEnabled reports whether this tenant uses the AI assistant.
func (t *Tenant) DialogEnabled() bool {
	return t.Mode == ModeDialog
}

// Registry maps GreenAPI instance IDs to tenants.
type Registry struct {
	byInstance map[string]*Tenant
	tenants    []*Tenant
}

// NewRegistry builds a registry from already constructed tenants.
func NewRegistry(tenants ...*Tenant) *Registry {
	reg := &Registry{byInstance: make(map[string]*Tenant)}
	for _, t := range tenants {
		reg.byInstance[t.InstanceID] = t
		reg.tenants = append(reg.tenants, t)
	}
	return reg
}

// LoadRegistry reads the configuration block of every slug. Slugs with no
// messaging credentials at all are skipped; a partially configured tenant is
// a startup error.
func LoadRegistry(slugs []string) (*Registry, error) {
	reg := &Registry{byInstance: make(map[string]*Tenant)}

	for _, slug := range slugs {
		t, err := loadTenant(slug)
		if err != nil {
			return nil, err
		}
		if t == nil {
			log.Printf("⚠️ Tenant %s has no WhatsApp credentials, skipping", slug)
			continue
		}

		if _, dup := reg.byInstance[t.InstanceID]; dup {
			return nil, fmt.Errorf("tenant %s: instance ID %s already registered", slug, t.InstanceID)
		}

		reg.byInstance[t.InstanceID] = t
		reg.tenants = append(reg.tenants, t)
		log.Printf("✅ Loaded tenant %s (instance: %s, mode: %s)", slug, t.InstanceID, t.Mode)
	}

	log.Printf("📱 Total active tenants: %d", len(reg.tenants))
	return reg, nil
}

// Resolve returns the tenant owning the given GreenAPI instance ID.
func (r *Registry) Resolve(instanceID string) (*Tenant, bool) {
	t, ok := r.byInstance[instanceID]
	return t, ok
}

// All returns every configured tenant.
func (r *Registry) All() []*Tenant {
	return r.tenants
}

// InstanceMap returns a copy of the instance-to-slug mapping for diagnostics.
func (r *Registry) InstanceMap() map[string]string {
	m := make(map[string]string, len(r.byInstance))
	for id, t := range r.byInstance {
		m[id] = t.Slug
	}
	return m
}

func loadTenant(slug string) (*Tenant, error) {
	prefix := strings.ToUpper(strings.ReplaceAll(slug, "-", "_"))

	instanceID := os.Getenv(prefix + "_WHATSAPP_INSTANCE_ID")
	apiToken := os.Getenv(prefix + "_WHATSAPP_API_TOKEN")

	// Entirely unconfigured tenant: not an error, just not deployed here.
	if instanceID == "" && apiToken == "" {
		return nil, nil
	}
	if instanceID == "" || apiToken == "" {
		return nil, fmt.Errorf("tenant %s: WHATSAPP_INSTANCE_ID and WHATSAPP_API_TOKEN must both be set", slug)
	}

	t := &Tenant{
		Slug:        slug,
		DisplayName: envOr(prefix+"_DISPLAY_NAME", slug),
		Language:    envOr(prefix+"_LANGUAGE", "ru"),
		InstanceID:  instanceID,
		APIToken:    apiToken,
		APIURL:      envOr(prefix+"_WHATSAPP_API_URL", "https://7107.api.green-api.com"),
		PhoneNumber: os.Getenv(prefix + "_WHATSAPP_PHONE_NUMBER"),
		Mode:        ModeIVR,
	}

	if parseBool(envOrGlobal(prefix, "ENABLE_DIALOG_MODE")) {
		t.Mode = ModeDialog
		t.OpenAIKey = envOrGlobal(prefix, "OPENAI_API_KEY")
		t.AssistantID = envOrGlobal(prefix, "OPENAI_ASSISTANT_ID")
		if t.OpenAIKey == "" || t.AssistantID == "" {
			return nil, fmt.Errorf("tenant %s: dialog mode enabled but OPENAI_API_KEY or OPENAI_ASSISTANT_ID is missing", slug)
		}
	}

	t.AirtableToken = envOrGlobal(prefix, "AIRTABLE_API_TOKEN")
	t.AirtableBaseID = envOrGlobal(prefix, "AIRTABLE_BASE_ID")
	t.AirtableTableID = envOrGlobal(prefix, "AIRTABLE_TABLE_ID")

	texts, err := i18n.Load(slug, t.Language)
	if err != nil {
		return nil, fmt.Errorf("tenant %s: %w", slug, err)
	}
	t.Texts = texts

	return t, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envOrGlobal reads <PREFIX>_<KEY> with a fallback to the bare <KEY>,
// so shared credentials don't have to be repeated per tenant.
func envOrGlobal(prefix, key string) string {
	if v := os.Getenv(prefix + "_" + key); v != "" {
		return v
	}
	return os.Getenv(key)
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
