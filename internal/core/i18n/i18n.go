package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed locales
var localeFS embed.FS

// Bundle holds the localized texts for one tenant+language pair.
// Bundles are loaded once at startup and read-only afterwards.
type Bundle struct {
	tenantSlug string
	language   string
	texts      map[string]interface{}
}

// Load reads locales/<tenant>/<language>.json from the embedded locale set.
func Load(tenantSlug, language string) (*Bundle, error) {
	path := fmt.Sprintf("locales/%s/%s.json", tenantSlug, language)

	raw, err := localeFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("locale file not found: %s: %w", path, err)
	}

	var texts map[string]interface{}
	if err := json.Unmarshal(raw, &texts); err != nil {
		return nil, fmt.Errorf("invalid locale file %s: %w", path, err)
	}

	return &Bundle{
		tenantSlug: tenantSlug,
		language:   language,
		texts:      texts,
	}, nil
}

// Get resolves a dotted key ("menu.main") and substitutes {placeholder}
// arguments given as alternating name/value pairs. A missing key returns the
// key itself so a broken locale shows up in chat instead of crashing.
func (b *Bundle) Get(key string, args ...string) string {
	value := b.lookup(key)
	if value == "" {
		return key
	}

	for i := 0; i+1 < len(args); i += 2 {
		value = strings.ReplaceAll(value, "{"+args[i]+"}", args[i+1])
	}

	return value
}

// GetList resolves a key holding a comma-separated list into trimmed items.
func (b *Bundle) GetList(key string) []string {
	value := b.lookup(key)
	if value == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (b *Bundle) lookup(key string) string {
	var current interface{} = b.texts

	for _, part := range strings.Split(key, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current, ok = node[part]
		if !ok {
			return ""
		}
	}

	text, ok := current.(string)
	if !ok {
		return ""
	}
	return text
}

func (b *Bundle) TenantSlug() string {
	return b.tenantSlug
}

func (b *Bundle) Language() string {
	return b.language
}
