package i18n

import (
	"strings"
	"testing"
)

func TestLoadKnownTenants(t *testing.T) {
	for _, slug := range []string{"evopoliki", "five_deluxe"} {
		bundle, err := Load(slug, "ru")
		if err != nil {
			t.Fatalf("Load(%s, ru): %v", slug, err)
		}
		if bundle.TenantSlug() != slug {
			t.Errorf("TenantSlug() = %q, want %q", bundle.TenantSlug(), slug)
		}
		if bundle.Get("menu.header") == "menu.header" {
			t.Errorf("%s bundle is missing menu.header", slug)
		}
	}
}

func TestLoadUnknownTenant(t *testing.T) {
	if _, err := Load("nobody", "ru"); err == nil {
		t.Error("expected error for unknown tenant locale")
	}
}

func TestGetSubstitutesPlaceholders(t *testing.T) {
	bundle, err := Load("evopoliki", "ru")
	if err != nil {
		t.Fatal(err)
	}

	got := bundle.Get("ivr.brand_confirm", "brand", "Toyota")
	if !strings.Contains(got, "Toyota") {
		t.Errorf("brand placeholder not substituted: %q", got)
	}
	if strings.Contains(got, "{brand}") {
		t.Errorf("placeholder left in output: %q", got)
	}
}

func TestGetMissingKeyReturnsKey(t *testing.T) {
	bundle, err := Load("evopoliki", "ru")
	if err != nil {
		t.Fatal(err)
	}

	if got := bundle.Get("no.such.key"); got != "no.such.key" {
		t.Errorf("missing key returned %q", got)
	}
}

func TestGetList(t *testing.T) {
	bundle, err := Load("evopoliki", "ru")
	if err != nil {
		t.Fatal(err)
	}

	keywords := bundle.GetList("commands.menu")
	if len(keywords) < 2 {
		t.Fatalf("expected several menu keywords, got %v", keywords)
	}
	for _, kw := range keywords {
		if kw != strings.TrimSpace(kw) || kw == "" {
			t.Errorf("keyword %q not trimmed", kw)
		}
	}
}
