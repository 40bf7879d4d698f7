package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	Env         string
	TenantSlugs []string
	SessionTTL  time.Duration
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        os.Getenv("PORT"),
		Env:         os.Getenv("ENV"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}

	// Idle conversations are evicted after this long
	cfg.SessionTTL = 30 * time.Minute
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		if ttl, err := time.ParseDuration(raw); err == nil {
			cfg.SessionTTL = ttl
		} else {
			log.Printf("⚠️ Invalid SESSION_TTL %q, using default: %v", raw, err)
		}
	}

	// Tenant slugs are a fixed, comma-separated list. Credentials for each
	// slug live in <SLUG>_* environment variables (see core/tenant).
	tenants := os.Getenv("BOT_TENANTS")
	if tenants == "" {
		tenants = "evopoliki,five_deluxe"
	}
	for _, slug := range strings.Split(tenants, ",") {
		slug = strings.TrimSpace(slug)
		if slug != "" {
			cfg.TenantSlugs = append(cfg.TenantSlugs, slug)
		}
	}

	return cfg
}
