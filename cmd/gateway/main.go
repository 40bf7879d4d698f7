package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/robfig/cron/v3"

	"github.com/evopoliki/wabot/internal/core/airtable"
	"github.com/evopoliki/wabot/internal/core/assistant"
	"github.com/evopoliki/wabot/internal/core/session"
	"github.com/evopoliki/wabot/internal/core/tenant"
	"github.com/evopoliki/wabot/internal/core/whatsapp"
	"github.com/evopoliki/wabot/internal/modules/bot/handlers"
	"github.com/evopoliki/wabot/internal/modules/bot/repositories"
	"github.com/evopoliki/wabot/internal/modules/bot/services"
	"github.com/evopoliki/wabot/internal/shared/config"
	"github.com/evopoliki/wabot/internal/shared/database"
	"github.com/evopoliki/wabot/internal/shared/utils"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	utils.InitLogger()
	log.Printf("🚀 Starting gateway on port %s", cfg.Port)

	// Init database
	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	// Init repositories (use GORM instance)
	catalogRepo := repositories.NewCatalogRepo(db.GORM)
	tenantRepo := repositories.NewTenantRepo(db.GORM)
	conversationRepo := repositories.NewConversationRepo(db.GORM)

	// Load tenants from environment and bind them to their catalog rows
	registry, err := tenant.LoadRegistry(cfg.TenantSlugs)
	if err != nil {
		log.Fatalf("Failed to load tenant registry: %v", err)
	}
	if len(registry.All()) == 0 {
		log.Fatal("No tenants configured, nothing to serve")
	}

	store := session.NewStore()

	runtimes := make(map[string]*services.TenantRuntime)
	for _, t := range registry.All() {
		row, err := tenantRepo.GetBySlug(t.Slug)
		if err != nil {
			log.Fatalf("Tenant %s is configured but has no catalog row: %v", t.Slug, err)
		}
		t.CatalogID = row.ID

		sender := whatsapp.NewGreenAPISender(t.InstanceID, t.APIToken, t.APIURL)
		if err := sender.CheckState(); err != nil {
			log.Printf("⚠️ [%s] WhatsApp instance check: %v", t.Slug, err)
		}

		at := airtable.NewClient(t.AirtableToken, t.AirtableBaseID, t.AirtableTableID)
		tools := services.NewToolService(t, catalogRepo, at)

		rt := &services.TenantRuntime{
			Tenant: t,
			Sender: sender,
			IVR:    services.NewIVRService(t, catalogRepo, tools),
		}
		if t.DialogEnabled() {
			rt.Dialog = assistant.NewManager(t, tools)
			log.Printf("🤖 [%s] AI dialog mode enabled (assistant %s)", t.Slug, t.AssistantID)
		} else {
			log.Printf("📋 [%s] IVR mode", t.Slug)
		}
		runtimes[t.Slug] = rt
	}

	webhookService := services.NewWebhookService(registry, store, runtimes, conversationRepo)

	// Init handlers
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	healthHandler := handlers.NewHealthHandler(registry, store)

	// Evict idle sessions so abandoned funnels restart clean
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 5m", func() {
		store.Sweep(cfg.SessionTTL)
	}); err != nil {
		log.Fatalf("Failed to schedule session sweep: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "WhatsApp Commerce Gateway",
	})

	// Middleware
	app.Use(cors.New())

	// Health checks
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.Health)
	app.Get("/debug/tenants", healthHandler.DebugTenants)

	// Webhook route (all tenants share it, routing is by instance ID)
	app.Post("/webhook", webhookHandler.Handle)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("✅ gateway running at :%s (%d tenants)", port, len(registry.All()))
	log.Fatal(app.Listen(":" + port))
}
