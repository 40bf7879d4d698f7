package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evopoliki/wabot/internal/core/session"
	"github.com/evopoliki/wabot/internal/core/tenant"
)

type HealthHandler struct {
	registry *tenant.Registry
	store    *session.Store
}

func NewHealthHandler(registry *tenant.Registry, store *session.Store) *HealthHandler {
	return &HealthHandler{registry: registry, store: store}
}

func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "wabot-gateway",
		"status":  "ok",
		"tenants": len(h.registry.All()),
	})
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"sessions": h.store.Len(),
	})
}

// DebugTenants exposes the instance-to-tenant routing table. Slugs only, no
// credentials.
func (h *HealthHandler) DebugTenants(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"instances": h.registry.InstanceMap(),
	})
}
