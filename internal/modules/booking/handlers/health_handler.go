package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	provider string
}

func NewHealthHandler(provider string) *HealthHandler {
	return &HealthHandler{provider: provider}
}

// GetHealth reports liveness and the active WhatsApp gateway.
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "agendabot-whatsapp",
		"provider":  h.provider,
	})
}
