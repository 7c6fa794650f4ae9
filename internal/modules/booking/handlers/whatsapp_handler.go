package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/services"
)

// InstanceConnector pairs and inspects a business's WhatsApp number.
type InstanceConnector interface {
	Connect(ctx context.Context, businessID uuid.UUID) ([]byte, services.InstanceStatus, error)
	Status(ctx context.Context, businessID uuid.UUID) (services.InstanceStatus, error)
}

type WhatsAppHandler struct {
	instances InstanceConnector
}

func NewWhatsAppHandler(instances InstanceConnector) *WhatsAppHandler {
	return &WhatsAppHandler{instances: instances}
}

// Connect returns the pairing QR as a PNG, or the status as JSON when the
// number is already paired.
func (h *WhatsAppHandler) Connect(c *fiber.Ctx) error {
	businessID, ok := businessIDFromQuery(c)
	if !ok {
		return badRequest(c, "business_id must be a UUID")
	}

	qr, status, err := h.instances.Connect(c.UserContext(), businessID)
	if err != nil {
		return lookupError(c, err)
	}
	if qr == nil {
		return c.JSON(status)
	}

	c.Set("Content-Type", "image/png")
	c.Set("Content-Disposition", "inline; filename=whatsapp-qr.png")
	return c.Send(qr)
}

func (h *WhatsAppHandler) Status(c *fiber.Ctx) error {
	businessID, ok := businessIDFromQuery(c)
	if !ok {
		return badRequest(c, "business_id must be a UUID")
	}

	status, err := h.instances.Status(c.UserContext(), businessID)
	if err != nil {
		return lookupError(c, err)
	}
	return c.JSON(status)
}
