package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/models"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/repositories"
)

// CalendarLinker is the OAuth side of calendar sync.
type CalendarLinker interface {
	AuthURL(ctx context.Context, businessID uuid.UUID) (string, error)
	Connect(ctx context.Context, state, code string) (*models.CalendarConnection, error)
}

type CalendarHandler struct {
	linker CalendarLinker
}

func NewCalendarHandler(linker CalendarLinker) *CalendarHandler {
	return &CalendarHandler{linker: linker}
}

// StartAuth redirects the business owner to Google's consent screen.
func (h *CalendarHandler) StartAuth(c *fiber.Ctx) error {
	businessID, ok := businessIDFromQuery(c)
	if !ok {
		return badRequest(c, "business_id must be a UUID")
	}

	url, err := h.linker.AuthURL(c.UserContext(), businessID)
	if err != nil {
		return lookupError(c, err)
	}
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

// Callback stores the tokens Google hands back.
func (h *CalendarHandler) Callback(c *fiber.Ctx) error {
	if msg := c.Query("error"); msg != "" {
		return badRequest(c, msg)
	}

	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		return badRequest(c, "code and state are required")
	}

	conn, err := h.linker.Connect(c.UserContext(), state, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "business not found"})
		}
		log.Error().Err(err).Msg("❌ Google Calendar callback failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "failed to connect calendar",
		})
	}

	return c.JSON(fiber.Map{
		"status":      "connected",
		"business_id": conn.BusinessID,
		"calendar_id": conn.CalendarID,
	})
}

func businessIDFromQuery(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Query("business_id"))
	return id, err == nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func lookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("❌ Request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
