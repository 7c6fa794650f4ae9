package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/whatsapp"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/services"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/shared/utils"
)

// ProcessTimeout bounds one background turn.
const ProcessTimeout = 60 * time.Second

// Processor runs one inbound event through the booking pipeline.
type Processor interface {
	Process(ctx context.Context, ev whatsapp.InboundEvent) (services.Outcome, error)
}

type WebhookHandler struct {
	processor Processor
	timeout   time.Duration
	turns     sync.WaitGroup
	// done is signalled after each background turn; nil outside tests.
	done chan<- services.Outcome
}

func NewWebhookHandler(processor Processor) *WebhookHandler {
	return &WebhookHandler{processor: processor, timeout: ProcessTimeout}
}

// ReceiveEvolution acknowledges an Evolution API webhook right away and
// processes the message in the background. Gateways retry on non-2xx, so
// a turn that fails later still gets a 200 here.
func (h *WebhookHandler) ReceiveEvolution(c *fiber.Ctx) error {
	var payload whatsapp.EvolutionWebhook
	if err := c.BodyParser(&payload); err != nil {
		log.Warn().Err(err).Msg("❌ Failed to parse webhook")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid payload",
		})
	}

	ev := payload.ToEvent()
	if !ev.IsIncomingMessage() {
		log.Debug().Str("event", ev.Event).Str("instance", ev.Instance).Msg("⏭️ Skipping webhook event")
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	log.Info().
		Str("instance", ev.Instance).
		Str("phone", utils.MaskPhone(ev.Phone)).
		Str("message_id", ev.MessageID).
		Msg("📨 Webhook received")

	h.turns.Add(1)
	go h.process(ev)

	return c.JSON(fiber.Map{"status": "received"})
}

// Wait blocks until every background turn has finished or timeout passes.
// It reports whether all turns finished.
func (h *WebhookHandler) Wait(timeout time.Duration) bool {
	return WaitTurns(&h.turns, timeout)
}

// WaitTurns waits on wg for at most timeout.
func WaitTurns(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// process runs detached from the request and from shutdown: a turn that
// has started is only bounded by its own timeout.
func (h *WebhookHandler) process(ev whatsapp.InboundEvent) {
	defer h.turns.Done()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	outcome, err := h.processor.Process(ctx, ev)
	if err != nil {
		log.Error().Err(err).Str("instance", ev.Instance).Str("outcome", string(outcome)).Msg("❌ Webhook processing failed")
	}
	if h.done != nil {
		h.done <- outcome
	}
}
