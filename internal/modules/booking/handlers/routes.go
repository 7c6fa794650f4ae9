package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes groups the handlers mounted by Register. Calendar and WhatsApp
// are optional: their routes are only mounted when set.
type Routes struct {
	Health   *HealthHandler
	Webhook  *WebhookHandler
	Calendar *CalendarHandler
	WhatsApp *WhatsAppHandler
}

func Register(app *fiber.App, r Routes) {
	app.Get("/health", r.Health.GetHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/webhook/evolution", r.Webhook.ReceiveEvolution)

	if r.Calendar != nil {
		app.Get("/auth/google", r.Calendar.StartAuth)
		app.Get("/auth/google/callback", r.Calendar.Callback)
	}

	if r.WhatsApp != nil {
		app.Get("/whatsapp/connect", r.WhatsApp.Connect)
		app.Get("/whatsapp/status", r.WhatsApp.Status)
	}
}
