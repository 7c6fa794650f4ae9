package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/scheduler"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/whatsapp"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/handlers"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/services"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/shared/config"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/shared/database"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/shared/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("❌ Invalid configuration")
	}
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("🚀 Starting agendabot api")

	db := database.NewDB(cfg.DatabaseURL, !cfg.IsProduction() && cfg.LogLevel == "debug")
	defer db.Close()

	gateway, err := whatsapp.NewGateway(&whatsapp.ProviderConfig{
		Type:           whatsapp.ProviderType(cfg.WhatsAppProvider),
		EvolutionURL:   cfg.EvolutionAPIURL,
		EvolutionToken: cfg.EvolutionAPIToken,
		StoreURL:       cfg.WhatsAppStoreURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to init WhatsApp gateway")
	}
	log.Info().Str("provider", gateway.GetProviderName()).Msg("📱 WhatsApp provider")
	if _, ok := gateway.(whatsapp.InstanceManager); !ok {
		log.Warn().Msg("⚠️ Device gateways are driven by agent-core; replies sent from this process will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := booking.NewPipeline(ctx, cfg, db.GORM, gateway)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to build booking pipeline")
	}
	defer pipeline.Close()

	jobs := scheduler.New()
	if err := pipeline.Housekeeping.Register(jobs); err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to schedule housekeeping")
	}
	jobs.Start()
	defer jobs.Stop()

	webhookHandler := handlers.NewWebhookHandler(pipeline.Webhook)
	routes := handlers.Routes{
		Health:  handlers.NewHealthHandler(gateway.GetProviderName()),
		Webhook: webhookHandler,
	}
	if pipeline.Calendar != nil {
		routes.Calendar = handlers.NewCalendarHandler(services.NewCalendarService(pipeline.Businesses, pipeline.Calendar))
	}
	if manager, ok := gateway.(whatsapp.InstanceManager); ok {
		webhookURL := cfg.AppURL + "/webhook/evolution"
		routes.WhatsApp = handlers.NewWhatsAppHandler(services.NewInstanceService(pipeline.Businesses, manager, webhookURL))
	}

	app := fiber.New(fiber.Config{
		AppName:      "AgendaBot API",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	handlers.Register(app, routes)

	go func() {
		<-ctx.Done()
		log.Info().Msg("🛑 Shutting down api...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("❌ Shutdown failed")
		}
	}()

	log.Info().Str("webhook", cfg.AppURL+"/webhook/evolution").Msg("✅ api running")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("❌ Server stopped")
	}

	log.Info().Msg("⏳ Waiting for running turns...")
	if !webhookHandler.Wait(handlers.ProcessTimeout) {
		log.Warn().Msg("⚠️ Some turns were still running at exit")
	}
	log.Info().Msg("👋 Goodbye!")
}
