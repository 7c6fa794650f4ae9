package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/scheduler"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/whatsapp"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/handlers"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/shared/config"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/shared/database"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/shared/utils"
)

// agent-core serves one WhatsApp number through a whatsmeow device. Its
// instance name must match a whatsapp_instances row.
func main() {
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env, cfg.LogLevel)

	cfg.WhatsAppProvider = string(whatsapp.ProviderWhatsmeow)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("❌ Invalid configuration")
	}

	instance := os.Getenv("WHATSAPP_INSTANCE")
	if instance == "" {
		instance = "local"
	}
	log.Info().Str("env", cfg.Env).Str("instance", instance).Msg("🚀 Starting agent-core")

	db := database.NewDB(cfg.DatabaseURL, false)
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wa := whatsapp.NewWhatsmeowProvider(cfg.WhatsAppStoreURL)

	pipeline, err := booking.NewPipeline(ctx, cfg, db.GORM, wa)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to build booking pipeline")
	}
	defer pipeline.Close()

	log.Info().Msg("🔌 Connecting to WhatsApp...")
	if err := wa.Connect(ctx, "whatsapp-qr.png"); err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to connect WhatsApp")
	}
	defer wa.Disconnect()

	// turns outlive ctx; shutdown waits for them below
	var turns sync.WaitGroup
	err = wa.OnMessage(instance, func(ev whatsapp.InboundEvent) {
		if !ev.IsIncomingMessage() || ctx.Err() != nil {
			return
		}
		turns.Add(1)
		go func() {
			defer turns.Done()
			turnCtx, cancel := context.WithTimeout(context.Background(), handlers.ProcessTimeout)
			defer cancel()
			if outcome, err := pipeline.Webhook.Process(turnCtx, ev); err != nil {
				log.Error().Err(err).Str("outcome", string(outcome)).Msg("❌ Message processing failed")
			}
		}()
	})
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to start listening")
	}

	jobs := scheduler.New()
	if err := pipeline.Housekeeping.Register(jobs); err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to schedule housekeeping")
	}
	jobs.Start()
	defer jobs.Stop()

	go wa.StartKeepAlive(ctx, 5*time.Minute)

	log.Info().Msg("✅ Agent core is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("🛑 Shutting down agent-core...")
	if !handlers.WaitTurns(&turns, handlers.ProcessTimeout) {
		log.Warn().Msg("⚠️ Some turns were still running at exit")
	}
}
