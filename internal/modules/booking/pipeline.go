// Package booking wires the booking module for the binaries in cmd/.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/agent"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/calendar"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/llm"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/lock"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/whatsapp"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/repositories"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/services"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/shared/config"
)

const (
	// TurnLockTTL outlives one background turn so a crashed holder frees the key.
	TurnLockTTL  = 90 * time.Second
	TurnLockWait = 10 * time.Second
)

// Pipeline is everything one inbound message needs.
type Pipeline struct {
	Businesses    repositories.BusinessRepo
	Conversations repositories.ConversationRepo
	Appointments  repositories.AppointmentRepo

	LLM          *llm.Service
	Webhook      *services.WebhookService
	Housekeeping *services.Housekeeping

	// Calendar is nil when Google OAuth is not configured.
	Calendar *calendar.GoogleCalendar

	rdb *redis.Client
}

// LLMConfig maps the environment onto the completion provider config.
func LLMConfig(cfg *config.Config) *llm.ProviderConfig {
	pc := &llm.ProviderConfig{
		Type:        llm.ProviderType(cfg.LLMProvider),
		OpenAIKey:   cfg.OpenAIKey,
		GroqKey:     cfg.GroqAPIKey,
		DeepSeekKey: cfg.DeepSeekAPIKey,
		Model:       cfg.LLMModel,
	}
	if pc.Type == llm.ProviderDeepSeek {
		pc.BaseURL = cfg.DeepSeekAPIURL
	}
	return pc
}

// NewPipeline builds repositories, the completion service, the engine and
// the webhook service on top of db and gateway. Redis and Google Calendar
// are optional; a Redis that cannot be reached degrades to no locking.
func NewPipeline(ctx context.Context, cfg *config.Config, db *gorm.DB, gateway whatsapp.Gateway) (*Pipeline, error) {
	p := &Pipeline{
		Businesses:    repositories.NewBusinessRepo(db),
		Conversations: repositories.NewConversationRepo(db),
		Appointments:  repositories.NewAppointmentRepo(db),
	}

	llmService, err := llm.NewService(LLMConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	p.LLM = llmService

	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.DefaultTimezone).Msg("⚠️ Unknown DEFAULT_TIMEZONE, using UTC")
		loc = time.UTC
	}

	opts := []services.Option{services.WithDefaultLocation(loc)}

	if cfg.RedisURL != "" {
		rdb, err := lock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Redis unavailable, turns will not be serialized")
		} else {
			p.rdb = rdb
			opts = append(opts, services.WithLocker(lock.NewRedisLocker(rdb, TurnLockTTL, TurnLockWait)))
			log.Info().Msg("🔒 Per-sender turn lock enabled (Redis)")
		}
	}

	if cfg.GoogleCalendarEnabled() {
		p.Calendar = calendar.NewGoogleCalendar(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, loc.String())
		opts = append(opts, services.WithCalendar(p.Calendar))
		log.Info().Msg("📅 Google Calendar sync enabled")
	} else {
		log.Warn().Msg("⚠️ Google Calendar not configured, appointments stay local")
	}

	p.Webhook = services.NewWebhookService(
		p.Businesses,
		p.Conversations,
		p.Appointments,
		agent.NewEngine(llmService),
		gateway,
		opts...,
	)
	p.Housekeeping = services.NewHousekeeping(p.Appointments)

	return p, nil
}

// Close releases the Redis client, if any.
func (p *Pipeline) Close() {
	if p.rdb != nil {
		if err := p.rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️ Failed to close Redis client")
		}
	}
}
