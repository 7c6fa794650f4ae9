package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/agent"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/calendar"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/i18n"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/lock"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/scheduling"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/whatsapp"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/models"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/repositories"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/shared/utils"
)

// Outcome is how one inbound event ended.
type Outcome string

const (
	OutcomeIgnored         Outcome = "ignored"
	OutcomeNoText          Outcome = "no_text"
	OutcomeUnknownInstance Outcome = "unknown_instance"
	OutcomeReplied         Outcome = "replied"
	OutcomeRejected        Outcome = "rejected"
	OutcomeFailed          Outcome = "failed"
)

// IngestState is the step an event reached, used in logs.
type IngestState int

const (
	StateReceived IngestState = iota
	StateFiltered
	StateConversationResolved
	StatePersisted
	StateOrchestrated
	StateActionApplied
	StateReplied
)

var stateNames = [...]string{"received", "filtered", "conversation_resolved", "persisted", "orchestrated", "action_applied", "replied"}

func (s IngestState) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// DefaultHistoryLimit is how many past messages are sent to the model.
const DefaultHistoryLimit = 20

// Orchestrator drafts the reply for one turn, usually *agent.Engine.
type Orchestrator interface {
	Run(ctx context.Context, actx agent.Context, history []openai.ChatCompletionMessage) agent.Outcome
}

// WebhookService turns one inbound WhatsApp message into at most one
// booking mutation and one outbound reply.
type WebhookService struct {
	businesses    repositories.BusinessRepo
	conversations repositories.ConversationRepo
	appointments  repositories.AppointmentRepo
	engine        Orchestrator
	gateway       whatsapp.Gateway

	calendar     calendar.Adapter
	locker       lock.Locker
	now          func() time.Time
	defaultLoc   *time.Location
	historyLimit int
}

type Option func(*WebhookService)

// WithCalendar enables best-effort calendar mirroring.
func WithCalendar(c calendar.Adapter) Option {
	return func(s *WebhookService) { s.calendar = c }
}

// WithLocker serializes turns of the same sender.
func WithLocker(l lock.Locker) Option {
	return func(s *WebhookService) { s.locker = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *WebhookService) { s.now = now }
}

// WithDefaultLocation is used for businesses with an unknown timezone.
func WithDefaultLocation(loc *time.Location) Option {
	return func(s *WebhookService) { s.defaultLoc = loc }
}

func NewWebhookService(
	businesses repositories.BusinessRepo,
	conversations repositories.ConversationRepo,
	appointments repositories.AppointmentRepo,
	engine Orchestrator,
	gateway whatsapp.Gateway,
	opts ...Option,
) *WebhookService {
	s := &WebhookService{
		businesses:    businesses,
		conversations: conversations,
		appointments:  appointments,
		engine:        engine,
		gateway:       gateway,
		locker:        lock.Nop{},
		now:           time.Now,
		defaultLoc:    time.UTC,
		historyLimit:  DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// turn carries what one Process call has resolved so far.
type turn struct {
	ev       whatsapp.InboundEvent
	instance string
	business *models.Business
	conv     *models.Conversation
	lang     i18n.Language
	loc      *time.Location
	now      time.Time
	actx     agent.Context
	state    IngestState
}

func (t *turn) log() *zerolog.Logger {
	c := log.With().
		Str("state", t.state.String()).
		Str("instance", t.instance).
		Str("phone", utils.MaskPhone(t.ev.Phone))
	if t.business != nil {
		c = c.Str("business_id", t.business.ID.String())
	}
	l := c.Logger()
	return &l
}

// Process runs one event through the ingestion steps. An error is returned
// only for failures after the event was accepted; callers acknowledge the
// webhook either way.
func (s *WebhookService) Process(ctx context.Context, ev whatsapp.InboundEvent) (Outcome, error) {
	outcome, err := s.process(ctx, ev)
	webhookOutcomes.WithLabelValues(string(outcome)).Inc()
	return outcome, err
}

func (s *WebhookService) process(ctx context.Context, ev whatsapp.InboundEvent) (Outcome, error) {
	t := &turn{ev: ev, instance: ev.Instance, state: StateReceived}

	if !ev.IsIncomingMessage() {
		t.log().Debug().Str("event", ev.Event).Bool("from_me", ev.FromMe).Msg("⏭️ Skipping event")
		return OutcomeIgnored, nil
	}
	t.ev.Text = strings.TrimSpace(ev.Text)
	if t.ev.Text == "" {
		t.log().Debug().Msg("⏭️ Skipping message without text")
		return OutcomeNoText, nil
	}
	t.state = StateFiltered

	inst, err := s.businesses.GetInstanceByName(ctx, ev.Instance)
	if errors.Is(err, repositories.ErrNotFound) {
		t.log().Warn().Msg("⚠️ Unknown WhatsApp instance")
		return OutcomeUnknownInstance, nil
	}
	if err != nil {
		return s.fail(t, "resolve instance", err)
	}
	t.business = &inst.Business

	release, err := s.locker.Acquire(ctx, t.business.ID.String()+":"+ev.Phone)
	if err != nil {
		t.log().Warn().Err(err).Msg("⚠️ Turn lock unavailable, continuing unlocked")
	} else {
		defer release()
	}

	t.now = s.now()
	t.loc = t.business.Location(s.defaultLoc)
	t.lang = i18n.Detect(t.ev.Text, i18n.Parse(t.business.Language))

	t.conv, err = s.conversations.ResolveActive(ctx, t.business.ID, ev.Phone, ev.Name)
	if err != nil {
		return s.fail(t, "resolve conversation", err)
	}
	t.state = StateConversationResolved

	if err := s.conversations.AppendMessage(ctx, t.conv.ID, t.ev.Text, models.DirectionInbound); err != nil {
		return s.fail(t, "persist inbound message", err)
	}
	t.state = StatePersisted
	t.log().Info().Msg("📨 Inbound message stored")

	t.actx, err = s.buildContext(ctx, t)
	if err != nil {
		return s.fail(t, "build agent context", err)
	}
	history, err := s.history(ctx, t.conv.ID)
	if err != nil {
		return s.fail(t, "load history", err)
	}

	out := s.engine.Run(ctx, t.actx, history)
	t.state = StateOrchestrated
	t.log().Info().Int("rounds", out.Rounds).Str("action", string(out.Action.Kind)).Msg("🤖 Reply drafted")

	reply := out.Reply
	if !out.Action.IsNone() {
		vc := scheduling.ValidationContext{
			Services:     t.actx.Services,
			WorkingHours: t.actx.WorkingHours,
			Now:          t.now,
			Location:     t.loc,
		}
		if res := scheduling.Validate(out.Action, vc); !res.Valid {
			t.log().Info().Str("reason", string(res.Reason)).Msg("🚫 Action rejected")
			if err := s.reply(ctx, t, i18n.Rejection(t.lang, string(res.Reason))); err != nil {
				return s.fail(t, "persist rejection", err)
			}
			return OutcomeRejected, nil
		}

		reply, err = s.apply(ctx, t, out.Action, reply)
		if err != nil {
			return s.fail(t, "apply "+string(out.Action.Kind), err)
		}
	}
	t.state = StateActionApplied

	if err := s.reply(ctx, t, reply); err != nil {
		return s.fail(t, "persist reply", err)
	}
	t.state = StateReplied
	t.log().Info().Msg("✅ Turn completed")
	return OutcomeReplied, nil
}

func (s *WebhookService) fail(t *turn, step string, err error) (Outcome, error) {
	t.log().Error().Err(err).Msgf("❌ Failed to %s", step)
	return OutcomeFailed, fmt.Errorf("%s: %w", step, err)
}

func (s *WebhookService) buildContext(ctx context.Context, t *turn) (agent.Context, error) {
	biz := t.business

	hours, err := s.businesses.GetWorkingHours(ctx, biz.ID)
	if err != nil {
		return agent.Context{}, err
	}
	cfg, err := s.businesses.GetAgentConfig(ctx, biz.ID)
	if err != nil {
		return agent.Context{}, err
	}
	existing, err := s.existing(ctx, biz.ID, t.now)
	if err != nil {
		return agent.Context{}, err
	}

	actx := agent.Context{
		BusinessName:        biz.Name,
		Services:            toServices(cfg.Services),
		WorkingHours:        toWorkingHours(hours),
		AppointmentDuration: biz.Duration(),
		CustomPrompt:        cfg.CustomPrompt,
		WelcomeMessage:      cfg.WelcomeMessage,
		Language:            t.lang,
		Existing:            existing,
		Buffer:              biz.Buffer(),
		Now:                 t.now,
		Location:            t.loc,
	}
	actx.AvailableSlots = scheduling.GenerateSlots(scheduling.SlotRequest{
		WorkingHours:    actx.WorkingHours,
		DefaultDuration: actx.AppointmentDuration,
		Existing:        existing,
		DaysAhead:       scheduling.DefaultDaysAhead,
		Buffer:          actx.Buffer,
		Now:             t.now,
		Location:        t.loc,
	})
	return actx, nil
}

func (s *WebhookService) existing(ctx context.Context, businessID uuid.UUID, now time.Time) ([]scheduling.Interval, error) {
	appts, err := s.appointments.ListActiveFrom(ctx, businessID, now)
	if err != nil {
		return nil, err
	}
	out := make([]scheduling.Interval, 0, len(appts))
	for _, a := range appts {
		out = append(out, scheduling.Interval{Start: a.StartTime, End: a.EndTime})
	}
	return out, nil
}

func (s *WebhookService) history(ctx context.Context, conversationID uuid.UUID) ([]openai.ChatCompletionMessage, error) {
	msgs, err := s.conversations.History(ctx, conversationID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Direction == models.DirectionOutbound {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out, nil
}

// apply mutates the booking store for a validated action and returns the
// text to send.
func (s *WebhookService) apply(ctx context.Context, t *turn, action scheduling.Action, reply string) (string, error) {
	switch action.Kind {
	case scheduling.ActionSchedule:
		return s.schedule(ctx, t, action, reply)
	case scheduling.ActionCancel:
		return s.cancel(ctx, t, action, reply)
	case scheduling.ActionCheckAvailability:
		return t.actx.CheckAvailability(action.Date, action.Service), nil
	}
	return reply, nil
}

func (s *WebhookService) schedule(ctx context.Context, t *turn, action scheduling.Action, reply string) (string, error) {
	start, err := scheduling.ParseLocal(action.Date, action.Time, t.loc)
	if err != nil {
		return "", err
	}

	duration := t.actx.AppointmentDuration
	var serviceName *string
	if svc, ok := scheduling.FindService(t.actx.Services, action.Service); ok {
		if svc.Duration > 0 {
			duration = svc.Duration
		}
		serviceName = &svc.Name
	} else if action.Service != "" {
		serviceName = &action.Service
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	// re-read right before the insert to keep the check-then-act window small
	existing, err := s.existing(ctx, t.business.ID, t.now)
	if err != nil {
		return "", err
	}
	if scheduling.Conflicts(scheduling.Interval{Start: start, End: end}, existing, t.actx.Buffer) {
		t.log().Info().Time("start", start).Msg("⛔ Requested slot overlaps an appointment")
		return s.slotTaken(t, action.Date), nil
	}

	name := strings.TrimSpace(action.ClientName)
	if name == "" {
		name = t.ev.Name
	}
	convID := t.conv.ID
	appt := &models.Appointment{
		BusinessID:     t.business.ID,
		ConversationID: &convID,
		ContactPhone:   t.ev.Phone,
		ContactName:    name,
		ServiceName:    serviceName,
		StartTime:      start,
		EndTime:        end,
		Status:         models.AppointmentScheduled,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		if errors.Is(err, scheduling.ErrSlotTaken) {
			t.log().Info().Time("start", start).Msg("⛔ Slot taken by a concurrent booking")
			return s.slotTaken(t, action.Date), nil
		}
		return "", fmt.Errorf("create appointment: %w", err)
	}
	t.log().Info().Str("appointment_id", appt.ID.String()).Time("start", start).Msg("📅 Appointment created")

	s.mirrorCreate(ctx, t, appt)

	svc := ""
	if serviceName != nil {
		svc = *serviceName
	}
	return reply + "\n\n" + i18n.Confirmation(t.lang, i18n.FormatDateTime(t.lang, start.In(t.loc)), svc), nil
}

// slotTaken lists the other free slots of the requested day, or every
// free slot when that day is full.
func (s *WebhookService) slotTaken(t *turn, date string) string {
	slots := scheduling.SlotsOn(t.actx.AvailableSlots, date)
	if len(slots) == 0 {
		slots = t.actx.AvailableSlots
	}
	return fmt.Sprintf("❌ %s.\n\n%s", i18n.T(t.lang, i18n.KeySlotTaken), scheduling.FormatSlots(slots, t.lang))
}

func (s *WebhookService) cancel(ctx context.Context, t *turn, action scheduling.Action, reply string) (string, error) {
	start, err := scheduling.ParseLocal(action.Date, action.Time, t.loc)
	if err != nil {
		return "", err
	}

	appt, err := s.appointments.FindActiveByStart(ctx, t.business.ID, t.ev.Phone, start)
	if errors.Is(err, repositories.ErrNotFound) {
		t.log().Info().Time("start", start).Msg("ℹ️ No active appointment to cancel")
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("find appointment: %w", err)
	}

	if err := s.appointments.UpdateStatus(ctx, appt.ID, models.AppointmentCancelled); err != nil {
		return "", fmt.Errorf("cancel appointment: %w", err)
	}
	t.log().Info().Str("appointment_id", appt.ID.String()).Msg("🗑️ Appointment cancelled")

	s.mirrorDelete(ctx, t, appt)

	return reply + "\n\n" + i18n.Cancellation(t.lang, i18n.FormatDateTime(t.lang, start.In(t.loc))), nil
}

// credentials returns false when the business has no calendar connected.
func (s *WebhookService) credentials(ctx context.Context, t *turn) (calendar.Credentials, string, bool) {
	if s.calendar == nil {
		return calendar.Credentials{}, "", false
	}
	conn, err := s.businesses.GetCalendarConnection(ctx, t.business.ID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			t.log().Warn().Err(err).Msg("⚠️ Failed to load calendar connection")
		}
		return calendar.Credentials{}, "", false
	}

	creds := calendar.Credentials{AccessToken: conn.AccessToken, RefreshToken: conn.RefreshToken}
	if conn.TokenExpiry != nil {
		creds.Expiry = *conn.TokenExpiry
	}
	return creds, conn.CalendarID, true
}

func (s *WebhookService) mirrorCreate(ctx context.Context, t *turn, appt *models.Appointment) {
	creds, calendarID, ok := s.credentials(ctx, t)
	if !ok {
		return
	}

	svc := "Consulta"
	if appt.ServiceName != nil && *appt.ServiceName != "" {
		svc = *appt.ServiceName
	}
	ev := calendar.Event{
		Summary:     fmt.Sprintf("Cita: %s - %s", appt.ContactName, svc),
		Description: fmt.Sprintf("Cliente: %s\nTeléfono: %s\nServicio: %s", appt.ContactName, appt.ContactPhone, svc),
		Start:       appt.StartTime.In(t.loc),
		End:         appt.EndTime.In(t.loc),
	}

	eventID, err := s.calendar.CreateEvent(ctx, creds, calendarID, ev)
	if err != nil {
		t.log().Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("⚠️ Calendar event not created")
		return
	}
	if err := s.appointments.SetExternalEventID(ctx, appt.ID, eventID); err != nil {
		t.log().Warn().Err(err).Str("event_id", eventID).Msg("⚠️ Failed to store calendar event id")
	}
}

func (s *WebhookService) mirrorDelete(ctx context.Context, t *turn, appt *models.Appointment) {
	if appt.ExternalEventID == nil || *appt.ExternalEventID == "" {
		return
	}
	creds, calendarID, ok := s.credentials(ctx, t)
	if !ok {
		return
	}
	if err := s.calendar.DeleteEvent(ctx, creds, calendarID, *appt.ExternalEventID); err != nil {
		t.log().Warn().Err(err).Str("event_id", *appt.ExternalEventID).Msg("⚠️ Calendar event not deleted")
	}
}

// reply stores the outbound message, then hands it to the gateway. Send
// failures are logged only.
func (s *WebhookService) reply(ctx context.Context, t *turn, text string) error {
	if err := s.conversations.AppendMessage(ctx, t.conv.ID, text, models.DirectionOutbound); err != nil {
		return err
	}
	if err := s.gateway.SendText(ctx, t.ev.Instance, t.ev.Phone, text); err != nil {
		t.log().Error().Err(err).Str("provider", s.gateway.GetProviderName()).Msg("❌ Failed to send WhatsApp message")
		return nil
	}
	t.log().Info().Msg("📤 Reply sent")
	return nil
}

func toServices(in []models.Service) []scheduling.Service {
	out := make([]scheduling.Service, 0, len(in))
	for _, s := range in {
		out = append(out, scheduling.Service{Name: s.Name, Duration: s.Duration, Price: s.Price, Description: s.Description})
	}
	return out
}

func toWorkingHours(in []models.WorkingHour) []scheduling.WorkingHour {
	out := make([]scheduling.WorkingHour, 0, len(in))
	for _, h := range in {
		out = append(out, scheduling.WorkingHour{
			DayOfWeek: time.Weekday(h.DayOfWeek),
			StartTime: h.StartTime,
			EndTime:   h.EndTime,
			IsActive:  h.IsActive,
		})
	}
	return out
}
