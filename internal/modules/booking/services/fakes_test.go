package services

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/agent"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/calendar"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/models"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/repositories"
)

func isActive(a *models.Appointment) bool {
	return slices.Contains(models.ActiveAppointmentStatuses, a.Status)
}

type fakeBusinesses struct {
	instances map[string]*models.WhatsAppInstance
	hours     []models.WorkingHour
	config    *models.AgentConfig
	calendar  *models.CalendarConnection
	saved     []*models.CalendarConnection
	statuses  map[uuid.UUID]string
	hoursErr  error
}

func (f *fakeBusinesses) GetByID(_ context.Context, id uuid.UUID) (*models.Business, error) {
	for _, inst := range f.instances {
		if inst.BusinessID == id {
			b := inst.Business
			return &b, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeBusinesses) GetInstanceByName(_ context.Context, name string) (*models.WhatsAppInstance, error) {
	inst, ok := f.instances[name]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (f *fakeBusinesses) GetInstanceByBusiness(_ context.Context, businessID uuid.UUID) (*models.WhatsAppInstance, error) {
	for _, inst := range f.instances {
		if inst.BusinessID == businessID {
			cp := *inst
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeBusinesses) UpdateInstanceStatus(_ context.Context, id uuid.UUID, status string) error {
	if f.statuses == nil {
		f.statuses = map[uuid.UUID]string{}
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeBusinesses) GetWorkingHours(context.Context, uuid.UUID) ([]models.WorkingHour, error) {
	return f.hours, f.hoursErr
}

func (f *fakeBusinesses) ReplaceWorkingHours(_ context.Context, _ uuid.UUID, hours []models.WorkingHour) error {
	f.hours = hours
	return nil
}

func (f *fakeBusinesses) GetAgentConfig(_ context.Context, businessID uuid.UUID) (*models.AgentConfig, error) {
	if f.config == nil {
		return &models.AgentConfig{BusinessID: businessID}, nil
	}
	return f.config, nil
}

func (f *fakeBusinesses) GetCalendarConnection(context.Context, uuid.UUID) (*models.CalendarConnection, error) {
	if f.calendar == nil {
		return nil, repositories.ErrNotFound
	}
	return f.calendar, nil
}

func (f *fakeBusinesses) SaveCalendarConnection(_ context.Context, conn *models.CalendarConnection) error {
	f.saved = append(f.saved, conn)
	f.calendar = conn
	return nil
}

type fakeConversations struct {
	mu        sync.Mutex
	convs     []*models.Conversation
	messages  []models.Message
	appendErr error
}

func (f *fakeConversations) ResolveActive(_ context.Context, businessID uuid.UUID, phone, name string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.convs {
		if c.BusinessID == businessID && c.ContactPhone == phone && c.Status == models.ConversationActive {
			return c, nil
		}
	}
	c := &models.Conversation{ID: uuid.New(), BusinessID: businessID, ContactPhone: phone, ContactName: name, Status: models.ConversationActive}
	f.convs = append(f.convs, c)
	return c, nil
}

func (f *fakeConversations) CollapseDuplicateActive(context.Context, uuid.UUID, string) (*models.Conversation, int64, error) {
	return nil, 0, nil
}

func (f *fakeConversations) AppendMessage(_ context.Context, conversationID uuid.UUID, content, direction string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil && direction == models.DirectionOutbound {
		return f.appendErr
	}
	f.messages = append(f.messages, models.Message{ID: uuid.New(), ConversationID: conversationID, Content: content, Direction: direction})
	return nil
}

func (f *fakeConversations) History(_ context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeConversations) outbound() []string {
	var out []string
	for _, m := range f.messages {
		if m.Direction == models.DirectionOutbound {
			out = append(out, m.Content)
		}
	}
	return out
}

type fakeAppointments struct {
	appts     []*models.Appointment
	createErr error
	listErr   error
}

func (f *fakeAppointments) ListActiveFrom(_ context.Context, businessID uuid.UUID, from time.Time) ([]models.Appointment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Appointment
	for _, a := range f.appts {
		if a.BusinessID == businessID && isActive(a) && a.EndTime.After(from) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeAppointments) Create(_ context.Context, appt *models.Appointment) error {
	if f.createErr != nil {
		return f.createErr
	}
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	f.appts = append(f.appts, appt)
	return nil
}

func (f *fakeAppointments) FindActiveByStart(_ context.Context, businessID uuid.UUID, phone string, start time.Time) (*models.Appointment, error) {
	for _, a := range f.appts {
		if a.BusinessID == businessID && a.ContactPhone == phone && a.StartTime.Equal(start) && isActive(a) {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeAppointments) find(id uuid.UUID) *models.Appointment {
	for _, a := range f.appts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (f *fakeAppointments) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	a := f.find(id)
	if a == nil {
		return repositories.ErrNotFound
	}
	a.Status = status
	return nil
}

func (f *fakeAppointments) SetExternalEventID(_ context.Context, id uuid.UUID, eventID string) error {
	a := f.find(id)
	if a == nil {
		return repositories.ErrNotFound
	}
	a.ExternalEventID = &eventID
	return nil
}

func (f *fakeAppointments) CompletePast(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, a := range f.appts {
		if isActive(a) && a.EndTime.Before(now) {
			a.Status = models.AppointmentCompleted
			n++
		}
	}
	return n, nil
}

// fakeEngine returns a canned outcome and records what it was given.
type fakeEngine struct {
	out     agent.Outcome
	calls   int
	actx    agent.Context
	history []openai.ChatCompletionMessage
}

func (f *fakeEngine) Run(_ context.Context, actx agent.Context, history []openai.ChatCompletionMessage) agent.Outcome {
	f.calls++
	f.actx = actx
	f.history = history
	return f.out
}

type sent struct {
	instance, phone, text string
}

type fakeGateway struct {
	sent []sent
	err  error
}

func (f *fakeGateway) SendText(_ context.Context, instance, phone, text string) error {
	f.sent = append(f.sent, sent{instance, phone, text})
	return f.err
}

func (f *fakeGateway) GetProviderName() string { return "fake" }

type fakeCalendar struct {
	created   []calendar.Event
	deleted   []string
	createErr error
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ calendar.Credentials, _ string, ev calendar.Event) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, ev)
	return "evt_1", nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _ calendar.Credentials, _ string, eventID string) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

type failingLocker struct{}

func (failingLocker) Acquire(context.Context, string) (func(), error) {
	return nil, errors.New("redis down")
}
