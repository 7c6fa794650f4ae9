package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"gorm.io/datatypes"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/agent"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/scheduling"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/whatsapp"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/models"
)

// Monday 2025-10-13 08:00 UTC
var testNow = time.Date(2025, time.October, 13, 8, 0, 0, 0, time.UTC)

const testPhone = "5511999990000"

type harness struct {
	biz      models.Business
	biznss   *fakeBusinesses
	convs    *fakeConversations
	appts    *fakeAppointments
	engine   *fakeEngine
	gateway  *fakeGateway
	calendar *fakeCalendar
	svc      *WebhookService
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	biz := models.Business{ID: uuid.New(), Name: "Barbería Sol", Timezone: "UTC", AppointmentDuration: 60, BufferMinutes: 5, Language: "es"}
	var hours []models.WorkingHour
	for d := 1; d <= 5; d++ {
		hours = append(hours, models.WorkingHour{BusinessID: biz.ID, DayOfWeek: d, StartTime: "09:00", EndTime: "18:00", IsActive: true})
	}

	h := &harness{
		biz: biz,
		biznss: &fakeBusinesses{
			instances: map[string]*models.WhatsAppInstance{
				"sol-1": {ID: uuid.New(), BusinessID: biz.ID, InstanceName: "sol-1", Business: biz},
			},
			hours: hours,
			config: &models.AgentConfig{
				BusinessID:   biz.ID,
				CustomPrompt: "Ofrecer café",
				Services:     datatypes.JSONSlice[models.Service]{{Name: "Corte", Duration: 45, Price: 25}},
			},
		},
		convs:    &fakeConversations{},
		appts:    &fakeAppointments{},
		engine:   &fakeEngine{out: agent.Outcome{Reply: "¡Hola! ¿En qué te puedo ayudar?"}},
		gateway:  &fakeGateway{},
		calendar: &fakeCalendar{},
	}

	opts = append([]Option{WithClock(func() time.Time { return testNow }), WithCalendar(h.calendar)}, opts...)
	h.svc = NewWebhookService(h.biznss, h.convs, h.appts, h.engine, h.gateway, opts...)
	return h
}

func inbound(text string) whatsapp.InboundEvent {
	return whatsapp.InboundEvent{
		Event:     whatsapp.EventMessagesUpsert,
		Instance:  "sol-1",
		MessageID: "M1",
		Phone:     testPhone,
		Name:      "Ana",
		Text:      text,
	}
}

func (h *harness) process(t *testing.T, ev whatsapp.InboundEvent) Outcome {
	t.Helper()
	out, err := h.svc.Process(context.Background(), ev)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return out
}

func TestProcess_FiltersEvents(t *testing.T) {
	tests := []struct {
		name string
		ev   whatsapp.InboundEvent
		want Outcome
	}{
		{"status update", whatsapp.InboundEvent{Event: "connection.update", Instance: "sol-1"}, OutcomeIgnored},
		{"own echo", func() whatsapp.InboundEvent { e := inbound("hola"); e.FromMe = true; return e }(), OutcomeIgnored},
		{"no text", inbound("   "), OutcomeNoText},
		{"unknown instance", func() whatsapp.InboundEvent { e := inbound("hola"); e.Instance = "ghost"; return e }(), OutcomeUnknownInstance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if got := h.process(t, tt.ev); got != tt.want {
				t.Errorf("outcome = %q, want %q", got, tt.want)
			}
			if h.engine.calls != 0 || len(h.gateway.sent) != 0 || len(h.convs.messages) != 0 {
				t.Errorf("side effects on filtered event: engine=%d sent=%d msgs=%d", h.engine.calls, len(h.gateway.sent), len(h.convs.messages))
			}
		})
	}
}

func TestProcess_PlainReply(t *testing.T) {
	h := newHarness(t)

	if got := h.process(t, inbound("hola")); got != OutcomeReplied {
		t.Fatalf("outcome = %q", got)
	}

	if len(h.convs.convs) != 1 {
		t.Fatalf("conversations = %d", len(h.convs.convs))
	}
	msgs := h.convs.messages
	if len(msgs) != 2 || msgs[0].Direction != models.DirectionInbound || msgs[1].Content != "¡Hola! ¿En qué te puedo ayudar?" {
		t.Errorf("messages = %+v", msgs)
	}
	if len(h.gateway.sent) != 1 || h.gateway.sent[0] != (sent{"sol-1", testPhone, "¡Hola! ¿En qué te puedo ayudar?"}) {
		t.Errorf("sent = %+v", h.gateway.sent)
	}

	// the inbound message is stored before the engine runs
	last := h.engine.history[len(h.engine.history)-1]
	if last.Role != openai.ChatMessageRoleUser || last.Content != "hola" {
		t.Errorf("last history message = %+v", last)
	}
}

func TestProcess_BuildsAgentContext(t *testing.T) {
	h := newHarness(t)
	h.appts.appts = []*models.Appointment{{
		ID: uuid.New(), BusinessID: h.biz.ID, ContactPhone: "1",
		StartTime: testNow.Add(time.Hour), EndTime: testNow.Add(2 * time.Hour), Status: models.AppointmentScheduled,
	}}

	h.process(t, inbound("hola"))

	actx := h.engine.actx
	if actx.BusinessName != "Barbería Sol" || actx.AppointmentDuration != 60 || actx.CustomPrompt != "Ofrecer café" {
		t.Errorf("actx = %+v", actx)
	}
	if actx.Buffer != 5*time.Minute || !actx.Now.Equal(testNow) || len(actx.Existing) != 1 {
		t.Errorf("buffer=%v now=%v existing=%v", actx.Buffer, actx.Now, actx.Existing)
	}
	if len(actx.Services) != 1 || actx.Services[0].Duration != 45 {
		t.Errorf("services = %+v", actx.Services)
	}
	if len(actx.WorkingHours) != 5 || actx.WorkingHours[0].DayOfWeek != time.Monday {
		t.Errorf("hours = %+v", actx.WorkingHours)
	}

	// 09:00-10:05 is held, so 09:00 and 10:00 are both blocked
	if len(actx.AvailableSlots) == 0 || actx.AvailableSlots[0].Time() != "11:00" {
		t.Errorf("first slot = %+v", actx.AvailableSlots)
	}
	if len(actx.AvailableSlots) > scheduling.MaxSlots {
		t.Errorf("slots = %d, cap is %d", len(actx.AvailableSlots), scheduling.MaxSlots)
	}
}

func TestProcess_ScheduleCreatesAppointment(t *testing.T) {
	h := newHarness(t)
	expiry := testNow.Add(time.Hour)
	h.biznss.calendar = &models.CalendarConnection{BusinessID: h.biz.ID, AccessToken: "a", RefreshToken: "r", TokenExpiry: &expiry, CalendarID: "primary"}
	h.engine.out = agent.Outcome{
		Reply:  "¡Listo Ana!",
		Action: scheduling.Action{Kind: scheduling.ActionSchedule, Date: "2025-10-14", Time: "10:00", Service: "corte", ClientName: "Ana Souza"},
	}

	if got := h.process(t, inbound("quiero una cita mañana a las 10")); got != OutcomeReplied {
		t.Fatalf("outcome = %q", got)
	}

	if len(h.appts.appts) != 1 {
		t.Fatalf("appointments = %d", len(h.appts.appts))
	}
	a := h.appts.appts[0]
	start := time.Date(2025, 10, 14, 10, 0, 0, 0, time.UTC)
	if !a.StartTime.Equal(start) || !a.EndTime.Equal(start.Add(45*time.Minute)) {
		t.Errorf("interval = %v - %v", a.StartTime, a.EndTime)
	}
	if a.Status != models.AppointmentScheduled || a.ContactName != "Ana Souza" || *a.ServiceName != "Corte" || *a.ConversationID != h.convs.convs[0].ID {
		t.Errorf("appointment = %+v", a)
	}
	if a.ExternalEventID == nil || *a.ExternalEventID != "evt_1" {
		t.Errorf("external event id = %v", a.ExternalEventID)
	}
	if len(h.calendar.created) != 1 || h.calendar.created[0].Summary != "Cita: Ana Souza - Corte" {
		t.Errorf("calendar events = %+v", h.calendar.created)
	}

	reply := h.gateway.sent[0].text
	if !strings.HasPrefix(reply, "¡Listo Ana!") || !strings.Contains(reply, "martes 14 de octubre a las 10:00 (Corte)") {
		t.Errorf("reply = %q", reply)
	}
}

func TestProcess_ScheduleDefaultsDurationAndName(t *testing.T) {
	h := newHarness(t)
	h.engine.out = agent.Outcome{
		Reply:  "ok",
		Action: scheduling.Action{Kind: scheduling.ActionSchedule, Date: "2025-10-14", Time: "11:00", ClientName: " "},
	}
	// whitespace name still counts as missing
	if got := h.process(t, inbound("hola")); got != OutcomeRejected {
		t.Fatalf("outcome = %q", got)
	}

	h = newHarness(t)
	h.engine.out = agent.Outcome{
		Reply:  "ok",
		Action: scheduling.Action{Kind: scheduling.ActionSchedule, Date: "2025-10-14", Time: "11:00", ClientName: "Ana"},
	}
	h.process(t, inbound("hola"))
	a := h.appts.appts[0]
	if a.EndTime.Sub(a.StartTime) != time.Hour || a.ServiceName != nil {
		t.Errorf("appointment = %+v", a)
	}
	// no calendar connected
	if len(h.calendar.created) != 0 || a.ExternalEventID != nil {
		t.Errorf("calendar touched without a connection")
	}
}

func TestProcess_ScheduleOverlapIsRejected(t *testing.T) {
	h := newHarness(t)
	h.appts.appts = []*models.Appointment{{
		ID: uuid.New(), BusinessID: h.biz.ID, ContactPhone: "1",
		StartTime: time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 10, 14, 10, 0, 0, 0, time.UTC),
		Status:    models.AppointmentConfirmed,
	}}
	// 10:00 falls inside the 5 minute buffer of the 09:00 booking
	h.engine.out = agent.Outcome{
		Reply:  "¡Listo!",
		Action: scheduling.Action{Kind: scheduling.ActionSchedule, Date: "2025-10-14", Time: "10:00", ClientName: "Ana"},
	}

	if got := h.process(t, inbound("quiero una cita")); got != OutcomeReplied {
		t.Fatalf("outcome = %q", got)
	}
	if len(h.appts.appts) != 1 {
		t.Errorf("overlapping appointment was created")
	}
	reply := h.gateway.sent[0].text
	if !strings.Contains(reply, "Ese horario ya no está disponible") || strings.Contains(reply, "¡Listo!") {
		t.Errorf("reply = %q", reply)
	}
	// only the requested day is offered again
	if !strings.Contains(reply, "14 de octubre a las 11:00") || strings.Contains(reply, "13 de octubre") {
		t.Errorf("reply lists slots of other days: %q", reply)
	}
}

func TestProcess_ScheduleConstraintViolation(t *testing.T) {
	h := newHarness(t)
	h.appts.createErr = scheduling.ErrSlotTaken
	h.engine.out = agent.Outcome{
		Reply:  "¡Listo!",
		Action: scheduling.Action{Kind: scheduling.ActionSchedule, Date: "2025-10-14", Time: "10:00", ClientName: "Ana"},
	}

	if got := h.process(t, inbound("quiero una cita")); got != OutcomeReplied {
		t.Fatalf("outcome = %q", got)
	}
	if !strings.Contains(h.gateway.sent[0].text, "Ese horario ya no está disponible") {
		t.Errorf("reply = %q", h.gateway.sent[0].text)
	}
}

func TestProcess_CalendarFailureDoesNotFailTurn(t *testing.T) {
	h := newHarness(t)
	h.biznss.calendar = &models.CalendarConnection{BusinessID: h.biz.ID, AccessToken: "a"}
	h.calendar.createErr = errors.New("403 forbidden")
	h.engine.out = agent.Outcome{
		Reply:  "ok",
		Action: scheduling.Action{Kind: scheduling.ActionSchedule, Date: "2025-10-14", Time: "10:00", ClientName: "Ana"},
	}

	if got := h.process(t, inbound("hola")); got != OutcomeReplied {
		t.Fatalf("outcome = %q", got)
	}
	if len(h.appts.appts) != 1 || h.appts.appts[0].ExternalEventID != nil {
		t.Errorf("appointments = %+v", h.appts.appts)
	}
}

func TestProcess_ValidationRejects(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		action scheduling.Action
		want   string
	}{
		{
			name:   "missing name",
			text:   "quiero una cita",
			action: scheduling.Action{Kind: scheduling.ActionSchedule, Date: "2025-10-14", Time: "10:00"},
			want:   "❌ Falta el nombre del cliente. Por favor, intenta nuevamente.",
		},
		{
			name:   "past",
			text:   "quiero una cita",
			action: scheduling.Action{Kind: scheduling.ActionSchedule, Date: "2025-10-10", Time: "10:00", ClientName: "Ana"},
			want:   "❌ La cita debe ser en el futuro. Por favor, intenta nuevamente.",
		},
		{
			name:   "closed day in english",
			text:   "Hi, I want to book an appointment",
			action: scheduling.Action{Kind: scheduling.ActionSchedule, Date: "2025-10-19", Time: "10:00", ClientName: "Ana"},
			want:   "❌ We are not open that day. Please try again.",
		},
		{
			name:   "unknown service",
			text:   "quiero una cita",
			action: scheduling.Action{Kind: scheduling.ActionSchedule, Date: "2025-10-14", Time: "10:00", ClientName: "Ana", Service: "Tinte"},
			want:   "❌ Ese servicio no está disponible. Por favor, intenta nuevamente.",
		},
		{
			name:   "cancel without time",
			text:   "quiero cancelar",
			action: scheduling.Action{Kind: scheduling.ActionCancel, Date: "2025-10-14"},
			want:   "❌ Falta la hora de la cita. Por favor, intenta nuevamente.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.engine.out = agent.Outcome{Reply: "¡Listo!", Action: tt.action}

			if got := h.process(t, inbound(tt.text)); got != OutcomeRejected {
				t.Fatalf("outcome = %q", got)
			}
			if len(h.appts.appts) != 0 {
				t.Errorf("appointment created on invalid action")
			}
			if len(h.gateway.sent) != 1 || h.gateway.sent[0].text != tt.want {
				t.Errorf("sent = %+v", h.gateway.sent)
			}
			if out := h.convs.outbound(); len(out) != 1 || out[0] != tt.want {
				t.Errorf("outbound = %v", out)
			}
		})
	}
}

func TestProcess_CancelExisting(t *testing.T) {
	h := newHarness(t)
	h.biznss.calendar = &models.CalendarConnection{BusinessID: h.biz.ID, AccessToken: "a", CalendarID: "primary"}
	eventID := "evt_9"
	appt := &models.Appointment{
		ID: uuid.New(), BusinessID: h.biz.ID, ContactPhone: testPhone,
		StartTime: time.Date(2025, 10, 14, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 10, 14, 11, 0, 0, 0, time.UTC),
		Status:    models.AppointmentScheduled, ExternalEventID: &eventID,
	}
	h.appts.appts = []*models.Appointment{appt}
	h.engine.out = agent.Outcome{
		Reply:  "Cancelado.",
		Action: scheduling.Action{Kind: scheduling.ActionCancel, Date: "2025-10-14", Time: "10:00"},
	}

	if got := h.process(t, inbound("quiero cancelar mi cita")); got != OutcomeReplied {
		t.Fatalf("outcome = %q", got)
	}
	if appt.Status != models.AppointmentCancelled {
		t.Errorf("status = %q", appt.Status)
	}
	if len(h.calendar.deleted) != 1 || h.calendar.deleted[0] != "evt_9" {
		t.Errorf("deleted = %v", h.calendar.deleted)
	}
	if !strings.Contains(h.gateway.sent[0].text, "Cita cancelada") {
		t.Errorf("reply = %q", h.gateway.sent[0].text)
	}
}

func TestProcess_CancelUnknownIsNoop(t *testing.T) {
	h := newHarness(t)
	other := &models.Appointment{
		ID: uuid.New(), BusinessID: h.biz.ID, ContactPhone: "someone-else",
		StartTime: time.Date(2025, 10, 14, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 10, 14, 11, 0, 0, 0, time.UTC),
		Status:    models.AppointmentScheduled,
	}
	h.appts.appts = []*models.Appointment{other}
	h.engine.out = agent.Outcome{
		Reply:  "No encontré tu cita.",
		Action: scheduling.Action{Kind: scheduling.ActionCancel, Date: "2025-10-14", Time: "10:00"},
	}

	if got := h.process(t, inbound("cancelar")); got != OutcomeReplied {
		t.Fatalf("outcome = %q", got)
	}
	if other.Status != models.AppointmentScheduled {
		t.Errorf("another contact's appointment was cancelled")
	}
	if h.gateway.sent[0].text != "No encontré tu cita." {
		t.Errorf("reply = %q", h.gateway.sent[0].text)
	}
}

func TestProcess_CheckAvailabilityTag(t *testing.T) {
	h := newHarness(t)
	h.engine.out = agent.Outcome{
		Reply:  "Déjame revisar.",
		Action: scheduling.Action{Kind: scheduling.ActionCheckAvailability, Date: "2025-10-14"},
	}
	h.process(t, inbound("¿qué horario tienen el martes?"))

	reply := h.gateway.sent[0].text
	if strings.Contains(reply, "Déjame revisar") || !strings.Contains(reply, "martes 14 de octubre a las 09:00") {
		t.Errorf("reply = %q", reply)
	}

	h = newHarness(t)
	h.engine.out = agent.Outcome{
		Reply:  "Déjame revisar.",
		Action: scheduling.Action{Kind: scheduling.ActionCheckAvailability, Date: "2025-10-19"},
	}
	h.process(t, inbound("¿y el domingo?"))
	if reply := h.gateway.sent[0].text; !strings.Contains(reply, "no atendemos") {
		t.Errorf("closed day reply = %q", reply)
	}
}

func TestProcess_StorageFailureAfterPersist(t *testing.T) {
	h := newHarness(t)
	h.biznss.hoursErr = errors.New("connection refused")

	out, err := h.svc.Process(context.Background(), inbound("hola"))
	if out != OutcomeFailed || err == nil {
		t.Fatalf("outcome=%q err=%v", out, err)
	}
	if len(h.convs.messages) != 1 || h.convs.messages[0].Direction != models.DirectionInbound {
		t.Errorf("inbound message should be kept: %+v", h.convs.messages)
	}
	if len(h.gateway.sent) != 0 || h.engine.calls != 0 {
		t.Errorf("no reply expected after a storage failure")
	}
}

func TestProcess_OutboundPersistFailure(t *testing.T) {
	h := newHarness(t)
	h.convs.appendErr = errors.New("disk full")

	out, err := h.svc.Process(context.Background(), inbound("hola"))
	if out != OutcomeFailed || err == nil {
		t.Fatalf("outcome=%q err=%v", out, err)
	}
	if len(h.gateway.sent) != 0 {
		t.Errorf("reply sent although it was not stored")
	}
}

func TestProcess_SendFailureIsLoggedOnly(t *testing.T) {
	h := newHarness(t)
	h.gateway.err = errors.New("evolution down")

	if got := h.process(t, inbound("hola")); got != OutcomeReplied {
		t.Fatalf("outcome = %q", got)
	}
	if out := h.convs.outbound(); len(out) != 1 {
		t.Errorf("outbound = %v", out)
	}
}

func TestProcess_LockFailureDegrades(t *testing.T) {
	h := newHarness(t, WithLocker(failingLocker{}))
	if got := h.process(t, inbound("hola")); got != OutcomeReplied {
		t.Fatalf("outcome = %q", got)
	}
}

func TestProcess_ReusesActiveConversation(t *testing.T) {
	h := newHarness(t)
	h.process(t, inbound("hola"))
	h.process(t, inbound("quiero una cita"))

	if len(h.convs.convs) != 1 {
		t.Fatalf("conversations = %d", len(h.convs.convs))
	}
	if len(h.engine.history) != 3 || h.engine.history[1].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("history = %+v", h.engine.history)
	}
}

func TestIngestStateString(t *testing.T) {
	if StatePersisted.String() != "persisted" || StateReplied.String() != "replied" || IngestState(42).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
