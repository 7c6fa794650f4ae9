package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/calendar"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/models"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/repositories"
)

type recordingScheduler struct {
	name, spec string
	job        func()
}

func (r *recordingScheduler) Add(name, spec string, job func()) error {
	r.name, r.spec, r.job = name, spec, job
	return nil
}

func TestHousekeeping_CompletePast(t *testing.T) {
	biz := uuid.New()
	past := &models.Appointment{ID: uuid.New(), BusinessID: biz, StartTime: testNow.Add(-2 * time.Hour), EndTime: testNow.Add(-time.Hour), Status: models.AppointmentConfirmed}
	future := &models.Appointment{ID: uuid.New(), BusinessID: biz, StartTime: testNow.Add(time.Hour), EndTime: testNow.Add(2 * time.Hour), Status: models.AppointmentScheduled}
	cancelled := &models.Appointment{ID: uuid.New(), BusinessID: biz, StartTime: testNow.Add(-3 * time.Hour), EndTime: testNow.Add(-2 * time.Hour), Status: models.AppointmentCancelled}
	appts := &fakeAppointments{appts: []*models.Appointment{past, future, cancelled}}

	h := NewHousekeeping(appts)
	h.now = func() time.Time { return testNow }

	sched := &recordingScheduler{}
	if err := h.Register(sched); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sched.spec != CompletePastSchedule {
		t.Errorf("spec = %q", sched.spec)
	}

	sched.job()

	if past.Status != models.AppointmentCompleted {
		t.Errorf("past status = %q", past.Status)
	}
	if future.Status != models.AppointmentScheduled || cancelled.Status != models.AppointmentCancelled {
		t.Errorf("untouched appointments changed: %q %q", future.Status, cancelled.Status)
	}
}

type fakeOAuth struct {
	exchangeErr error
	listErr     error
	creds       calendar.Credentials
}

func (f *fakeOAuth) AuthURL(state string) string { return "https://accounts.example/auth?state=" + state }

func (f *fakeOAuth) Exchange(context.Context, string) (calendar.Credentials, error) {
	return f.creds, f.exchangeErr
}

func (f *fakeOAuth) PrimaryCalendarID(context.Context, calendar.Credentials) (string, error) {
	if f.listErr != nil {
		return "", f.listErr
	}
	return "owner@gmail.com", nil
}

func calendarFixture() (*fakeBusinesses, uuid.UUID) {
	biz := models.Business{ID: uuid.New(), Name: "Sol"}
	return &fakeBusinesses{instances: map[string]*models.WhatsAppInstance{
		"sol-1": {ID: uuid.New(), BusinessID: biz.ID, InstanceName: "sol-1", Business: biz},
	}}, biz.ID
}

func TestCalendarService_Connect(t *testing.T) {
	businesses, bizID := calendarFixture()
	oauth := &fakeOAuth{creds: calendar.Credentials{AccessToken: "a", RefreshToken: "r", Expiry: testNow}}
	svc := NewCalendarService(businesses, oauth)

	url, err := svc.AuthURL(context.Background(), bizID)
	if err != nil || url != "https://accounts.example/auth?state="+bizID.String() {
		t.Fatalf("AuthURL = %q, %v", url, err)
	}
	if _, err := svc.AuthURL(context.Background(), uuid.New()); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("unknown business err = %v", err)
	}

	conn, err := svc.Connect(context.Background(), bizID.String(), "code-1")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if conn.CalendarID != "owner@gmail.com" || conn.RefreshToken != "r" || !conn.TokenExpiry.Equal(testNow) {
		t.Errorf("conn = %+v", conn)
	}
	if len(businesses.saved) != 1 {
		t.Errorf("saved = %d", len(businesses.saved))
	}
}

func TestCalendarService_ConnectFallbacksAndErrors(t *testing.T) {
	businesses, bizID := calendarFixture()

	svc := NewCalendarService(businesses, &fakeOAuth{listErr: errors.New("boom")})
	conn, err := svc.Connect(context.Background(), bizID.String(), "code")
	if err != nil || conn.CalendarID != "primary" {
		t.Errorf("conn = %+v, err = %v", conn, err)
	}

	if _, err := svc.Connect(context.Background(), "not-a-uuid", "code"); err == nil {
		t.Error("expected error for bad state")
	}

	svc = NewCalendarService(businesses, &fakeOAuth{exchangeErr: calendar.ErrNoRefreshToken})
	if _, err := svc.Connect(context.Background(), bizID.String(), "code"); !errors.Is(err, calendar.ErrNoRefreshToken) {
		t.Errorf("err = %v", err)
	}
}

type fakeManager struct {
	qr         []byte
	state      string
	owner      string
	webhookURL string
	err        error
}

func (f *fakeManager) Connect(context.Context, string) ([]byte, string, error) {
	return f.qr, f.state, f.err
}

func (f *fakeManager) State(context.Context, string) (string, string, error) {
	return f.state, f.owner, f.err
}

func (f *fakeManager) SetWebhook(_ context.Context, _ string, url string) error {
	f.webhookURL = url
	return nil
}

func TestInstanceService(t *testing.T) {
	businesses, bizID := calendarFixture()
	instID := businesses.instances["sol-1"].ID
	mgr := &fakeManager{qr: []byte("png"), state: "connecting"}
	svc := NewInstanceService(businesses, mgr, "https://bot.example/webhook/evolution")

	qr, st, err := svc.Connect(context.Background(), bizID)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if string(qr) != "png" || st.State != "connecting" || st.InstanceName != "sol-1" {
		t.Errorf("qr=%q status=%+v", qr, st)
	}
	if mgr.webhookURL != "https://bot.example/webhook/evolution" || businesses.statuses[instID] != "connecting" {
		t.Errorf("webhook=%q status=%q", mgr.webhookURL, businesses.statuses[instID])
	}

	mgr.state, mgr.owner = "open", "5511999990000"
	st, err = svc.Status(context.Background(), bizID)
	if err != nil || st.State != "open" || st.Owner != "5511999990000" {
		t.Errorf("Status = %+v, %v", st, err)
	}
	if businesses.statuses[instID] != "open" {
		t.Errorf("status not cached: %q", businesses.statuses[instID])
	}

	if _, err := svc.Status(context.Background(), uuid.New()); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("unknown business err = %v", err)
	}
}
