package scheduling

import (
	"strings"
	"testing"
	"time"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/i18n"
)

func validationContext() ValidationContext {
	return ValidationContext{
		Services: []Service{{Name: "Corte", Duration: 30}, {Name: "Tinte", Duration: 90}},
		WorkingHours: []WorkingHour{
			{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "18:00", IsActive: true},
			{DayOfWeek: time.Tuesday, StartTime: "09:00", EndTime: "18:00", IsActive: true},
			{DayOfWeek: time.Sunday, StartTime: "09:00", EndTime: "12:00", IsActive: false},
		},
		Now:      at(13, 8, 0),
		Location: time.UTC,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   Reason
	}{
		{"valid schedule", Action{Kind: ActionSchedule, Date: "2025-10-14", Time: "10:00", ClientName: "Ana"}, ReasonNone},
		{"service is case-insensitive", Action{Kind: ActionSchedule, Date: "2025-10-14", Time: "10:00", ClientName: "Ana", Service: "corte"}, ReasonNone},
		{"missing date is reported first", Action{Kind: ActionSchedule}, ReasonMissingDate},
		{"missing time", Action{Kind: ActionSchedule, Date: "2025-10-14", ClientName: "Ana"}, ReasonMissingTime},
		{"missing client name", Action{Kind: ActionSchedule, Date: "2025-10-14", Time: "10:00"}, ReasonMissingClientName},
		{"blank client name", Action{Kind: ActionSchedule, Date: "2025-10-14", Time: "10:00", ClientName: "  "}, ReasonMissingClientName},
		{"bad date format", Action{Kind: ActionSchedule, Date: "14/10/2025", Time: "10:00", ClientName: "Ana"}, ReasonInvalidDateFormat},
		{"bad time format", Action{Kind: ActionSchedule, Date: "2025-10-14", Time: "10h", ClientName: "Ana"}, ReasonInvalidTimeFormat},
		{"single digit hour", Action{Kind: ActionSchedule, Date: "2025-10-14", Time: "9:00", ClientName: "Ana"}, ReasonInvalidTimeFormat},
		{"past", Action{Kind: ActionSchedule, Date: "2025-10-13", Time: "07:00", ClientName: "Ana"}, ReasonMustBeFuture},
		{"exactly now is not future", Action{Kind: ActionSchedule, Date: "2025-10-13", Time: "08:00", ClientName: "Ana"}, ReasonMustBeFuture},
		{"inactive sunday", Action{Kind: ActionSchedule, Date: "2025-10-19", Time: "10:00", ClientName: "Ana"}, ReasonClosedDay},
		{"no working hour wednesday", Action{Kind: ActionSchedule, Date: "2025-10-15", Time: "10:00", ClientName: "Ana"}, ReasonClosedDay},
		{"unknown service", Action{Kind: ActionSchedule, Date: "2025-10-14", Time: "10:00", ClientName: "Ana", Service: "Masaje"}, ReasonUnknownService},
		{"cancel needs date", Action{Kind: ActionCancel, Time: "10:00"}, ReasonMissingDate},
		{"cancel needs time", Action{Kind: ActionCancel, Date: "2025-10-14"}, ReasonMissingTime},
		{"cancel in the past is fine", Action{Kind: ActionCancel, Date: "2020-01-01", Time: "10:00"}, ReasonNone},
		{"availability needs date", Action{Kind: ActionCheckAvailability}, ReasonMissingDate},
		{"availability date format", Action{Kind: ActionCheckAvailability, Date: "mañana"}, ReasonInvalidDateFormat},
		{"availability ok", Action{Kind: ActionCheckAvailability, Date: "2025-10-14"}, ReasonNone},
		{"unknown action", Action{Kind: "reschedule"}, ReasonUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.action, validationContext())
			if got.Reason != tt.want {
				t.Fatalf("Validate() reason = %q, want %q", got.Reason, tt.want)
			}
			if got.Valid != (tt.want == ReasonNone) {
				t.Fatalf("Validate() valid = %v with reason %q", got.Valid, got.Reason)
			}
		})
	}
}

func TestValidateAcceptsSyntacticDate(t *testing.T) {
	// 2025-02-30 normalizes to Sunday March 2.
	vc := validationContext()
	vc.WorkingHours = append(vc.WorkingHours, WorkingHour{DayOfWeek: time.Sunday, StartTime: "09:00", EndTime: "12:00", IsActive: true})
	vc.Now = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	got := Validate(Action{Kind: ActionSchedule, Date: "2025-02-30", Time: "10:00", ClientName: "Ana"}, vc)
	if !got.Valid {
		t.Fatalf("2025-02-30 should pass syntactic validation, got %q", got.Reason)
	}
}

func TestValidateIsPure(t *testing.T) {
	vc := validationContext()
	a := Action{Kind: ActionSchedule, Date: "2025-10-14", Time: "10:00", ClientName: "Ana"}

	first := Validate(a, vc)
	second := Validate(a, vc)
	if first != second {
		t.Fatalf("Validate is not deterministic: %+v vs %+v", first, second)
	}
}

func TestParseLocal(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)

	got, err := ParseLocal("2025-10-14", "10:30", brt)
	if err != nil {
		t.Fatalf("ParseLocal: %v", err)
	}
	if got.UTC() != time.Date(2025, time.October, 14, 13, 30, 0, 0, time.UTC) {
		t.Errorf("ParseLocal = %v", got)
	}
	if _, err := ParseLocal("tomorrow", "10:30", brt); err == nil {
		t.Error("expected error for non-numeric date")
	}
}

func TestReasonsAreTranslated(t *testing.T) {
	reasons := []Reason{
		ReasonUnknownAction, ReasonMissingDate, ReasonMissingTime, ReasonMissingClientName,
		ReasonInvalidDateFormat, ReasonInvalidTimeFormat, ReasonMustBeFuture, ReasonClosedDay, ReasonUnknownService,
	}
	for _, lang := range []i18n.Language{i18n.Spanish, i18n.English, i18n.Portuguese} {
		for _, r := range reasons {
			if got := i18n.T(lang, i18n.Key(r)); got == string(r) {
				t.Errorf("reason %q has no %s translation", r, lang)
			}
		}
	}
}

func TestFormatSlots(t *testing.T) {
	slots := []Slot{{Start: at(13, 9, 0), Duration: time.Hour}, {Start: at(13, 10, 0), Duration: time.Hour}}

	got := FormatSlots(slots, i18n.Spanish)
	want := "Horarios disponibles:\n- lunes 13 de octubre a las 09:00\n- lunes 13 de octubre a las 10:00"
	if got != want {
		t.Errorf("FormatSlots = %q, want %q", got, want)
	}

	if empty := FormatSlots(nil, i18n.English); empty != "Sorry, no slots available." {
		t.Errorf("FormatSlots(nil) = %q", empty)
	}
}

func TestScheduleSummary(t *testing.T) {
	got := ScheduleSummary(validationContext().WorkingHours, i18n.English)
	if !strings.Contains(got, "Monday: 09:00 - 18:00") || strings.Contains(got, "Sunday") {
		t.Errorf("ScheduleSummary = %q", got)
	}
}
