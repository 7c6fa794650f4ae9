package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/i18n"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/scheduling"
)

// Context is everything the assistant knows about the business for one turn.
// It is rebuilt for every inbound message and never stored.
type Context struct {
	BusinessName        string
	Services            []scheduling.Service
	WorkingHours        []scheduling.WorkingHour
	AppointmentDuration int
	CustomPrompt        string
	AvailableSlots      []scheduling.Slot
	Language            i18n.Language
	// WelcomeMessage opens a new conversation; empty uses the localized greeting.
	WelcomeMessage string

	// Inputs for on-demand availability checks.
	Existing []scheduling.Interval
	Buffer   time.Duration
	Now      time.Time
	Location *time.Location
}

func (c Context) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

const policyBlock = `RULES:
1. Greet the customer and ask which service they need.
2. Before proposing any time, call check_availability to get real availability. Never invent or guess a free slot.
3. Only offer times returned by check_availability or listed under AVAILABLE SLOTS.
4. To book, collect date, time, service and the customer's name, then call create_appointment.
5. To cancel, confirm the date and time of the existing appointment, then call cancel_appointment.
6. Dates use YYYY-MM-DD and times use HH:mm (24h).`

const legacyFormatBlock = `If tools are unavailable, append exactly one block at the end of your message instead:
[APPOINTMENT_DATA]{"action":"schedule","date":"YYYY-MM-DD","time":"HH:mm","service":"service_name","client_name":"customer_name"}[/APPOINTMENT_DATA]
[APPOINTMENT_DATA]{"action":"cancel","date":"YYYY-MM-DD","time":"HH:mm"}[/APPOINTMENT_DATA]
[APPOINTMENT_DATA]{"action":"check_availability","date":"YYYY-MM-DD"}[/APPOINTMENT_DATA]`

// SystemPrompt renders the system instruction for the completion service.
func SystemPrompt(c Context) string {
	var b strings.Builder

	name := c.BusinessName
	if name == "" {
		name = "Negocio"
	}

	fmt.Fprintf(&b, "You are the virtual assistant of %q. Your main job is to help customers book appointments over WhatsApp.\n\n", name)

	b.WriteString("BUSINESS:\n")
	fmt.Fprintf(&b, "- Name: %s\n", name)
	fmt.Fprintf(&b, "- Default appointment length: %d minutes\n", c.AppointmentDuration)
	if !c.Now.IsZero() {
		now := c.Now.In(c.location())
		fmt.Fprintf(&b, "- Current date and time: %s (%s)\n", now.Format("2006-01-02 15:04"), i18n.Weekday(c.Language, now.Weekday()))
	}

	b.WriteString("\nSERVICES:\n")
	if len(c.Services) == 0 {
		b.WriteString("- (no services configured)\n")
	}
	for _, s := range c.Services {
		b.WriteString("- " + s.Name)
		if s.Description != "" {
			b.WriteString(": " + s.Description)
		}
		if s.Duration > 0 {
			fmt.Fprintf(&b, " (%d min)", s.Duration)
		}
		if s.Price > 0 {
			fmt.Fprintf(&b, " - $%.2f", s.Price)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nOPENING HOURS:\n")
	b.WriteString(scheduling.ScheduleSummary(c.WorkingHours, c.Language))
	b.WriteString("\n\nAVAILABLE SLOTS:\n")
	b.WriteString(scheduling.FormatSlots(c.AvailableSlots, c.Language))
	b.WriteString("\n\n")

	b.WriteString(policyBlock)
	b.WriteString("\n\n")
	b.WriteString(legacyFormatBlock)
	welcome := strings.TrimSpace(c.WelcomeMessage)
	if welcome == "" {
		welcome = i18n.T(c.Language, i18n.KeyGreeting) + ", " + name
	}
	fmt.Fprintf(&b, "\n\nOpen a new conversation with: %q", welcome)

	b.WriteString("\n\nKeep a professional but friendly tone. ")
	b.WriteString(i18n.Directive(c.Language))

	if strings.TrimSpace(c.CustomPrompt) != "" {
		b.WriteString("\n\nADDITIONAL BUSINESS INSTRUCTIONS:\n")
		b.WriteString(strings.TrimSpace(c.CustomPrompt))
		b.WriteString("\n\nThese instructions complement, and never replace, booking, cancelling and checking appointments.")
	}

	return b.String()
}

// CheckAvailability answers the check_availability tool. An empty date lists
// the precomputed slots of the coming days.
func (c Context) CheckAvailability(date, service string) string {
	svc, _ := scheduling.FindService(c.Services, service)

	if date == "" {
		if svc.Duration <= 0 {
			return scheduling.FormatSlots(c.AvailableSlots, c.Language)
		}
		return scheduling.FormatSlots(scheduling.GenerateSlots(c.slotRequest(svc.Duration, time.Time{}, scheduling.DefaultDaysAhead)), c.Language)
	}

	if r := scheduling.Validate(scheduling.Action{Kind: scheduling.ActionCheckAvailability, Date: date}, scheduling.ValidationContext{}); !r.Valid {
		return i18n.T(c.Language, i18n.Key(r.Reason)) + "."
	}
	day, err := scheduling.ParseLocal(date, "00:00", c.location())
	if err != nil {
		return i18n.T(c.Language, i18n.KeyInvalidDateFormat) + "."
	}

	if _, open := scheduling.ActiveHourFor(c.WorkingHours, day.Weekday()); !open {
		return i18n.ClosedOn(c.Language, day.Weekday())
	}

	slots := scheduling.GenerateSlots(c.slotRequest(svc.Duration, day, 1))
	return scheduling.FormatSlots(slots, c.Language)
}

func (c Context) slotRequest(serviceDuration int, firstDay time.Time, days int) scheduling.SlotRequest {
	return scheduling.SlotRequest{
		WorkingHours:    c.WorkingHours,
		DefaultDuration: c.AppointmentDuration,
		ServiceDuration: serviceDuration,
		Existing:        c.Existing,
		DaysAhead:       days,
		Buffer:          c.Buffer,
		Now:             c.Now,
		Location:        c.location(),
		FirstDay:        firstDay,
	}
}
