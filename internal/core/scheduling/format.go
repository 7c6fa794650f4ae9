package scheduling

import (
	"strings"
	"time"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/i18n"
)

// FormatSlots renders a bullet list of slots for prompts and replies. An
// empty list renders the localized "no slots" sentence.
func FormatSlots(slots []Slot, lang i18n.Language) string {
	if len(slots) == 0 {
		return i18n.T(lang, i18n.KeyNoSlots) + "."
	}

	var b strings.Builder
	b.WriteString(i18n.T(lang, i18n.KeyAvailableSlots))
	b.WriteString(":")
	for _, s := range slots {
		b.WriteString("\n- ")
		b.WriteString(i18n.FormatDateTime(lang, s.Start))
	}
	return b.String()
}

// ScheduleSummary lists the working week for the system prompt.
func ScheduleSummary(hours []WorkingHour, lang i18n.Language) string {
	var lines []string
	for d := 0; d < 7; d++ {
		day := time.Weekday(d)
		wh, open := ActiveHourFor(hours, day)
		if !open {
			continue
		}
		lines = append(lines, "- "+i18n.Weekday(lang, day)+": "+wh.StartTime+" - "+wh.EndTime)
	}
	return strings.Join(lines, "\n")
}
