package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// LeadTime is the minimum distance between now and the start of an offered slot.
	LeadTime = time.Hour
	// MaxSlots caps every generated listing.
	MaxSlots = 10
	// DefaultDaysAhead is the horizon used to build the agent context.
	DefaultDaysAhead = 7
)

// ErrSlotTaken is returned when a booking overlaps an active appointment.
var ErrSlotTaken = errors.New("slot already taken")

// WorkingHour is one weekday opening window in the business zone.
type WorkingHour struct {
	DayOfWeek time.Weekday
	StartTime string // HH:mm
	EndTime   string // HH:mm
	IsActive  bool
}

// Service is a bookable offering with its own duration in minutes.
type Service struct {
	Name        string
	Duration    int
	Price       float64
	Description string
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open ranges intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Slot is a bookable start time.
type Slot struct {
	Start    time.Time
	Duration time.Duration
}

func (s Slot) End() time.Time {
	return s.Start.Add(s.Duration)
}

// Date returns the slot date as YYYY-MM-DD in the slot's location.
func (s Slot) Date() string {
	return s.Start.Format("2006-01-02")
}

// Time returns the slot start as HH:mm in the slot's location.
func (s Slot) Time() string {
	return s.Start.Format("15:04")
}

// ActiveHourFor returns the active working hour for a weekday, if any.
func ActiveHourFor(hours []WorkingHour, day time.Weekday) (WorkingHour, bool) {
	for _, wh := range hours {
		if wh.DayOfWeek == day && wh.IsActive {
			return wh, true
		}
	}
	return WorkingHour{}, false
}

// FindService matches a service name case-insensitively.
func FindService(services []Service, name string) (Service, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Service{}, false
	}
	for _, svc := range services {
		if strings.EqualFold(strings.TrimSpace(svc.Name), name) {
			return svc, true
		}
	}
	return Service{}, false
}

// parseClock accepts HH:mm and HH:mm:ss, the latter being what Postgres
// returns for TIME columns.
func parseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, perr := time.Parse(layout, s); perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("invalid clock value %q", s)
}

// At combines a calendar day with an HH:mm clock value in loc.
func At(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.In(loc).Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc), nil
}
