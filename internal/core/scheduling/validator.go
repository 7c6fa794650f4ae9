package scheduling

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Reason is a stable validation failure code. The codes double as i18n keys.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonUnknownAction     Reason = "unknown_action"
	ReasonMissingDate       Reason = "missing_date"
	ReasonMissingTime       Reason = "missing_time"
	ReasonMissingClientName Reason = "missing_client_name"
	ReasonInvalidDateFormat Reason = "invalid_date_format"
	ReasonInvalidTimeFormat Reason = "invalid_time_format"
	ReasonMustBeFuture      Reason = "must_be_future"
	ReasonClosedDay         Reason = "closed_day"
	ReasonUnknownService    Reason = "unknown_service"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ValidationContext is the business data a booking request is checked against.
type ValidationContext struct {
	Services     []Service
	WorkingHours []WorkingHour
	Now          time.Time
	Location     *time.Location
}

// Result of Validate. Reason is empty when Valid.
type Result struct {
	Valid  bool
	Reason Reason
}

func valid() Result { return Result{Valid: true} }

func invalid(r Reason) Result { return Result{Reason: r} }

func (r Result) Error() string {
	if r.Valid {
		return ""
	}
	return string(r.Reason)
}

// Validate checks an action in a fixed order and stops at the first failure.
// It never looks at existing bookings.
func Validate(a Action, vc ValidationContext) Result {
	switch a.Kind {
	case ActionSchedule:
		return validateSchedule(a, vc)
	case ActionCancel:
		if r := requireDateTime(a); !r.Valid {
			return r
		}
		return checkFormats(a)
	case ActionCheckAvailability:
		if a.Date == "" {
			return invalid(ReasonMissingDate)
		}
		if !dateRe.MatchString(a.Date) {
			return invalid(ReasonInvalidDateFormat)
		}
		return valid()
	default:
		return invalid(ReasonUnknownAction)
	}
}

func validateSchedule(a Action, vc ValidationContext) Result {
	if r := requireDateTime(a); !r.Valid {
		return r
	}
	if strings.TrimSpace(a.ClientName) == "" {
		return invalid(ReasonMissingClientName)
	}
	if r := checkFormats(a); !r.Valid {
		return r
	}

	loc := vc.Location
	if loc == nil {
		loc = time.UTC
	}
	start, err := ParseLocal(a.Date, a.Time, loc)
	if err != nil {
		return invalid(ReasonInvalidDateFormat)
	}
	if !start.After(vc.Now) {
		return invalid(ReasonMustBeFuture)
	}

	if _, open := ActiveHourFor(vc.WorkingHours, start.Weekday()); !open {
		return invalid(ReasonClosedDay)
	}

	if a.Service != "" {
		if _, found := FindService(vc.Services, a.Service); !found {
			return invalid(ReasonUnknownService)
		}
	}

	return valid()
}

func requireDateTime(a Action) Result {
	if a.Date == "" {
		return invalid(ReasonMissingDate)
	}
	if a.Time == "" {
		return invalid(ReasonMissingTime)
	}
	return valid()
}

func checkFormats(a Action) Result {
	if !dateRe.MatchString(a.Date) {
		return invalid(ReasonInvalidDateFormat)
	}
	if !timeRe.MatchString(a.Time) {
		return invalid(ReasonInvalidTimeFormat)
	}
	return valid()
}

// ParseLocal turns syntactically valid YYYY-MM-DD and HH:mm strings into a
// time in loc. Out-of-range parts are normalized the way time.Date does, so
// 2025-02-30 lands on March 2.
func ParseLocal(date, clock string, loc *time.Location) (time.Time, error) {
	var y, mo, d, h, mi int
	if _, err := fmt.Sscanf(date, "%4d-%2d-%2d", &y, &mo, &d); err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	if _, err := fmt.Sscanf(clock, "%2d:%2d", &h, &mi); err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", clock, err)
	}
	return time.Date(y, time.Month(mo), d, h, mi, 0, 0, loc), nil
}
