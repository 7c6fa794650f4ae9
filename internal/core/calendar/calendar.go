package calendar

import (
	"context"
	"time"
)

// Credentials are the stored OAuth tokens of one business.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Event is the mirror of an appointment on the external calendar.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Adapter mirrors bookings to an external calendar. Callers treat every
// error as best-effort: the booking store stays the source of truth.
type Adapter interface {
	CreateEvent(ctx context.Context, creds Credentials, calendarID string, ev Event) (string, error)
	DeleteEvent(ctx context.Context, creds Credentials, calendarID, eventID string) error
}
