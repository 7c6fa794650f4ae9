package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ErrNoRefreshToken is returned by Exchange when Google did not hand out an
// offline token, which happens when consent was not forced.
var ErrNoRefreshToken = errors.New("google did not return a refresh token")

var scopes = []string{
	gcal.CalendarScope,
	gcal.CalendarEventsScope,
}

// GoogleCalendar talks to Google Calendar v3. A calendar client is built per
// call from the business tokens, so nothing is shared between tenants.
type GoogleCalendar struct {
	oauth    *oauth2.Config
	timezone string
	// extra client options, tests point the endpoint at a local server
	opts []option.ClientOption
}

func NewGoogleCalendar(clientID, clientSecret, redirectURL, timezone string, opts ...option.ClientOption) *GoogleCalendar {
	return &GoogleCalendar{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		timezone: timezone,
		opts:     opts,
	}
}

// AuthURL is where the business owner grants calendar access. state carries
// the business id back to the callback.
func (g *GoogleCalendar) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the callback code for tokens.
func (g *GoogleCalendar) Exchange(ctx context.Context, code string) (Credentials, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return Credentials{}, fmt.Errorf("exchange code: %w", err)
	}

	creds := Credentials{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, Expiry: tok.Expiry}
	if creds.RefreshToken == "" {
		return creds, ErrNoRefreshToken
	}
	return creds, nil
}

func (g *GoogleCalendar) service(ctx context.Context, creds Credentials) (*gcal.Service, error) {
	tok := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.Expiry,
		TokenType:    "Bearer",
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(g.oauth.Client(ctx, tok))}, g.opts...)
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar client: %w", err)
	}
	return srv, nil
}

// PrimaryCalendarID returns the primary calendar of the account, or the
// first listed one, falling back to "primary".
func (g *GoogleCalendar) PrimaryCalendarID(ctx context.Context, creds Credentials) (string, error) {
	srv, err := g.service(ctx, creds)
	if err != nil {
		return "", err
	}

	list, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list calendars: %w", err)
	}

	for _, item := range list.Items {
		if item.Primary {
			return item.Id, nil
		}
	}
	if len(list.Items) > 0 {
		return list.Items[0].Id, nil
	}
	return "primary", nil
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, creds Credentials, calendarID string, ev Event) (string, error) {
	srv, err := g.service(ctx, creds)
	if err != nil {
		return "", err
	}

	event := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: g.timezone},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: g.timezone},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "popup", Minutes: 30},
				{Method: "popup", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := srv.Events.Insert(calendarOrPrimary(calendarID), event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	log.Info().Str("event_id", created.Id).Str("calendar_id", calendarID).Msg("📅 Calendar event created")
	return created.Id, nil
}

func (g *GoogleCalendar) DeleteEvent(ctx context.Context, creds Credentials, calendarID, eventID string) error {
	srv, err := g.service(ctx, creds)
	if err != nil {
		return err
	}

	if err := srv.Events.Delete(calendarOrPrimary(calendarID), eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}

	log.Info().Str("event_id", eventID).Str("calendar_id", calendarID).Msg("🗑️ Calendar event deleted")
	return nil
}

func calendarOrPrimary(id string) string {
	if id == "" {
		return "primary"
	}
	return id
}
