package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/calendar"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/models"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/repositories"
)

// OAuthProvider is the connect side of the Google calendar adapter.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (calendar.Credentials, error)
	PrimaryCalendarID(ctx context.Context, creds calendar.Credentials) (string, error)
}

// CalendarService links a business to its Google calendar.
type CalendarService struct {
	businesses repositories.BusinessRepo
	oauth      OAuthProvider
}

func NewCalendarService(businesses repositories.BusinessRepo, oauth OAuthProvider) *CalendarService {
	return &CalendarService{businesses: businesses, oauth: oauth}
}

// AuthURL returns the consent URL; the business id travels as OAuth state.
func (s *CalendarService) AuthURL(ctx context.Context, businessID uuid.UUID) (string, error) {
	if _, err := s.businesses.GetByID(ctx, businessID); err != nil {
		return "", err
	}
	return s.oauth.AuthURL(businessID.String()), nil
}

// Connect finishes the OAuth callback and stores the tokens. A failed
// calendar lookup falls back to the primary alias.
func (s *CalendarService) Connect(ctx context.Context, state, code string) (*models.CalendarConnection, error) {
	businessID, err := uuid.Parse(state)
	if err != nil {
		return nil, fmt.Errorf("invalid state: %w", err)
	}
	if _, err := s.businesses.GetByID(ctx, businessID); err != nil {
		return nil, err
	}

	creds, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	calendarID, err := s.oauth.PrimaryCalendarID(ctx, creds)
	if err != nil {
		log.Warn().Err(err).Str("business_id", businessID.String()).Msg("⚠️ Could not list calendars, using primary")
		calendarID = "primary"
	}

	expiry := creds.Expiry
	conn := &models.CalendarConnection{
		BusinessID:   businessID,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenExpiry:  &expiry,
		CalendarID:   calendarID,
	}
	if err := s.businesses.SaveCalendarConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("save calendar connection: %w", err)
	}

	log.Info().Str("business_id", businessID.String()).Str("calendar_id", calendarID).Msg("📅 Google Calendar connected")
	return conn, nil
}
