package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/scheduling"
)

var ErrNotFound = errors.New("record not found")

// exclusion_violation, raised by the appointments no-overlap constraint
const pgExclusionViolation = "23P01"

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
		return scheduling.ErrSlotTaken
	}
	return err
}
