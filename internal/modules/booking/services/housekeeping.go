package services

import (
	"context"
	"time"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/repositories"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/shared/utils"
)

// CompletePastSchedule runs the completion sweep every 15 minutes.
const CompletePastSchedule = "0 */15 * * * *"

// Scheduler is satisfied by *scheduler.Scheduler.
type Scheduler interface {
	Add(name, spec string, job func()) error
}

// Housekeeping moves appointments that already ended out of the active set.
type Housekeeping struct {
	appointments repositories.AppointmentRepo
	now          func() time.Time
}

func NewHousekeeping(appointments repositories.AppointmentRepo) *Housekeeping {
	return &Housekeeping{appointments: appointments, now: time.Now}
}

// CompletePast marks every scheduled or confirmed appointment that ended
// before now as completed.
func (h *Housekeeping) CompletePast(ctx context.Context) (int64, error) {
	n, err := h.appointments.CompletePast(ctx, h.now())
	if err != nil {
		utils.LogError("Failed to complete past appointments", err, nil)
		return 0, err
	}
	if n > 0 {
		utils.LogInfo("Past appointments completed", map[string]interface{}{"count": n})
	}
	return n, nil
}

// Register adds the sweep to s.
func (h *Housekeeping) Register(s Scheduler) error {
	return s.Add("complete-past-appointments", CompletePastSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		h.CompletePast(ctx)
	})
}
