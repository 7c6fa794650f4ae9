package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/models"
)

type AppointmentRepo interface {
	ListActiveFrom(ctx context.Context, businessID uuid.UUID, from time.Time) ([]models.Appointment, error)
	Create(ctx context.Context, appt *models.Appointment) error
	FindActiveByStart(ctx context.Context, businessID uuid.UUID, phone string, start time.Time) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SetExternalEventID(ctx context.Context, id uuid.UUID, eventID string) error
	CompletePast(ctx context.Context, now time.Time) (int64, error)
}

type appointmentRepo struct {
	db *gorm.DB
}

func NewAppointmentRepo(db *gorm.DB) AppointmentRepo {
	return &appointmentRepo{db: db}
}

// ListActiveFrom returns slot-holding appointments that have not ended by from.
func (r *appointmentRepo) ListActiveFrom(ctx context.Context, businessID uuid.UUID, from time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND status IN ? AND end_time > ?", businessID, models.ActiveAppointmentStatuses, from.UTC()).
		Order("start_time ASC").
		Find(&appts).Error
	return appts, err
}

// Create returns scheduling.ErrSlotTaken when the storage constraint
// rejects an overlapping booking.
func (r *appointmentRepo) Create(ctx context.Context, appt *models.Appointment) error {
	appt.StartTime = appt.StartTime.UTC()
	appt.EndTime = appt.EndTime.UTC()
	if appt.Status == "" {
		appt.Status = models.AppointmentScheduled
	}
	return translate(r.db.WithContext(ctx).Create(appt).Error)
}

func (r *appointmentRepo) FindActiveByStart(ctx context.Context, businessID uuid.UUID, phone string, start time.Time) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND contact_phone = ? AND start_time = ? AND status IN ?",
			businessID, phone, start.UTC(), models.ActiveAppointmentStatuses).
		First(&appt).Error
	if err != nil {
		return nil, translate(err)
	}
	return &appt, nil
}

func (r *appointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.update(ctx, id, "status", status)
}

func (r *appointmentRepo) SetExternalEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	return r.update(ctx, id, "external_event_id", eventID)
}

func (r *appointmentRepo) update(ctx context.Context, id uuid.UUID, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompletePast marks every active appointment that ended before now as completed.
func (r *appointmentRepo) CompletePast(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("status IN ? AND end_time < ?", models.ActiveAppointmentStatuses, now.UTC()).
		Update("status", models.AppointmentCompleted)
	return res.RowsAffected, res.Error
}
