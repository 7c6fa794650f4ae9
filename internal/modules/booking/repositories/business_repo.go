package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/models"
)

type BusinessRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error)
	GetInstanceByName(ctx context.Context, name string) (*models.WhatsAppInstance, error)
	GetInstanceByBusiness(ctx context.Context, businessID uuid.UUID) (*models.WhatsAppInstance, error)
	UpdateInstanceStatus(ctx context.Context, id uuid.UUID, status string) error
	GetWorkingHours(ctx context.Context, businessID uuid.UUID) ([]models.WorkingHour, error)
	ReplaceWorkingHours(ctx context.Context, businessID uuid.UUID, hours []models.WorkingHour) error
	GetAgentConfig(ctx context.Context, businessID uuid.UUID) (*models.AgentConfig, error)
	GetCalendarConnection(ctx context.Context, businessID uuid.UUID) (*models.CalendarConnection, error)
	SaveCalendarConnection(ctx context.Context, conn *models.CalendarConnection) error
}

type businessRepo struct {
	db *gorm.DB
}

func NewBusinessRepo(db *gorm.DB) BusinessRepo {
	return &businessRepo{db: db}
}

func (r *businessRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	var b models.Business
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

// GetInstanceByName resolves the gateway instance and its business in one query.
func (r *businessRepo) GetInstanceByName(ctx context.Context, name string) (*models.WhatsAppInstance, error) {
	var inst models.WhatsAppInstance
	err := r.db.WithContext(ctx).
		Preload("Business").
		Where("instance_name = ?", name).
		First(&inst).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inst, nil
}

func (r *businessRepo) GetInstanceByBusiness(ctx context.Context, businessID uuid.UUID) (*models.WhatsAppInstance, error) {
	var inst models.WhatsAppInstance
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at ASC").
		First(&inst).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inst, nil
}

func (r *businessRepo) UpdateInstanceStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).
		Model(&models.WhatsAppInstance{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *businessRepo) GetWorkingHours(ctx context.Context, businessID uuid.UUID) ([]models.WorkingHour, error) {
	var hours []models.WorkingHour
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("day_of_week ASC, start_time ASC").
		Find(&hours).Error
	return hours, err
}

// ReplaceWorkingHours swaps the whole weekly schedule in one transaction.
func (r *businessRepo) ReplaceWorkingHours(ctx context.Context, businessID uuid.UUID, hours []models.WorkingHour) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("business_id = ?", businessID).Delete(&models.WorkingHour{}).Error; err != nil {
			return fmt.Errorf("delete working hours: %w", err)
		}
		if len(hours) == 0 {
			return nil
		}
		for i := range hours {
			hours[i].BusinessID = businessID
		}
		if err := tx.Create(&hours).Error; err != nil {
			return fmt.Errorf("insert working hours: %w", err)
		}
		return nil
	})
}

// GetAgentConfig returns an empty config when the business never saved one.
func (r *businessRepo) GetAgentConfig(ctx context.Context, businessID uuid.UUID) (*models.AgentConfig, error) {
	var cfg models.AgentConfig
	err := r.db.WithContext(ctx).Where("business_id = ?", businessID).First(&cfg).Error
	if err != nil {
		if err = translate(err); err == ErrNotFound {
			return &models.AgentConfig{BusinessID: businessID}, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *businessRepo) GetCalendarConnection(ctx context.Context, businessID uuid.UUID) (*models.CalendarConnection, error) {
	var conn models.CalendarConnection
	if err := r.db.WithContext(ctx).Where("business_id = ?", businessID).First(&conn).Error; err != nil {
		return nil, translate(err)
	}
	return &conn, nil
}

// SaveCalendarConnection upserts on business_id.
func (r *businessRepo) SaveCalendarConnection(ctx context.Context, conn *models.CalendarConnection) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "token_expiry", "calendar_id", "updated_at"}),
	}).Create(conn).Error
}
