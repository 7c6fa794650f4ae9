package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultAppointmentDuration = 30
	DefaultBufferMinutes       = 5
)

// Business is the tenant that owns a WhatsApp number and a calendar
type Business struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name                string    `gorm:"type:text;not null" json:"name"`
	Timezone            string    `gorm:"type:text;not null;default:'America/Sao_Paulo'" json:"timezone"`
	AppointmentDuration int       `gorm:"not null;default:30" json:"appointment_duration"`
	BufferMinutes       int       `gorm:"not null;default:5" json:"buffer_minutes"`
	Language            string    `gorm:"type:text;not null;default:'es'" json:"language"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Business) TableName() string {
	return "businesses"
}

func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Duration returns the default appointment length, falling back to 30 minutes.
func (b *Business) Duration() int {
	if b.AppointmentDuration <= 0 {
		return DefaultAppointmentDuration
	}
	return b.AppointmentDuration
}

// Buffer returns the gap kept after every appointment.
func (b *Business) Buffer() time.Duration {
	if b.BufferMinutes < 0 {
		return DefaultBufferMinutes * time.Minute
	}
	return time.Duration(b.BufferMinutes) * time.Minute
}

// Location resolves the business timezone, using fallback when it is unset or unknown.
func (b *Business) Location(fallback *time.Location) *time.Location {
	if b.Timezone != "" {
		if loc, err := time.LoadLocation(b.Timezone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

// WhatsAppInstance maps a gateway instance name to its business
type WhatsAppInstance struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BusinessID   uuid.UUID `gorm:"type:uuid;not null;index" json:"business_id"`
	InstanceName string    `gorm:"type:text;not null;uniqueIndex" json:"instance_name"`
	Status       string    `gorm:"type:text;default:'disconnected'" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Business Business `gorm:"foreignKey:BusinessID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (WhatsAppInstance) TableName() string {
	return "whatsapp_instances"
}

func (w *WhatsAppInstance) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// WorkingHour is one weekday window. DayOfWeek follows time.Weekday (0 = Sunday).
type WorkingHour struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index" json:"business_id"`
	DayOfWeek  int       `gorm:"not null" json:"day_of_week"`
	StartTime  string    `gorm:"type:text;not null" json:"start_time"`
	EndTime    string    `gorm:"type:text;not null" json:"end_time"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
}

func (WorkingHour) TableName() string {
	return "working_hours"
}

func (w *WorkingHour) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
