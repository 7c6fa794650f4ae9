package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AppointmentScheduled = "scheduled"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
	AppointmentCompleted = "completed"
)

// ActiveAppointmentStatuses are the statuses that hold a slot.
var ActiveAppointmentStatuses = []string{AppointmentScheduled, AppointmentConfirmed}

// Appointment is never hard-deleted; cancellation is a status change
type Appointment struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BusinessID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"business_id"`
	ConversationID  *uuid.UUID `gorm:"type:uuid" json:"conversation_id,omitempty"`
	ContactPhone    string     `gorm:"type:text;not null" json:"contact_phone"`
	ContactName     string     `gorm:"type:text" json:"contact_name"`
	ServiceName     *string    `gorm:"type:text" json:"service_name,omitempty"`
	StartTime       time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime         time.Time  `gorm:"not null" json:"end_time"`
	Status          string     `gorm:"type:text;not null;default:'scheduled'" json:"status"`
	ExternalEventID *string    `gorm:"type:text" json:"external_event_id,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
