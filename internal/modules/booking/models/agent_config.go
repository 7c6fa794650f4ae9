package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is one bookable offering, stored inside AgentConfig.Services
type Service struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Duration    int     `json:"duration"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
}

// AgentConfig holds the per-business assistant settings
type AgentConfig struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BusinessID     uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"business_id"`
	CustomPrompt   string                      `gorm:"type:text" json:"custom_prompt"`
	WelcomeMessage string                      `gorm:"type:text" json:"welcome_message"`
	Services       datatypes.JSONSlice[Service] `gorm:"type:jsonb" json:"services"`
	CreatedAt      time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AgentConfig) TableName() string {
	return "agent_configs"
}

func (a *AgentConfig) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CalendarConnection stores the Google OAuth tokens of a business
type CalendarConnection struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BusinessID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"business_id"`
	AccessToken  string     `gorm:"type:text;not null" json:"-"`
	RefreshToken string     `gorm:"type:text" json:"-"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
	CalendarID   string     `gorm:"type:text;not null;default:'primary'" json:"calendar_id"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CalendarConnection) TableName() string {
	return "calendar_connections"
}

func (c *CalendarConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
