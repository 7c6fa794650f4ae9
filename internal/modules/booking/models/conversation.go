package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConversationActive = "active"
	ConversationClosed = "closed"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Conversation is created lazily on the first message from a contact
type Conversation struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BusinessID    uuid.UUID `gorm:"type:uuid;not null;index" json:"business_id"`
	ContactPhone  string    `gorm:"type:text;not null" json:"contact_phone"`
	ContactName   string    `gorm:"type:text" json:"contact_name"`
	Status        string    `gorm:"type:text;not null;default:'active'" json:"status"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Message is append-only
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Direction      string    `gorm:"type:text;not null" json:"direction"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
