package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/modules/booking/models"
)

type ConversationRepo interface {
	ResolveActive(ctx context.Context, businessID uuid.UUID, phone, name string) (*models.Conversation, error)
	CollapseDuplicateActive(ctx context.Context, businessID uuid.UUID, phone string) (*models.Conversation, int64, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, content, direction string) error
	History(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)
}

type conversationRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db, now: time.Now}
}

// ResolveActive returns the active conversation for a contact, creating it
// on first contact. Concurrent creators meet on the partial unique index:
// the loser's insert is a no-op and it re-reads the winner's row.
func (r *conversationRepo) ResolveActive(ctx context.Context, businessID uuid.UUID, phone, name string) (*models.Conversation, error) {
	conv, _, err := r.CollapseDuplicateActive(ctx, businessID, phone)
	if err == nil {
		return conv, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	fresh := models.Conversation{
		ID:            uuid.New(),
		BusinessID:    businessID,
		ContactPhone:  phone,
		ContactName:   name,
		Status:        models.ConversationActive,
		LastMessageAt: r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	conv, _, err = r.CollapseDuplicateActive(ctx, businessID, phone)
	if err != nil {
		return nil, fmt.Errorf("re-read conversation: %w", err)
	}
	return conv, nil
}

// CollapseDuplicateActive keeps the oldest active conversation and closes
// the rest. It returns the survivor and how many were closed.
func (r *conversationRepo) CollapseDuplicateActive(ctx context.Context, businessID uuid.UUID, phone string) (*models.Conversation, int64, error) {
	var active []models.Conversation
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND contact_phone = ? AND status = ?", businessID, phone, models.ConversationActive).
		Order("created_at ASC, id ASC").
		Find(&active).Error
	if err != nil {
		return nil, 0, err
	}
	if len(active) == 0 {
		return nil, 0, ErrNotFound
	}
	if len(active) == 1 {
		return &active[0], 0, nil
	}

	ids := make([]uuid.UUID, 0, len(active)-1)
	for _, c := range active[1:] {
		ids = append(ids, c.ID)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id IN ?", ids).
		Update("status", models.ConversationClosed)
	if res.Error != nil {
		return nil, 0, fmt.Errorf("close duplicate conversations: %w", res.Error)
	}

	log.Warn().
		Str("business_id", businessID.String()).
		Int64("closed", res.RowsAffected).
		Msg("⚠️ Collapsed duplicate active conversations")
	return &active[0], res.RowsAffected, nil
}

// AppendMessage stores one message and bumps the conversation's last_message_at.
func (r *conversationRepo) AppendMessage(ctx context.Context, conversationID uuid.UUID, content, direction string) error {
	now := r.now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg := models.Message{
			ConversationID: conversationID,
			Content:        content,
			Direction:      direction,
			CreatedAt:      now,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("last_message_at", now).Error
	})
}

// History returns the last limit messages, oldest first.
func (r *conversationRepo) History(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
