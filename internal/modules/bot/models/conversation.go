package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationLog is one handled turn: what the user sent and what the bot
// replied, for diagnostics and manager review.
type ConversationLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TenantSlug string    `gorm:"size:50;not null;index" json:"tenant_slug"`
	ChatID     string    `gorm:"size:100;not null;index" json:"chat_id"`

	// ivr | dialog
	Mode string `gorm:"size:10;not null" json:"mode"`

	MessageText string `gorm:"type:text" json:"message_text"`
	ReplyText   string `gorm:"type:text" json:"reply_text"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ConversationLog) TableName() string {
	return "conversation_logs"
}

// BeforeCreate sets UUID before creating
func (c *ConversationLog) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
