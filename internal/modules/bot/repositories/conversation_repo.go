package repositories

import (
	"github.com/evopoliki/wabot/internal/modules/bot/models"
	"gorm.io/gorm"
)

type ConversationRepo interface {
	LogTurn(tenantSlug, chatID, mode, message, reply string) error
	GetByChat(tenantSlug, chatID string, limit int) ([]models.ConversationLog, error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) LogTurn(tenantSlug, chatID, mode, message, reply string) error {
	entry := models.ConversationLog{
		TenantSlug:  tenantSlug,
		ChatID:      chatID,
		Mode:        mode,
		MessageText: message,
		ReplyText:   reply,
	}
	return r.db.Create(&entry).Error
}

func (r *conversationRepo) GetByChat(tenantSlug, chatID string, limit int) ([]models.ConversationLog, error) {
	var logs []models.ConversationLog
	err := r.db.Where("tenant_slug = ? AND chat_id = ?", tenantSlug, chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
