package repository

import (
	"context"
	"time"

	"github.com/leeveo/inscription-sub004/internal/model"
	"gorm.io/gorm"
)

// WebhookEventRepository is the dedupe ledger for at-least-once gateway
// notifications. MarkProcessed runs inside the same transaction as the state
// change it guards, so a replay either sees the row or the whole first
// attempt rolled back.
type WebhookEventRepository interface {
	Exists(ctx context.Context, gatewayEventID string) (bool, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, eventID, eventType string) error
}

type webhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryImpl{db: db}
}

func (r *webhookEventRepositoryImpl) Exists(ctx context.Context, gatewayEventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("event_id = ?", gatewayEventID).
		Count(&count).Error

	return count > 0, err
}

func (r *webhookEventRepositoryImpl) MarkProcessed(ctx context.Context, tx *gorm.DB, eventID string, eventType string) error {
	return tx.WithContext(ctx).Create(&model.WebhookEvent{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}).Error
}
