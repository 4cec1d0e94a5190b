package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/model"
	"gorm.io/gorm"
)

type ParticipantRepository interface {
	Create(ctx context.Context, tx *gorm.DB, participant *model.Participant) error
	FindByToken(ctx context.Context, token string) (*model.Participant, error)
	CountByOrder(ctx context.Context, tx *gorm.DB, orderID string) (int64, error)
	MarkTicketSent(ctx context.Context, participantID string) error
	MarkRenderFailed(ctx context.Context, participantID string) error
	// CheckIn is idempotent: a second scan of the same token leaves the
	// original check-in time untouched.
	CheckIn(ctx context.Context, participantID string, at time.Time) (bool, error)
}

type participantRepoImpl struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepoImpl{db: db}
}

func (r *participantRepoImpl) Create(ctx context.Context, tx *gorm.DB, participant *model.Participant) error {
	return tx.WithContext(ctx).Create(participant).Error
}

func (r *participantRepoImpl) FindByToken(ctx context.Context, token string) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (r *participantRepoImpl) CountByOrder(ctx context.Context, tx *gorm.DB, orderID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.Participant{}).
		Where("order_id = ?", orderID).
		Count(&count).Error

	return count, err
}

func (r *participantRepoImpl) MarkTicketSent(ctx context.Context, participantID string) error {
	return r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("id = ?", participantID).
		Updates(map[string]interface{}{
			"ticket_sent":   true,
			"render_failed": false,
			"updated_at":    time.Now(),
		}).Error
}

func (r *participantRepoImpl) MarkRenderFailed(ctx context.Context, participantID string) error {
	return r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("id = ?", participantID).
		Updates(map[string]interface{}{
			"render_failed": true,
			"updated_at":    time.Now(),
		}).Error
}

func (r *participantRepoImpl) CheckIn(ctx context.Context, participantID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("id = ? AND checked_in = ?", participantID, false).
		Updates(map[string]interface{}{
			"checked_in":    true,
			"checked_in_at": at,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
