package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/model"
	"gorm.io/gorm"
)

type TicketTypeRepository interface {
	FindByID(ctx context.Context, id string) (*model.TicketType, error)
	FindMany(ctx context.Context, ids []string) ([]*model.TicketType, error)
	// Reserve atomically checks remaining quota and increments quota_reserved
	// in a single conditional UPDATE. A nil quota_total skips the bound.
	Reserve(ctx context.Context, tx *gorm.DB, id string, qty int64) error
	// Commit moves qty from reserved to sold on payment success.
	Commit(ctx context.Context, tx *gorm.DB, id string, qty int64) error
	// Release returns qty from reserved to available on expiry or cancel.
	Release(ctx context.Context, tx *gorm.DB, id string, qty int64) error
}

type ticketTypeRepoImpl struct {
	db *gorm.DB
}

func NewTicketTypeRepository(db *gorm.DB) TicketTypeRepository {
	return &ticketTypeRepoImpl{db: db}
}

func (r *ticketTypeRepoImpl) FindByID(ctx context.Context, id string) (*model.TicketType, error) {
	var tt model.TicketType
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &tt, nil
}

func (r *ticketTypeRepoImpl) FindMany(ctx context.Context, ids []string) ([]*model.TicketType, error) {
	var tts []*model.TicketType
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tts).Error
	if err != nil {
		return nil, err
	}
	return tts, nil
}

func (r *ticketTypeRepoImpl) Reserve(ctx context.Context, tx *gorm.DB, id string, qty int64) error {
	// The availability check and the increment happen in the same atomic
	// statement; a separate read-then-write would lose updates under
	// concurrent checkouts for the same scarce type.
	result := tx.WithContext(ctx).Model(&model.TicketType{}).
		Where(`
			id = ?
			AND (quota_total IS NULL OR quota_total - quota_reserved - quota_sold >= ?)
		`, id, qty).
		Updates(map[string]interface{}{
			"quota_reserved": gorm.Expr("quota_reserved + ?", qty),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		tt, err := r.findForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		return &apperr.QuotaExceeded{TicketType: tt.Name, Requested: qty}
	}
	return nil
}

func (r *ticketTypeRepoImpl) Commit(ctx context.Context, tx *gorm.DB, id string, qty int64) error {
	result := tx.WithContext(ctx).Model(&model.TicketType{}).
		Where("id = ? AND quota_reserved >= ?", id, qty).
		Updates(map[string]interface{}{
			"quota_reserved": gorm.Expr("quota_reserved - ?", qty),
			"quota_sold":     gorm.Expr("quota_sold + ?", qty),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("commit %d on ticket type %s: reserved counter underflow", qty, id)
	}
	return nil
}

func (r *ticketTypeRepoImpl) Release(ctx context.Context, tx *gorm.DB, id string, qty int64) error {
	result := tx.WithContext(ctx).Model(&model.TicketType{}).
		Where("id = ? AND quota_reserved >= ?", id, qty).
		Updates(map[string]interface{}{
			"quota_reserved": gorm.Expr("quota_reserved - ?", qty),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("release %d on ticket type %s: reserved counter underflow", qty, id)
	}
	return nil
}

func (r *ticketTypeRepoImpl) findForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.TicketType, error) {
	var tt model.TicketType
	err := tx.WithContext(ctx).Where("id = ?", id).First(&tt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &tt, nil
}
