package repository

import (
	"context"
	"errors"

	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/model"
	"gorm.io/gorm"
)

type PromotionRepository interface {
	FindByCode(ctx context.Context, eventID, code string) (*model.PromotionCode, error)
	CountRedemptions(ctx context.Context, promoID string) (int64, error)
	HasRedeemed(ctx context.Context, promoID, email string) (bool, error)
	// CreateRedemption appends to the redemption ledger; the unique
	// (code, email) index backs the single-use-per-email invariant even if
	// two checkouts race past HasRedeemed.
	CreateRedemption(ctx context.Context, tx *gorm.DB, redemption *model.PromotionRedemption) error
	// ReleaseRedemption removes an order's ledger row when the order is
	// cancelled or expires, restoring the buyer's single-use right.
	ReleaseRedemption(ctx context.Context, tx *gorm.DB, orderID string) error
}

type promotionRepoImpl struct {
	db *gorm.DB
}

func NewPromotionRepository(db *gorm.DB) PromotionRepository {
	return &promotionRepoImpl{db: db}
}

func (r *promotionRepoImpl) FindByCode(ctx context.Context, eventID, code string) (*model.PromotionCode, error) {
	var promo model.PromotionCode
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND code = ?", eventID, code).
		First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	return &promo, nil
}

func (r *promotionRepoImpl) CountRedemptions(ctx context.Context, promoID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PromotionRedemption{}).
		Where("promo_code_id = ?", promoID).
		Count(&count).Error

	return count, err
}

func (r *promotionRepoImpl) HasRedeemed(ctx context.Context, promoID, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PromotionRedemption{}).
		Where("promo_code_id = ? AND email = ?", promoID, email).
		Count(&count).Error

	return count > 0, err
}

func (r *promotionRepoImpl) CreateRedemption(ctx context.Context, tx *gorm.DB, redemption *model.PromotionRedemption) error {
	return tx.WithContext(ctx).Create(redemption).Error
}

func (r *promotionRepoImpl) ReleaseRedemption(ctx context.Context, tx *gorm.DB, orderID string) error {
	return tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&model.PromotionRedemption{}).Error
}
