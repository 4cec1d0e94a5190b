package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/model"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, id string) (*model.Order, error)
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	GetOrderItems(ctx context.Context, tx *gorm.DB, orderID string) ([]*model.OrderItem, error)
	// MarkPaid succeeds only from a payable status; zero rows affected means
	// the order was already terminal (replayed notification) or unknown.
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID string, paidAt time.Time) (bool, error)
	// MarkCancelled succeeds only from pending_payment so a racing payment
	// and expiry sweep cannot both win.
	MarkCancelled(ctx context.Context, tx *gorm.DB, orderID string) (bool, error)
	// MarkRefunded succeeds only from paid; tickets stay issued, the money
	// movement happened at the gateway.
	MarkRefunded(ctx context.Context, tx *gorm.DB, orderID string) (bool, error)
	SetGatewayIntent(ctx context.Context, orderID, intentID string) error
	IsPaid(ctx context.Context, orderID string) (bool, error)
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Order, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) GetOrderItems(ctx context.Context, tx *gorm.DB, orderID string) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := tx.WithContext(ctx).Where("order_id = ?", orderID).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *orderRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, orderID string, paidAt time.Time) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where(`
			id = ?
			AND status IN ?
		`,
			orderID,
			[]string{model.OrderDraft, model.OrderPendingPayment},
		).
		Updates(map[string]interface{}{
			"status":     model.OrderPaid,
			"paid_at":    paidAt,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) MarkCancelled(ctx context.Context, tx *gorm.DB, orderID string) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderPendingPayment).
		Updates(map[string]interface{}{
			"status":     model.OrderCancelled,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) MarkRefunded(ctx context.Context, tx *gorm.DB, orderID string) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderPaid).
		Updates(map[string]interface{}{
			"status":     model.OrderRefunded,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) SetGatewayIntent(ctx context.Context, orderID, intentID string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("gateway_intent_id", intentID).Error
}

func (r *orderRepoImpl) IsPaid(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Where("status = ?", model.OrderPaid).
		Count(&count).Error

	return count > 0, err
}

func (r *orderRepoImpl) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.OrderPendingPayment, now).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	return orders, nil
}
