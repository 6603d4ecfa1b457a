package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// 注文と明細をまとめて作成
func (r *OrderGormRepository) Create(ctx context.Context, order *model.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return mapErr(err, "create order")
	}
	return nil
}

func (r *OrderGormRepository) FindByProviderSessionID(ctx context.Context, sessionID string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("provider_session_id = ?", sessionID).
		First(&o).Error
	if err != nil {
		return model.Order{}, mapErr(err, "find order")
	}
	return o, nil
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return []model.Order{}, 0, errors.Wrap(err, "count orders")
	}

	var items []model.Order
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, errors.Wrap(err, "list orders")
	}

	return items, total, nil
}

// PENDINGのものだけPAIDにする
func (r *OrderGormRepository) MarkPaid(ctx context.Context, orderID int64, paidAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":  model.OrderStatusPaid,
			"paid_at": paidAt,
		})

	if res.Error != nil {
		return mapErr(res.Error, "mark order paid")
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) ReassignGuest(ctx context.Context, guestID string, userID int64) error {
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("guest_session_id = ?", guestID).
		Updates(map[string]interface{}{
			"user_id":          userID,
			"guest_session_id": gorm.Expr("NULL"),
		}).Error
	if err != nil {
		return mapErr(err, "reassign orders")
	}
	return nil
}

func (r *OrderGormRepository) MoveCart(ctx context.Context, fromCartID, toCartID int64) error {
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("cart_id = ?", fromCartID).
		Update("cart_id", toCartID).Error
	if err != nil {
		return mapErr(err, "move order cart")
	}
	return nil
}
