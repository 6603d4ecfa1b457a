package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type OrderRepository interface {
	// 明細ごと作成
	Create(ctx context.Context, order *model.Order) error
	FindByProviderSessionID(ctx context.Context, sessionID string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	MarkPaid(ctx context.Context, orderID int64, paidAt time.Time) error
	// ゲストの注文をユーザーに付け替える
	ReassignGuest(ctx context.Context, guestID string, userID int64) error
	// カートをまとめたとき、注文が指すカートも移す
	MoveCart(ctx context.Context, fromCartID, toCartID int64) error
}
