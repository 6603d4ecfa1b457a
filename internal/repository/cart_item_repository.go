package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同一バリアントは数量加算
	AddQuantity(ctx context.Context, cartID int64, variantID string, qty int64) error
	// 数量をそのまま上書き（無ければ作る）
	SetQuantity(ctx context.Context, cartID int64, variantID string, qty int64) error
	DeleteItem(ctx context.Context, cartID int64, variantID string) error
}
