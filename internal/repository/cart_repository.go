package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartRepository interface {
	// 持ち主のカートIDを返す。無ければ作る（同時実行でも1つだけ）
	GetOrCreateID(ctx context.Context, owner model.Identity) (int64, error)
	FindByOwner(ctx context.Context, owner model.Identity) (model.Cart, error)
	// ゲストのカートをユーザーの物にする
	Reassign(ctx context.Context, cartID int64, userID int64) error
	Delete(ctx context.Context, cartID int64) error
	Clear(ctx context.Context, cartID int64) error
}
