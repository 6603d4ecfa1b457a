package cartsync

import "context"

// サーバー側カートへの口
type Remote interface {
	// 未認証（ゲスト未発行）は空のカートとして返す
	Fetch(ctx context.Context) ([]Line, error)
	// サーバー側の数量に加算する
	Add(ctx context.Context, variantID string, qty int64) error
	SetQuantity(ctx context.Context, variantID string, qty int64) error
	Remove(ctx context.Context, variantID string) error
	Clear(ctx context.Context) error
}
