package model

import "time"

// カートの明細。価格は持たず、読み出し時にバリアントから解決する
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64     `gorm:"not null;uniqueIndex:idx_cart_items_cart_variant" json:"cart_id"`
	VariantID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_items_cart_variant" json:"variant_id"`
	Quantity  int64     `gorm:"not null;check:chk_cart_items_quantity,quantity >= 1" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
