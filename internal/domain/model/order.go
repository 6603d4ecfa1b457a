package model

import "time"

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// チェックアウト開始時に作る注文。決済は外部のホスト型チェックアウトで行う
type Order struct {
	ID                int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            *int64      `gorm:"index" json:"user_id,omitempty"`
	GuestSessionID    *string     `gorm:"type:uuid;index" json:"-"`
	CartID            int64       `gorm:"not null;index" json:"-"`
	Status            OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalPrice        int64       `gorm:"not null" json:"total_price"`
	Currency          string      `gorm:"type:varchar(8);not null" json:"currency"`
	ProviderSessionID string      `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	Items             []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	PaidAt            *time.Time  `json:"paid_at,omitempty"`
	CreatedAt         time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 注文の持ち主と一致するか
func (o Order) OwnedBy(id Identity) bool {
	switch {
	case id.IsUser():
		return o.UserID != nil && *o.UserID == id.UserID
	case id.IsGuest():
		return o.GuestSessionID != nil && *o.GuestSessionID == id.GuestID
	}
	return false
}
