package model

import "time"

// 持ち主はユーザーかゲストのどちらか一方だけ
type Cart struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         *int64     `gorm:"uniqueIndex;check:chk_carts_single_owner,(user_id IS NULL) <> (guest_session_id IS NULL)" json:"user_id,omitempty"`
	GuestSessionID *string    `gorm:"type:uuid;uniqueIndex" json:"guest_session_id,omitempty"`
	Items          []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 持ち主のカラム名と値
func CartOwnerColumn(id Identity) (string, interface{}, bool) {
	switch {
	case id.IsUser():
		return "user_id", id.UserID, true
	case id.IsGuest():
		return "guest_session_id", id.GuestID, true
	default:
		return "", nil, false
	}
}

func NewCartFor(id Identity) Cart {
	var c Cart
	if id.IsUser() {
		uid := id.UserID
		c.UserID = &uid
	} else if id.IsGuest() {
		gid := id.GuestID
		c.GuestSessionID = &gid
	}
	return c
}
