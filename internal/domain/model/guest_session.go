package model

import "time"

// ゲスト識別。平文トークンはcookieだけに置き、DBにはハッシュを保存
type GuestSession struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	TokenHash string    `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (g GuestSession) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}
