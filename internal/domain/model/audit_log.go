package model

import "time"

type AuditAction string

const (
	//ゲストのカートをユーザーに引き継いだ
	AuditActionConvertGuest AuditAction = "CONVERT_GUEST"
	//チェックアウトを開始した
	AuditActionStartCheckout AuditAction = "START_CHECKOUT"
	//決済完了を確認した
	AuditActionCompleteCheckout AuditAction = "COMPLETE_CHECKOUT"
)

type AuditResourceType string

const (
	AuditResourceCart  AuditResourceType = "cart"
	AuditResourceOrder AuditResourceType = "order"
)

// 監査ログ。「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー。ゲストなら0
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	//ゲストが操作した場合のセッションID
	ActorGuestID string `gorm:"type:varchar(64);not null;default:''" json:"actor_guest_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
