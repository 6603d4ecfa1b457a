package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// カートの引き継ぎやチェックアウトの記録を残す
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
}
