package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type GuestSessionRepository interface {
	Create(ctx context.Context, s *model.GuestSession) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.GuestSession, error)
	// ゲストとそのカートを消す
	DeleteByID(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
