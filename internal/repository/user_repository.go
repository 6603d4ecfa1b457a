package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 保存・取得を約束。見つからない場合はErrNotFound
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByOAuthSubject(ctx context.Context, subject string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
