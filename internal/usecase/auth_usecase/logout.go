package auth

import (
	"context"
	"errors"

	"storefront/internal/repository"
	"storefront/internal/usecase"
)

type LogoutUsecase struct {
	rtRepo repository.RefreshTokenRepository
}

func NewLogoutUsecase(rtRepo repository.RefreshTokenRepository) *LogoutUsecase {
	return &LogoutUsecase{rtRepo: rtRepo}
}

// refreshを削除（失効）。既に無いtokenは成功扱い
func (u *LogoutUsecase) Execute(ctx context.Context, plain string) error {
	if plain == "" {
		return nil
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, usecase.HashToken(plain))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	return u.rtRepo.DeleteByID(ctx, rt.ID)
}

// 全端末からログアウト（token_versionを上げてaccess tokenも無効化）
func (u *LogoutUsecase) ExecuteAll(ctx context.Context, users repository.UserRepository, userID int64) error {
	if err := u.rtRepo.DeleteAllByUserID(ctx, userID); err != nil {
		return err
	}
	return users.IncrementTokenVersion(ctx, userID)
}
