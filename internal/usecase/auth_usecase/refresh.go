package auth

import (
	"context"
	"errors"

	"storefront/internal/repository"
	"storefront/internal/usecase"
)

var (
	// refresh token が無い・期限切れ・失効
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// 使用済みtokenの再利用やuser_agent違い。全sessionを失効させる
	ErrSecurityIncident = errors.New("security incident")
)

// refresh tokenのローテーション
type RefreshUsecase struct {
	rtRepo   repository.RefreshTokenRepository
	userRepo repository.UserRepository
	sessions *SessionIssuer
	clock    Clock
}

func NewRefreshUsecase(
	rtRepo repository.RefreshTokenRepository,
	userRepo repository.UserRepository,
	sessions *SessionIssuer,
	clock Clock,
) *RefreshUsecase {
	return &RefreshUsecase{
		rtRepo:   rtRepo,
		userRepo: userRepo,
		sessions: sessions,
		clock:    clock,
	}
}

func (u *RefreshUsecase) Execute(ctx context.Context, plain string, userAgent string) (LoginOutput, LoginSideEffect, error) {
	var out LoginOutput
	var side LoginSideEffect

	if plain == "" {
		return out, side, ErrInvalidRefreshToken
	}

	//DB照合
	rt, err := u.rtRepo.FindByTokenHash(ctx, usecase.HashToken(plain))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, side, ErrInvalidRefreshToken
		}
		return out, side, err
	}

	now := u.clock.Now()

	//期限切れ
	if !rt.ExpiresAt.After(now) {
		_ = u.rtRepo.DeleteByID(ctx, rt.ID)
		return out, side, ErrInvalidRefreshToken
	}

	//revoked
	if rt.RevokedAt != nil {
		return out, side, ErrInvalidRefreshToken
	}

	//used済みが来たら replay → 全削除
	if rt.UsedAt != nil {
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return out, side, ErrSecurityIncident
	}

	//user_agent違い（再認証扱い。全削除）
	if userAgent != "" && rt.UserAgent != "" && userAgent != rt.UserAgent {
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return out, side, ErrSecurityIncident
	}

	user, err := u.userRepo.FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, side, ErrInvalidRefreshToken
		}
		return out, side, err
	}
	if !user.IsActive {
		return out, side, ErrUserInactive
	}

	//旧tokenをusedにする（同時実行で負けた側は replay 扱い）
	if err := u.rtRepo.MarkUsed(ctx, rt.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
			return out, side, ErrSecurityIncident
		}
		return out, side, err
	}

	return u.sessions.Issue(ctx, user, userAgent)
}
