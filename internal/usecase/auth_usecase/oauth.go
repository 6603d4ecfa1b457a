package auth

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

// IDトークンから取り出した値
type OAuthClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// 外部IdPでのサインイン。subjectで検索し、無ければ検証済みemailで紐付けるか新規作成
type OAuthLoginUsecase struct {
	userRepo repository.UserRepository
	sessions *SessionIssuer
	clock    Clock
}

func NewOAuthLoginUsecase(
	userRepo repository.UserRepository,
	sessions *SessionIssuer,
	clock Clock,
) *OAuthLoginUsecase {
	return &OAuthLoginUsecase{
		userRepo: userRepo,
		sessions: sessions,
		clock:    clock,
	}
}

func (u *OAuthLoginUsecase) Execute(ctx context.Context, claims OAuthClaims, userAgent string) (LoginOutput, LoginSideEffect, error) {
	var out LoginOutput
	var side LoginSideEffect

	if claims.Subject == "" {
		return out, side, ErrInvalidCredentials
	}

	user, err := u.findOrCreate(ctx, claims)
	if err != nil {
		return out, side, err
	}

	if !user.IsActive {
		return out, side, ErrUserInactive
	}

	now := u.clock.Now()
	user.LastLoginAt = &now
	if err := u.userRepo.Update(ctx, user); err != nil {
		return out, side, err
	}

	return u.sessions.Issue(ctx, user, userAgent)
}

func (u *OAuthLoginUsecase) findOrCreate(ctx context.Context, claims OAuthClaims) (*model.User, error) {
	user, err := u.userRepo.FindByOAuthSubject(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	email := normalizeEmail(claims.Email)
	//未検証emailでは既存アカウントに紐付けない
	if email == "" || !claims.EmailVerified {
		return nil, ErrInvalidCredentials
	}

	subject := claims.Subject

	user, err = u.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		//既存のパスワードユーザーに紐付け
		user.OAuthSubject = &subject
		return user, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	now := u.clock.Now()
	user = &model.User{
		Email:        email,
		Name:         strings.TrimSpace(claims.Name),
		OAuthSubject: &subject,
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		//同時の初回ログインに負けた側は作成済みの行を使う
		return u.userRepo.FindByOAuthSubject(ctx, claims.Subject)
	}

	return user, nil
}
