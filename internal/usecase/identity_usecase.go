package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// アクセストークンの中身
type AccessClaims struct {
	UserID       int64
	Role         model.Role
	TokenVersion int
}

// JWTを検証する約束
type AccessTokenParser interface {
	Parse(raw string) (AccessClaims, error)
}

// リクエストが持ってきた資格情報
type Credentials struct {
	AccessToken string
	GuestToken  string
}

// ユーザー > ゲスト > 未解決 の順で持ち主を決める
type IdentityResolver struct {
	parser AccessTokenParser
	users  repo.UserRepository
	guests repo.GuestSessionRepository
	clock  Clock
	log    *zap.Logger
}

func NewIdentityResolver(
	parser AccessTokenParser,
	users repo.UserRepository,
	guests repo.GuestSessionRepository,
	clock Clock,
	log *zap.Logger,
) *IdentityResolver {
	return &IdentityResolver{parser: parser, users: users, guests: guests, clock: clock, log: log}
}

// 資格情報が無効なだけならエラーにせず次の候補へ進む。DBエラーだけ返す
func (r *IdentityResolver) Resolve(ctx context.Context, cred Credentials) (model.Identity, error) {
	if cred.AccessToken != "" {
		id, ok, err := r.resolveUser(ctx, cred.AccessToken)
		if err != nil {
			return model.Identity{}, err
		}
		if ok {
			return id, nil
		}
	}

	if cred.GuestToken != "" {
		id, ok, err := r.resolveGuest(ctx, cred.GuestToken)
		if err != nil {
			return model.Identity{}, err
		}
		if ok {
			return id, nil
		}
	}

	return model.Identity{}, nil
}

func (r *IdentityResolver) resolveUser(ctx context.Context, raw string) (model.Identity, bool, error) {
	claims, err := r.parser.Parse(raw)
	if err != nil {
		return model.Identity{}, false, nil
	}

	user, err := r.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Identity{}, false, nil
	}
	if err != nil {
		return model.Identity{}, false, err
	}

	//停止ユーザーとtoken_version不一致は無効
	if !user.IsActive || user.TokenVersion != claims.TokenVersion {
		return model.Identity{}, false, nil
	}

	return model.UserIdentity(user.ID, user.Role), true, nil
}

func (r *IdentityResolver) resolveGuest(ctx context.Context, raw string) (model.Identity, bool, error) {
	s, err := r.guests.FindByTokenHash(ctx, HashToken(raw))
	if errors.Is(err, repo.ErrNotFound) {
		return model.Identity{}, false, nil
	}
	if err != nil {
		return model.Identity{}, false, err
	}

	if s.Expired(r.clock.Now()) {
		if err := r.guests.DeleteByID(ctx, s.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			r.log.Warn("delete expired guest session", zap.String("guest_id", s.ID), zap.Error(err))
		}
		return model.Identity{}, false, nil
	}

	return model.GuestIdentity(s.ID), true, nil
}
