package auth

import (
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"
)

// 現在の時間
type Clock = usecase.Clock

// UUID 等のIDを作る約束
type IDGenerator = usecase.IDGenerator

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (token string, expiresAt time.Time, err error)
}

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}
