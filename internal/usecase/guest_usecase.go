package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
)

// POST /session/guest の結果
type GuestSessionOutput struct {
	Kind      string    `json:"identity"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Created   bool      `json:"created"`
	// cookieに詰める平文。JSONには出さない
	Token string `json:"-"`
}

// ゲストからユーザーへの引き継ぎ結果
type ConvertGuestOutput struct {
	Converted bool
	Merged    bool
	CartID    int64
}

type GuestUsecase struct {
	guests repo.GuestSessionRepository
	tx     repo.TransactionManager
	idGen  IDGenerator
	clock  Clock
	ttl    time.Duration
	log    *zap.Logger
}

func NewGuestUsecase(
	guests repo.GuestSessionRepository,
	tx repo.TransactionManager,
	idGen IDGenerator,
	clock Clock,
	ttl time.Duration,
	log *zap.Logger,
) *GuestUsecase {
	return &GuestUsecase{guests: guests, tx: tx, idGen: idGen, clock: clock, ttl: ttl, log: log}
}

// ゲストセッションを用意する。
// 有効なゲストcookieがあれば同じトークンを返すだけなので何度呼んでもよい。
func (u *GuestUsecase) Ensure(ctx context.Context, current model.Identity, presentedToken string) (GuestSessionOutput, error) {
	if current.IsUser() {
		return GuestSessionOutput{Kind: model.IdentityUser.String()}, nil
	}

	if current.IsGuest() && presentedToken != "" {
		s, err := u.guests.FindByTokenHash(ctx, HashToken(presentedToken))
		if err == nil && s.ID == current.GuestID {
			metrics.GuestSessionsTotal.WithLabelValues("reissued").Inc()
			return GuestSessionOutput{
				Kind:      model.IdentityGuest.String(),
				ExpiresAt: s.ExpiresAt,
				Token:     presentedToken,
			}, nil
		}
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return GuestSessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	plain, hash, err := NewOpaqueToken()
	if err != nil {
		return GuestSessionOutput{}, NewHTTPError(http.StatusInternalServerError, "token error")
	}

	now := u.clock.Now()
	s := &model.GuestSession{
		ID:        u.idGen.NewID(),
		TokenHash: hash,
		ExpiresAt: now.Add(u.ttl),
		CreatedAt: now,
	}
	if err := u.guests.Create(ctx, s); err != nil {
		return GuestSessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	metrics.GuestSessionsTotal.WithLabelValues("created").Inc()
	return GuestSessionOutput{
		Kind:      model.IdentityGuest.String(),
		ExpiresAt: s.ExpiresAt,
		Created:   true,
		Token:     plain,
	}, nil
}

// ゲストのカートと注文をユーザーに引き継ぎ、ゲストセッションを無効にする。
// ユーザーが既にカートを持っていれば明細を数量加算でまとめる。
func (u *GuestUsecase) Convert(ctx context.Context, guestToken string, userID int64) (ConvertGuestOutput, error) {
	var out ConvertGuestOutput
	if guestToken == "" || userID <= 0 {
		return out, nil
	}

	s, err := u.guests.FindByTokenHash(ctx, HashToken(guestToken))
	if errors.Is(err, repo.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, err
	}

	guest := model.GuestIdentity(s.ID)
	user := model.UserIdentity(userID, model.RoleUser)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if !s.Expired(u.clock.Now()) {
			if err := u.moveCart(ctx, r, guest, user, &out); err != nil {
				return err
			}
			if err := r.Orders().ReassignGuest(ctx, s.ID, userID); err != nil {
				return err
			}
		}

		//ゲストトークンはここで無効になる
		if err := r.GuestSessions().DeleteByID(ctx, s.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		after, _ := json.Marshal(map[string]interface{}{"cart_id": out.CartID, "merged": out.Merged})
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  userID,
			ActorGuestID: s.ID,
			Action:       model.AuditActionConvertGuest,
			ResourceType: model.AuditResourceCart,
			ResourceID:   out.CartID,
			AfterJSON:    string(after),
			CreatedAt:    u.clock.Now(),
		})
	})
	if err != nil {
		return ConvertGuestOutput{}, err
	}

	out.Converted = true
	metrics.GuestSessionsTotal.WithLabelValues("converted").Inc()
	return out, nil
}

func (u *GuestUsecase) moveCart(ctx context.Context, r repo.TxRepos, guest, user model.Identity, out *ConvertGuestOutput) error {
	guestCart, err := r.Carts().FindByOwner(ctx, guest)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	userCart, err := r.Carts().FindByOwner(ctx, user)
	if errors.Is(err, repo.ErrNotFound) {
		//ユーザーにカートが無ければそのまま付け替え
		out.CartID = guestCart.ID
		return r.Carts().Reassign(ctx, guestCart.ID, user.UserID)
	}
	if err != nil {
		return err
	}

	items, err := r.CartItems().ListByCartID(ctx, guestCart.ID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := r.CartItems().AddQuantity(ctx, userCart.ID, it.VariantID, it.Quantity); err != nil {
			return err
		}
	}
	//決済待ちの注文は決済後にユーザーのカートから明細を外す
	if err := r.Orders().MoveCart(ctx, guestCart.ID, userCart.ID); err != nil {
		return err
	}
	if err := r.Carts().Delete(ctx, guestCart.ID); err != nil {
		return err
	}

	out.CartID = userCart.ID
	out.Merged = true
	return nil
}

// 期限切れのゲストを掃除する（定期実行）
func (u *GuestUsecase) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := u.guests.DeleteExpired(ctx, u.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.GuestSessionsTotal.WithLabelValues("expired").Add(float64(n))
		u.log.Info("purged expired guest sessions", zap.Int64("count", n))
	}
	return n, nil
}
