package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type guestSessionGormRepository struct {
	db *gorm.DB
}

func NewGuestSessionGormRepository(db *gorm.DB) repo.GuestSessionRepository {
	return &guestSessionGormRepository{db: db}
}

func (r *guestSessionGormRepository) Create(ctx context.Context, s *model.GuestSession) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return mapErr(err, "create guest session")
	}
	return nil
}

func (r *guestSessionGormRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.GuestSession, error) {
	var s model.GuestSession
	if err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&s).Error; err != nil {
		return nil, mapErr(err, "find guest session")
	}
	return &s, nil
}

func (r *guestSessionGormRepository) DeleteByID(ctx context.Context, id string) error {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("guest_session_id = ?", id).Delete(&model.Cart{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.GuestSession{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return mapErr(err, "delete guest session")
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 期限切れのゲストとそのカートを消す
func (r *guestSessionGormRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&model.GuestSession{}).Select("id").Where("expires_at <= ?", now)

		if err := tx.Where("guest_session_id IN (?)", expired).Delete(&model.Cart{}).Error; err != nil {
			return err
		}

		res := tx.Where("expires_at <= ?", now).Delete(&model.GuestSession{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, mapErr(err, "delete expired guest sessions")
	}
	return deleted, nil
}
