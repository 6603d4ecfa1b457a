package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// CartとCartItemの両方を実装する
type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

var errNoOwner = errors.New("cart owner is not resolved")

// 持ち主のカートIDを取得し、無ければ作成。
// 一意制約にぶつかったら作らずに既存を読む。
func (r *CartGormRepository) GetOrCreateID(ctx context.Context, owner model.Identity) (int64, error) {
	col, val, ok := model.CartOwnerColumn(owner)
	if !ok {
		return 0, errNoOwner
	}

	cart := model.NewCartFor(owner)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: col}},
			DoNothing: true,
		}).
		Create(&cart)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "insert cart")
	}
	if res.RowsAffected == 1 && cart.ID > 0 {
		return cart.ID, nil
	}

	//競合した場合は既存を読む
	var existing model.Cart
	if err := r.db.WithContext(ctx).
		Select("id").
		Where(col+" = ?", val).
		First(&existing).Error; err != nil {
		return 0, mapErr(err, "select cart")
	}
	return existing.ID, nil
}

func (r *CartGormRepository) FindByOwner(ctx context.Context, owner model.Identity) (model.Cart, error) {
	col, val, ok := model.CartOwnerColumn(owner)
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}

	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where(col+" = ?", val).
		First(&cart).Error
	if err != nil {
		return model.Cart{}, mapErr(err, "find cart")
	}
	return cart, nil
}

// ゲストのカートをユーザーへ付け替える
func (r *CartGormRepository) Reassign(ctx context.Context, cartID int64, userID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"user_id":          userID,
			"guest_session_id": gorm.Expr("NULL"),
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return mapErr(res.Error, "reassign cart")
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// カートごと削除（明細はcascade）
func (r *CartGormRepository) Delete(ctx context.Context, cartID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Cart{}, cartID)
	if res.Error != nil {
		return mapErr(res.Error, "delete cart")
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 指定カートの明細を全削除
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&model.CartItem{}).Error; err != nil {
		return mapErr(err, "clear cart")
	}
	return r.touch(ctx, cartID)
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, mapErr(err, "list cart items")
	}

	return items, nil
}

// 同一バリアントは数量加算。1文で行うので同時に呼ばれても加算が失われない
func (r *CartGormRepository) AddQuantity(ctx context.Context, cartID int64, variantID string, qty int64) error {
	if qty <= 0 {
		return errors.New("invalid quantity")
	}

	now := time.Now()
	item := model.CartItem{
		CartID:    cartID,
		VariantID: variantID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "variant_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": now,
			}),
		}).
		Create(&item).Error
	if err != nil {
		return mapErr(err, "add cart item")
	}
	return r.touch(ctx, cartID)
}

// 数量を上書き。0以下は削除
func (r *CartGormRepository) SetQuantity(ctx context.Context, cartID int64, variantID string, qty int64) error {
	if qty <= 0 {
		return r.DeleteItem(ctx, cartID, variantID)
	}

	now := time.Now()
	item := model.CartItem{
		CartID:    cartID,
		VariantID: variantID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "variant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(&item).Error
	if err != nil {
		return mapErr(err, "set cart item")
	}
	return r.touch(ctx, cartID)
}

// 明細を削除。無くてもエラーにしない
func (r *CartGormRepository) DeleteItem(ctx context.Context, cartID int64, variantID string) error {
	if err := r.db.WithContext(ctx).
		Where("cart_id = ? AND variant_id = ?", cartID, variantID).
		Delete(&model.CartItem{}).Error; err != nil {
		return mapErr(err, "delete cart item")
	}
	return r.touch(ctx, cartID)
}

// carts.updated_atを更新
func (r *CartGormRepository) touch(ctx context.Context, cartID int64) error {
	if err := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", time.Now()).Error; err != nil {
		return mapErr(err, "touch cart")
	}
	return nil
}
