package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// 持ち主はユーザーでもゲストでもよい。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// price は読み出し時点のバリアント価格（セール優先）
type CartItemResponse struct {
	VariantID   string `json:"variant_id"`
	ProductID   int64  `json:"product_id"`
	ProductSlug string `json:"product_slug"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	ImageURL    string `json:"image_url,omitempty"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total int64              `json:"total"`
	Count int64              `json:"count"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type CartItemInput struct {
	VariantID string
	Quantity  int64
}

var errIdentityRequired = NewHTTPError(http.StatusUnauthorized, "identity required")

// カート取得。カートが無ければ空を返す（作らない）
func (u *CartUsecase) GetCart(ctx context.Context, id model.Identity) (CartResponse, error) {
	empty := CartResponse{Items: []CartItemResponse{}}
	if !id.Resolved() {
		return empty, nil
	}

	cart, err := u.cartRepo.FindByOwner(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// カートに追加（同一バリアントは数量加算）。
func (u *CartUsecase) AddItem(ctx context.Context, id model.Identity, in CartItemInput) (SuccessResponse, error) {
	if !id.Resolved() {
		return SuccessResponse{}, errIdentityRequired
	}
	in.VariantID = strings.TrimSpace(in.VariantID)
	if in.VariantID == "" {
		return SuccessResponse{}, NewHTTPError(http.StatusBadRequest, "invalid variant_id")
	}
	if in.Quantity < 1 {
		return SuccessResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	if err := u.requireVariant(ctx, in.VariantID); err != nil {
		return SuccessResponse{}, err
	}

	cartID, err := u.cartRepo.GetOrCreateID(ctx, id)
	if err != nil {
		return SuccessResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartItemRepo.AddQuantity(ctx, cartID, in.VariantID, in.Quantity); err != nil {
		return SuccessResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	metrics.CartMutationsTotal.WithLabelValues("add", id.Kind.String()).Inc()
	return SuccessResponse{Success: true}, nil
}

// 数量を最終値で上書き。0以下は削除
func (u *CartUsecase) SetQuantity(ctx context.Context, id model.Identity, in CartItemInput) (SuccessResponse, error) {
	if !id.Resolved() {
		return SuccessResponse{}, errIdentityRequired
	}
	in.VariantID = strings.TrimSpace(in.VariantID)
	if in.VariantID == "" {
		return SuccessResponse{}, NewHTTPError(http.StatusBadRequest, "invalid variant_id")
	}
	if in.Quantity <= 0 {
		return u.RemoveItem(ctx, id, in.VariantID)
	}

	if err := u.requireVariant(ctx, in.VariantID); err != nil {
		return SuccessResponse{}, err
	}

	cartID, err := u.cartRepo.GetOrCreateID(ctx, id)
	if err != nil {
		return SuccessResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartItemRepo.SetQuantity(ctx, cartID, in.VariantID, in.Quantity); err != nil {
		return SuccessResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	metrics.CartMutationsTotal.WithLabelValues("set", id.Kind.String()).Inc()
	return SuccessResponse{Success: true}, nil
}

// 明細削除。無い明細の削除も成功扱い
func (u *CartUsecase) RemoveItem(ctx context.Context, id model.Identity, variantID string) (SuccessResponse, error) {
	if !id.Resolved() {
		return SuccessResponse{}, errIdentityRequired
	}
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return SuccessResponse{}, NewHTTPError(http.StatusBadRequest, "invalid variant_id")
	}

	cart, err := u.cartRepo.FindByOwner(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return SuccessResponse{Success: true}, nil
	}
	if err != nil {
		return SuccessResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartItemRepo.DeleteItem(ctx, cart.ID, variantID); err != nil {
		return SuccessResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	metrics.CartMutationsTotal.WithLabelValues("remove", id.Kind.String()).Inc()
	return SuccessResponse{Success: true}, nil
}

// 全明細を削除。カートそのものは残す
func (u *CartUsecase) ClearCart(ctx context.Context, id model.Identity) (SuccessResponse, error) {
	if !id.Resolved() {
		return SuccessResponse{}, errIdentityRequired
	}

	cart, err := u.cartRepo.FindByOwner(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return SuccessResponse{Success: true}, nil
	}
	if err != nil {
		return SuccessResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartRepo.Clear(ctx, cart.ID); err != nil {
		return SuccessResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	metrics.CartMutationsTotal.WithLabelValues("clear", id.Kind.String()).Inc()
	return SuccessResponse{Success: true}, nil
}

// 公開中のバリアントか
func (u *CartUsecase) requireVariant(ctx context.Context, variantID string) error {
	details, err := u.productRepo.FindVariants(ctx, []string{variantID})
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(details) == 0 || !details[0].IsActive {
		return NewHTTPError(http.StatusNotFound, "variant not found")
	}
	return nil
}

// cartIDの明細をまとめてCartResponseを作る。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.VariantID)
	}

	details, err := u.productRepo.FindVariants(ctx, ids)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	byID := make(map[string]model.VariantDetail, len(details))
	for _, d := range details {
		byID[d.VariantID] = d
	}

	resp := CartResponse{Items: make([]CartItemResponse, 0, len(items))}
	for _, it := range items {
		d, ok := byID[it.VariantID]
		//消えた・非公開の商品は表示しない
		if !ok || !d.IsActive {
			continue
		}

		resp.Items = append(resp.Items, CartItemResponse{
			VariantID:   it.VariantID,
			ProductID:   d.ProductID,
			ProductSlug: d.ProductSlug,
			Name:        d.Name,
			Color:       d.Color,
			Size:        d.Size,
			Price:       d.Price,
			Quantity:    it.Quantity,
			ImageURL:    d.ImageURL,
		})
		resp.Total += d.Price * it.Quantity
		resp.Count += it.Quantity
	}

	return resp, nil
}
