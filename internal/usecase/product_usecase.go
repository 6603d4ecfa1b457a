package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type ProductUsecase struct {
	productRepo repo.ProductRepository
	facets      repo.FacetCache
	log         *zap.Logger
}

// DI
func NewProductUsecase(productRepo repo.ProductRepository, facets repo.FacetCache, log *zap.Logger) *ProductUsecase {
	return &ProductUsecase{productRepo: productRepo, facets: facets, log: log}
}

type ProductListOutput struct {
	Items    []model.Product `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	// 実際に効いたフィルタ（未知の値は落ちている）
	Applied url.Values `json:"applied"`
}

// 未知のパラメータは無視する
func (u *ProductUsecase) ListPublicProducts(ctx context.Context, query url.Values) (ProductListOutput, error) {
	plan := catalog.ParsePlan(query)

	items, total, err := u.productRepo.ListPublic(ctx, plan)
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return ProductListOutput{
		Items:    items,
		Total:    total,
		Page:     plan.Page,
		PageSize: plan.Limit(),
		Applied:  plan.Values(),
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, slug string) (model.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}

	p, err := u.productRepo.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

// フィルタの選択肢。キャッシュの失敗はログだけ出してDBから返す
func (u *ProductUsecase) Facets(ctx context.Context) (model.Facets, error) {
	f, ok, err := u.facets.Get(ctx)
	if err != nil {
		u.log.Warn("facet cache get", zap.Error(err))
	}
	if ok {
		return f, nil
	}

	f, err = u.productRepo.ListFacets(ctx)
	if err != nil {
		return model.Facets{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.facets.Set(ctx, f); err != nil {
		u.log.Warn("facet cache set", zap.Error(err))
	}
	return f, nil
}
