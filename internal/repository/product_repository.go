package repository

import (
	"context"

	"storefront/internal/catalog"
	"storefront/internal/domain/model"
)

// 商品の取得だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, plan catalog.Plan) ([]model.Product, int64, error)
	FindBySlug(ctx context.Context, slug string) (model.Product, error)
	// 価格は毎回DBから読む
	FindVariants(ctx context.Context, variantIDs []string) ([]model.VariantDetail, error)
	ListFacets(ctx context.Context) (model.Facets, error)
}

// フィルタの選択肢キャッシュ
type FacetCache interface {
	Get(ctx context.Context) (model.Facets, bool, error)
	Set(ctx context.Context, f model.Facets) error
}
