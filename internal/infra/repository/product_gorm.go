package repository

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"storefront/internal/catalog"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// バリアントの実効価格の最小値と先頭画像
const productPriceJoin = `JOIN (
	SELECT product_id, MIN(COALESCE(sale_price, price)) AS min_price
	FROM variants
	GROUP BY product_id
) pv ON pv.product_id = products.id`

const productImageSelect = `(
	SELECT url FROM product_images pi
	WHERE pi.product_id = products.id
	ORDER BY pi.position ASC, pi.id ASC
	LIMIT 1
) AS image_url`

type facetPredicate func(tx *gorm.DB, p catalog.Plan) *gorm.DB

// facetごとの絞り込み。Plan.Activeがtrueのときだけ呼ばれる
var productFacetPredicates = map[catalog.Facet]facetPredicate{
	catalog.FacetGender: func(tx *gorm.DB, p catalog.Plan) *gorm.DB {
		genders := make([]string, len(p.Genders))
		for i, g := range p.Genders {
			genders[i] = string(g)
		}
		return tx.Where("products.gender IN ?", genders)
	},
	catalog.FacetColor: func(tx *gorm.DB, p catalog.Plan) *gorm.DB {
		return tx.Where(`EXISTS (
			SELECT 1 FROM variants v JOIN colors c ON c.id = v.color_id
			WHERE v.product_id = products.id AND c.slug IN ?)`, p.Colors)
	},
	catalog.FacetSize: func(tx *gorm.DB, p catalog.Plan) *gorm.DB {
		return tx.Where(`EXISTS (
			SELECT 1 FROM variants v JOIN sizes s ON s.id = v.size_id
			WHERE v.product_id = products.id AND s.slug IN ?)`, p.Sizes)
	},
	catalog.FacetMinPrice: func(tx *gorm.DB, p catalog.Plan) *gorm.DB {
		return tx.Where("pv.min_price >= ?", *p.MinPrice)
	},
	catalog.FacetMaxPrice: func(tx *gorm.DB, p catalog.Plan) *gorm.DB {
		return tx.Where("pv.min_price <= ?", *p.MaxPrice)
	},
}

// 並び順。最後はidで安定させる
var productSortOrders = map[catalog.Sort][]string{
	catalog.SortFeatured:  {"products.featured DESC", "products.id ASC"},
	catalog.SortNewest:    {"products.created_at DESC", "products.id DESC"},
	catalog.SortPriceAsc:  {"pv.min_price ASC", "products.id ASC"},
	catalog.SortPriceDesc: {"pv.min_price DESC", "products.id DESC"},
}

// 公開商品だけを、facet/価格帯/ソート/ページング付きで返す。
func (r *ProductGormRepository) ListPublic(ctx context.Context, plan catalog.Plan) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Joins(productPriceJoin).
		Where("products.is_active = ?", true)

	for _, f := range catalog.Facets {
		if !plan.Active(f) {
			continue
		}
		tx = productFacetPredicates[f](tx, plan)
	}

	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []model.Product{}, 0, errors.Wrap(err, "count products")
	}

	order, ok := productSortOrders[plan.Sort]
	if !ok {
		order = productSortOrders[catalog.SortFeatured]
	}
	for _, o := range order {
		tx = tx.Order(o)
	}

	if err := tx.
		Select("products.*, pv.min_price AS min_price, " + productImageSelect).
		Offset(plan.Offset()).
		Limit(plan.Limit()).
		Find(&products).Error; err != nil {
		return []model.Product{}, 0, errors.Wrap(err, "list products")
	}

	return products, total, nil
}

// slugで公開商品を取得
func (r *ProductGormRepository) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Preload("Brand").
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Variants.Color").
		Preload("Variants.Size").
		Where("slug = ? AND is_active = ?", slug, true).
		First(&p).Error
	if err != nil {
		return model.Product{}, mapErr(err, "find product")
	}

	for _, v := range p.Variants {
		if p.MinPrice == 0 || v.EffectivePrice() < p.MinPrice {
			p.MinPrice = v.EffectivePrice()
		}
	}
	if len(p.Images) > 0 {
		p.ImageURL = p.Images[0].URL
	}
	return p, nil
}

type variantRow struct {
	VariantID   string
	ProductID   int64
	ProductSlug string
	Name        string
	Color       string
	Size        string
	Price       int64
	SalePrice   *int64
	ImageURL    *string
	IsActive    bool
}

// 価格・名前を今の値で取得。削除済み商品は含めない
func (r *ProductGormRepository) FindVariants(ctx context.Context, variantIDs []string) ([]model.VariantDetail, error) {
	if len(variantIDs) == 0 {
		return []model.VariantDetail{}, nil
	}

	var rows []variantRow
	err := r.db.WithContext(ctx).
		Table("variants v").
		Select(`v.id AS variant_id, v.product_id, p.slug AS product_slug, p.name,
			c.name AS color, s.label AS size, v.price, v.sale_price, p.is_active,
			(SELECT url FROM product_images pi WHERE pi.product_id = p.id
			 ORDER BY pi.position ASC, pi.id ASC LIMIT 1) AS image_url`).
		Joins("JOIN products p ON p.id = v.product_id AND p.deleted_at IS NULL").
		Joins("JOIN colors c ON c.id = v.color_id").
		Joins("JOIN sizes s ON s.id = v.size_id").
		Where("v.id IN ?", variantIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "find variants")
	}

	out := make([]model.VariantDetail, 0, len(rows))
	for _, row := range rows {
		d := model.VariantDetail{
			VariantID:   row.VariantID,
			ProductID:   row.ProductID,
			ProductSlug: row.ProductSlug,
			Name:        row.Name,
			Color:       row.Color,
			Size:        row.Size,
			Price:       model.Variant{Price: row.Price, SalePrice: row.SalePrice}.EffectivePrice(),
			IsActive:    row.IsActive,
		}
		if row.ImageURL != nil {
			d.ImageURL = *row.ImageURL
		}
		out = append(out, d)
	}
	return out, nil
}

// フィルタUIの選択肢
func (r *ProductGormRepository) ListFacets(ctx context.Context) (model.Facets, error) {
	f := model.Facets{
		Genders: []model.Gender{model.GenderMen, model.GenderWomen, model.GenderUnisex, model.GenderKids},
	}

	db := r.db.WithContext(ctx)
	if err := db.Order("name ASC").Find(&f.Colors).Error; err != nil {
		return model.Facets{}, errors.Wrap(err, "list colors")
	}
	if err := db.Order("sort_order ASC, id ASC").Find(&f.Sizes).Error; err != nil {
		return model.Facets{}, errors.Wrap(err, "list sizes")
	}
	if err := db.Order("name ASC").Find(&f.Categories).Error; err != nil {
		return model.Facets{}, errors.Wrap(err, "list categories")
	}
	if err := db.Order("name ASC").Find(&f.Brands).Error; err != nil {
		return model.Facets{}, errors.Wrap(err, "list brands")
	}
	return f, nil
}

var _ repo.ProductRepository = (*ProductGormRepository)(nil)
