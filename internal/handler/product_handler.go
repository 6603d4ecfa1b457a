package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"
)

type productService interface {
	ListPublicProducts(ctx context.Context, query url.Values) (usecase.ProductListOutput, error)
	GetProductDetail(ctx context.Context, slug string) (model.Product, error)
	Facets(ctx context.Context) (model.Facets, error)
}

// /products の公開API
type ProductHandler struct {
	uc productService
}

// DI
func NewProductHandler(uc productService) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:slug", h.detail)
	e.GET("/filters", h.filters)
}

// クエリの解釈はcatalog.ParsePlanに任せる。不正な値で400にはしない
func (h *ProductHandler) list(c echo.Context) error {
	out, err := h.uc.ListPublicProducts(c.Request().Context(), c.QueryParams())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	out, err := h.uc.GetProductDetail(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) filters(c echo.Context) error {
	out, err := h.uc.Facets(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
