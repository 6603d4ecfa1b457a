package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"
)

type cartService interface {
	GetCart(ctx context.Context, id model.Identity) (usecase.CartResponse, error)
	AddItem(ctx context.Context, id model.Identity, in usecase.CartItemInput) (usecase.SuccessResponse, error)
	SetQuantity(ctx context.Context, id model.Identity, in usecase.CartItemInput) (usecase.SuccessResponse, error)
	RemoveItem(ctx context.Context, id model.Identity, variantID string) (usecase.SuccessResponse, error)
	ClearCart(ctx context.Context, id model.Identity) (usecase.SuccessResponse, error)
}

// /cartのHTTP
type CartHandler struct {
	uc cartService
}

// DI
func NewCartHandler(uc cartService) *CartHandler {
	return &CartHandler{uc: uc}
}

// 追加は1以上、更新は0で削除。1行999まで（cartsync.MaxLineQuantityも同じ値で丸める）
type cartItemRequest struct {
	VariantID string `json:"variant_id" validate:"required,slug"`
	Quantity  int64  `json:"quantity" validate:"gte=0,lte=999"`
}

// /cart, /cart/items を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/cart")
	g.GET("", h.getCart)
	g.DELETE("", h.clear)
	g.POST("/items", h.addItem)
	g.PUT("/items", h.setQuantity)
	g.DELETE("/items/:variant_id", h.removeItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	out, err := h.uc.GetCart(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req cartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AddItem(c.Request().Context(), middleware.IdentityFrom(c), usecase.CartItemInput{
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) setQuantity(c echo.Context) error {
	var req cartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.SetQuantity(c.Request().Context(), middleware.IdentityFrom(c), usecase.CartItemInput{
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeItem(c echo.Context) error {
	out, err := h.uc.RemoveItem(c.Request().Context(), middleware.IdentityFrom(c), c.Param("variant_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clear(c echo.Context) error {
	out, err := h.uc.ClearCart(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
