package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"storefront/internal/middleware"
	"storefront/internal/usecase"
)

type orderLister interface {
	ListMyOrders(ctx context.Context, userID int64, page int) (usecase.OrderListOutput, error)
}

// /account/orders のHTTP
type OrderHandler struct {
	uc orderLister
}

// DI
func NewOrderHandler(uc orderLister) *OrderHandler {
	return &OrderHandler{uc: uc}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, loginPath string) {
	e.GET("/account/orders", h.listMine, middleware.RequireUser(loginPath))
}

func (h *OrderHandler) listMine(c echo.Context) error {
	// 不正なpageは1扱い
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), middleware.IdentityFrom(c).UserID, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
