package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"
)

type checkoutService interface {
	Start(ctx context.Context, id model.Identity) (usecase.StartCheckoutOutput, error)
	Complete(ctx context.Context, id model.Identity, sessionID string) (usecase.OrderOutput, error)
}

// /checkout のHTTP
type CheckoutHandler struct {
	uc checkoutService
}

// DI
func NewCheckoutHandler(uc checkoutService) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/checkout", h.start)
	e.GET("/checkout/success", h.success)
}

// 決済画面のURLを返す（リダイレクトはクライアント側）
func (h *CheckoutHandler) start(c echo.Context) error {
	out, err := h.uc.Start(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) success(c echo.Context) error {
	out, err := h.uc.Complete(c.Request().Context(), middleware.IdentityFrom(c), c.QueryParam("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
