package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"
)

type guestEnsurer interface {
	Ensure(ctx context.Context, current model.Identity, presentedToken string) (usecase.GuestSessionOutput, error)
}

// /session/guest のHTTP
type GuestHandler struct {
	uc      guestEnsurer
	cookies CookieConfig
}

// DI
func NewGuestHandler(uc guestEnsurer, cookies CookieConfig) *GuestHandler {
	return &GuestHandler{uc: uc, cookies: cookies}
}

func (h *GuestHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/session/guest", h.ensure)
}

// 何度呼んでもよい。既存のゲストcookieは同じ値で延長せずに返し直す
func (h *GuestHandler) ensure(c echo.Context) error {
	out, err := h.uc.Ensure(
		c.Request().Context(),
		middleware.IdentityFrom(c),
		cookieValue(c, middleware.GuestSessionCookie),
	)
	if err != nil {
		return writeError(c, err)
	}

	if out.Token != "" {
		h.cookies.setGuest(c, out.Token, out.ExpiresAt)
	}

	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, out)
}
