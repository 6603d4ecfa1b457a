package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/handler"
)

type Handlers struct {
	Health   *handler.HealthHandler
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Guest    *handler.GuestHandler
	Auth     *handler.AuthHandler
	OAuth    *handler.OAuthHandler // OIDC無効ならnil
	Checkout *handler.CheckoutHandler
	Order    *handler.OrderHandler
}

func (s *Server) RegisterRoutes(h Handlers, loginPath string) {
	e := s.e

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	h.Health.RegisterRoutes(e)
	h.Product.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e)
	h.Guest.RegisterRoutes(e)
	h.Auth.RegisterRoutes(e, loginPath)
	if h.OAuth != nil {
		h.OAuth.RegisterRoutes(e)
	}
	h.Checkout.RegisterRoutes(e)
	h.Order.RegisterRoutes(e, loginPath)
}
