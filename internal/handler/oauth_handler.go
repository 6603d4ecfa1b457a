package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
)

const oauthNextCookie = "oauth_next"

type OAuthClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (auth.OAuthClaims, error)
}

type oauthLoginer interface {
	Execute(ctx context.Context, claims auth.OAuthClaims, userAgent string) (auth.LoginOutput, auth.LoginSideEffect, error)
}

// /auth/oauth/* のHTTP
type OAuthHandler struct {
	client OAuthClient
	uc     oauthLoginer
	signIn signInCompleter
	log    *zap.Logger
}

// DI
func NewOAuthHandler(client OAuthClient, uc oauthLoginer, guests guestConverter, cookies CookieConfig, log *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		client: client,
		uc:     uc,
		signIn: signInCompleter{cookies: cookies, guests: guests, log: log},
		log:    log,
	}
}

func (h *OAuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/auth/oauth")
	g.GET("/login", h.login)
	g.GET("/callback", h.callback)
}

func (h *OAuthHandler) login(c echo.Context) error {
	state, _, err := usecase.NewOpaqueToken()
	if err != nil {
		return writeError(c, err)
	}

	exp := time.Now().Add(5 * time.Minute)
	h.signIn.cookies.set(c, stateCookie, state, true, exp)
	if next := safeNext(c.QueryParam("next")); next != "" {
		h.signIn.cookies.set(c, oauthNextCookie, next, true, exp)
	}

	return c.Redirect(http.StatusFound, h.client.AuthCodeURL(state))
}

func (h *OAuthHandler) callback(c echo.Context) error {
	want := cookieValue(c, stateCookie)
	got := c.QueryParam("state")
	h.signIn.cookies.clear(c, stateCookie, true)
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid oauth state"})
	}

	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing code"})
	}

	ctx := c.Request().Context()
	claims, err := h.client.Exchange(ctx, code)
	if err != nil {
		h.log.Warn("oauth exchange", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, side, err := h.uc.Execute(ctx, claims, c.Request().UserAgent())
	if err != nil {
		return writeAuthError(c, err)
	}
	if err := h.signIn.complete(c, out, side); err != nil {
		return writeError(c, err)
	}

	next := safeNext(cookieValue(c, oauthNextCookie))
	h.signIn.cookies.clear(c, oauthNextCookie, true)
	if next == "" {
		next = "/"
	}
	return c.Redirect(http.StatusSeeOther, next)
}

// 同一オリジンのパスだけ許可（//evil.example 等は捨てる）
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
