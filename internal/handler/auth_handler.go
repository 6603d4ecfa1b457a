package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
)

type registerer interface {
	Execute(ctx context.Context, in auth.RegisterUserInput) (auth.RegisterUserOutput, error)
}

type loginer interface {
	Execute(ctx context.Context, in auth.LoginInput) (auth.LoginOutput, auth.LoginSideEffect, error)
}

type sessionIssuer interface {
	Issue(ctx context.Context, user *model.User, userAgent string) (auth.LoginOutput, auth.LoginSideEffect, error)
}

type refresher interface {
	Execute(ctx context.Context, plain string, userAgent string) (auth.LoginOutput, auth.LoginSideEffect, error)
}

type logouter interface {
	Execute(ctx context.Context, plain string) error
}

type meGetter interface {
	Execute(ctx context.Context, userID int64) (model.User, error)
}

type guestConverter interface {
	Convert(ctx context.Context, guestToken string, userID int64) (usecase.ConvertGuestOutput, error)
}

// サインイン完了時の共通処理（cookie発行とゲストの引き継ぎ）
type signInCompleter struct {
	cookies CookieConfig
	guests  guestConverter
	log     *zap.Logger
}

func (s signInCompleter) complete(c echo.Context, out auth.LoginOutput, side auth.LoginSideEffect) error {
	s.cookies.setAccess(c, out.Token.AccessToken, side.AccessExpiresAt)
	s.cookies.setRefresh(c, side.PlainRefreshToken, side.RefreshExpiresAt)

	csrf, _, err := usecase.NewOpaqueToken()
	if err != nil {
		return err
	}
	s.cookies.setCsrf(c, csrf, side.RefreshExpiresAt)

	guestToken := cookieValue(c, middleware.GuestSessionCookie)
	if guestToken == "" {
		return nil
	}

	// 引き継ぎに失敗してもサインイン自体は成功させる
	conv, err := s.guests.Convert(c.Request().Context(), guestToken, out.User.ID)
	if err != nil {
		s.log.Warn("convert guest", zap.Int64("user_id", out.User.ID), zap.Error(err))
		return nil
	}
	if conv.Converted {
		s.log.Info("guest converted",
			zap.Int64("user_id", out.User.ID),
			zap.Int64("cart_id", conv.CartID),
			zap.Bool("merged", conv.Merged),
		)
	}
	s.cookies.clear(c, middleware.GuestSessionCookie, true)
	return nil
}

type AuthHandler struct {
	registerUC registerer
	loginUC    loginer
	sessions   sessionIssuer
	refreshUC  refresher
	logoutUC   logouter
	meUC       meGetter
	signIn     signInCompleter
}

type AuthHandlerDeps struct {
	Register registerer
	Login    loginer
	Sessions sessionIssuer
	Refresh  refresher
	Logout   logouter
	Me       meGetter
	Guests   guestConverter
	Cookies  CookieConfig
	Log      *zap.Logger
}

// DI
func NewAuthHandler(d AuthHandlerDeps) *AuthHandler {
	return &AuthHandler{
		registerUC: d.Register,
		loginUC:    d.Login,
		sessions:   d.Sessions,
		refreshUC:  d.Refresh,
		logoutUC:   d.Logout,
		meUC:       d.Me,
		signIn:     signInCompleter{cookies: d.Cookies, guests: d.Guests, log: d.Log},
	}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, loginPath string) {
	g := e.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/refresh", h.refresh)
	g.POST("/logout", h.logout)

	e.GET("/account", h.me, middleware.RequireUser(loginPath))
}

// /auth/register のリクエストボディ。長さ等はusecaseで検証
type registerRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"max=255"`
}

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	reg, err := h.registerUC.Execute(ctx, auth.RegisterUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return writeAuthError(c, err)
	}

	// 登録後はそのままサインイン状態にする
	out, side, err := h.sessions.Issue(ctx, &reg.User, c.Request().UserAgent())
	if err != nil {
		return writeAuthError(c, err)
	}
	if err := h.signIn.complete(c, out, side); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, side, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return writeAuthError(c, err)
	}
	if err := h.signIn.complete(c, out, side); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) refresh(c echo.Context) error {
	out, side, err := h.refreshUC.Execute(c.Request().Context(), cookieValue(c, refreshCookie), c.Request().UserAgent())
	if err != nil {
		h.signIn.cookies.clearSession(c)
		return writeAuthError(c, err)
	}

	h.signIn.cookies.setAccess(c, out.Token.AccessToken, side.AccessExpiresAt)
	h.signIn.cookies.setRefresh(c, side.PlainRefreshToken, side.RefreshExpiresAt)
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) logout(c echo.Context) error {
	if err := h.logoutUC.Execute(c.Request().Context(), cookieValue(c, refreshCookie)); err != nil {
		return writeError(c, err)
	}

	h.signIn.cookies.clearSession(c)
	return c.JSON(http.StatusOK, usecase.SuccessResponse{Success: true})
}

func (h *AuthHandler) me(c echo.Context) error {
	user, err := h.meUC.Execute(c.Request().Context(), middleware.IdentityFrom(c).UserID)
	if err != nil {
		return writeAuthError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// auth usecaseのエラーをHTTPへ
func writeAuthError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidEmailFormat):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation error", Fields: map[string]string{"email": "must be a valid email address"}})
	case errors.Is(err, auth.ErrPasswordTooShort):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation error", Fields: map[string]string{"password": "must be at least 12 characters"}})
	case errors.Is(err, auth.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation error", Fields: map[string]string{"password": "is too common"}})
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "email already exists"})
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrSecurityIncident):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	case errors.Is(err, auth.ErrUserInactive):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	default:
		return writeError(c, err)
	}
}
