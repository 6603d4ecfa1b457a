package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"
)

const (
	AccessTokenCookie  = "access_token"
	GuestSessionCookie = "guest_session"

	CtxIdentityKey = "identity" // model.Identity
)

// usecase.IdentityResolver を差し替えられるように
type IdentityResolver interface {
	Resolve(ctx context.Context, cred usecase.Credentials) (model.Identity, error)
}

// 全リクエストで持ち主を解決してcontextへ入れる。解決できなくても止めない
func Identity(resolver IdentityResolver, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cred := credentialsFrom(c)

			id, err := resolver.Resolve(c.Request().Context(), cred)
			if err != nil {
				log.Error("resolve identity", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}

			c.Set(CtxIdentityKey, id)
			return next(c)
		}
	}
}

// Bearer ヘッダを cookie より優先
func credentialsFrom(c echo.Context) usecase.Credentials {
	var cred usecase.Credentials

	if authz := c.Request().Header.Get(echo.HeaderAuthorization); authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			cred.AccessToken = strings.TrimSpace(parts[1])
		}
	}
	if cred.AccessToken == "" {
		if ck, err := c.Cookie(AccessTokenCookie); err == nil {
			cred.AccessToken = ck.Value
		}
	}
	if ck, err := c.Cookie(GuestSessionCookie); err == nil {
		cred.GuestToken = ck.Value
	}

	return cred
}

// Identity が入れた持ち主を取り出す
func IdentityFrom(c echo.Context) model.Identity {
	id, _ := c.Get(CtxIdentityKey).(model.Identity)
	return id
}

// 会員専用ページ。未ログインならログイン画面へ next 付きで飛ばす
func RequireUser(loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IdentityFrom(c).IsUser() {
				return next(c)
			}

			q := url.Values{}
			q.Set("next", c.Request().URL.RequestURI())
			return c.Redirect(http.StatusSeeOther, loginPath+"?"+q.Encode())
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
