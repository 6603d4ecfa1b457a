package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"storefront/internal/middleware"
)

const (
	refreshCookie = "refresh"
	csrfCookie    = "csrf_token"
	stateCookie   = "oauth_state"
)

// cookieの共通設定
type CookieConfig struct {
	Secure     bool
	RefreshTTL time.Duration
	GuestTTL   time.Duration
}

func (cc CookieConfig) set(c echo.Context, name, value string, httpOnly bool, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

func (cc CookieConfig) clear(c echo.Context, name string, httpOnly bool) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (cc CookieConfig) setAccess(c echo.Context, token string, expires time.Time) {
	cc.set(c, middleware.AccessTokenCookie, token, true, expires)
}

func (cc CookieConfig) setRefresh(c echo.Context, plain string, expires time.Time) {
	cc.set(c, refreshCookie, plain, true, expires)
}

// JSから読めるようにHttpOnlyにしない
func (cc CookieConfig) setCsrf(c echo.Context, token string, expires time.Time) {
	cc.set(c, csrfCookie, token, false, expires)
}

func (cc CookieConfig) setGuest(c echo.Context, plain string, expires time.Time) {
	cc.set(c, middleware.GuestSessionCookie, plain, true, expires)
}

func (cc CookieConfig) clearSession(c echo.Context) {
	cc.clear(c, middleware.AccessTokenCookie, true)
	cc.clear(c, refreshCookie, true)
	cc.clear(c, csrfCookie, false)
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
