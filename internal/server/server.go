package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/validator"
)

type Server struct {
	e    *echo.Echo
	addr string
	log  *zap.Logger
}

// echoの共通設定。ルートはRegisterRoutesで足す
func New(addr string, resolver middleware.IdentityResolver, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.Metrics())
	e.Use(middleware.Identity(resolver, log))
	e.Use(middleware.RequestLogger(log))

	return &Server{e: e, addr: addr, log: log}
}

func (s *Server) Echo() *echo.Echo {
	return s.e
}

// 止まるまでブロックする。Shutdownによる停止はエラーにしない
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.addr))
	if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}
