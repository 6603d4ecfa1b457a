package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/oidcauth"
	"storefront/internal/infra/payment"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	checks := map[string]handler.Pinger{
		"postgres": func(ctx context.Context) error { return db.Ping(ctx, gormDB) },
	}

	//フィルタ選択肢のキャッシュ（REDIS_URLが無ければ無し）
	var facetCache repository.FacetCache = cache.NopFacetCache{}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		facetCache = cache.NewFacetRedisCache(rdb, cfg.FacetCacheTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	guestRepo := infraRepo.NewGuestSessionGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	idGen := usecase.UUIDGenerator{}
	clock := usecase.SystemClock{}

	//JWT issuer
	issuer := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)

	//決済（キーが無ければ開発用スタブ）
	var provider usecase.CheckoutProvider
	if cfg.Stripe.SecretKey != "" {
		provider = payment.NewStripeProvider(cfg.Stripe.SecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, using fake checkout provider")
		provider = payment.NewFakeProvider(cfg.BaseURL)
	}
	provider = payment.NewBreakerProvider(provider, payment.DefaultBreakerConfig("checkout"), log)

	//Usecase生成
	resolver := usecase.NewIdentityResolver(issuer, userRepo, guestRepo, clock, log)
	guestUC := usecase.NewGuestUsecase(guestRepo, txm, idGen, clock, cfg.GuestTTL, log)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)
	productUC := usecase.NewProductUsecase(productRepo, facetCache, log)
	checkoutUC := usecase.NewCheckoutUsecase(cartRepo, cartRepo, productRepo, orderRepo, userRepo, txm, provider, clock, cfg.Stripe.Currency, cfg.BaseURL, log)
	orderUC := usecase.NewOrderUsecase(orderRepo)

	sessions := auth.NewSessionIssuer(rtRepo, issuer, idGen, clock, cfg.RefreshTTL)
	registerUC := auth.NewRegisterUserUsecase(userRepo, auth.NewBcryptPasswordHasher(bcrypt.DefaultCost), clock)
	loginUC := auth.NewLoginUsecase(userRepo, auth.NewBcryptPasswordVerifier(), sessions, clock)
	refreshUC := auth.NewRefreshUsecase(rtRepo, userRepo, sessions, clock)
	logoutUC := auth.NewLogoutUsecase(rtRepo)
	meUC := auth.NewMeUsecase(userRepo)

	//Handler生成
	cookies := handler.CookieConfig{
		Secure:     cfg.CookieSecure,
		RefreshTTL: cfg.RefreshTTL,
		GuestTTL:   cfg.GuestTTL,
	}
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(checks),
		Product: handler.NewProductHandler(productUC),
		Cart:    handler.NewCartHandler(cartUC),
		Guest:   handler.NewGuestHandler(guestUC, cookies),
		Auth: handler.NewAuthHandler(handler.AuthHandlerDeps{
			Register: registerUC,
			Login:    loginUC,
			Sessions: sessions,
			Refresh:  refreshUC,
			Logout:   logoutUC,
			Me:       meUC,
			Guests:   guestUC,
			Cookies:  cookies,
			Log:      log,
		}),
		Checkout: handler.NewCheckoutHandler(checkoutUC),
		Order:    handler.NewOrderHandler(orderUC),
	}

	//OAuthログイン（OIDC_ISSUER_URLがあれば）
	if cfg.OIDC.Enabled() {
		client, err := oidcauth.New(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.BaseURL+"/auth/oauth/callback")
		if err != nil {
			return err
		}
		oauthUC := auth.NewOAuthLoginUsecase(userRepo, sessions, clock)
		handlers.OAuth = handler.NewOAuthHandler(client, oauthUC, guestUC, cookies, log)
	}

	//期限切れゲストの掃除
	go purgeGuests(ctx, guestUC, log)

	//Server起動
	srv := server.New(cfg.Addr(), resolver, log)
	srv.RegisterRoutes(handlers, cfg.LoginPath)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}

func purgeGuests(ctx context.Context, uc *usecase.GuestUsecase, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		if _, err := uc.PurgeExpired(ctx); err != nil {
			log.Warn("purge guest sessions", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
