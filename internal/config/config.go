package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	GoEnv    string `env:"GO_ENV" envDefault:"dev"` // dev/prod
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DATABASE_URL があれば最優先で使う
	DatabaseURL      string `env:"DATABASE_URL"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	DBMaxOpenConns   int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`

	// 空ならフィルタ選択肢のキャッシュ無し
	RedisURL       string        `env:"REDIS_URL"`
	FacetCacheTTL  time.Duration `env:"FACET_CACHE_TTL" envDefault:"10m"`
	JWTSecret      string        `env:"JWT_SECRET,required,notEmpty"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTTL     time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"336h"`
	GuestTTL       time.Duration `env:"GUEST_SESSION_TTL" envDefault:"720h"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"true"`

	// チェックアウトやOAuthの戻り先に使う
	BaseURL   string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LoginPath string `env:"LOGIN_PATH" envDefault:"/login"`

	OIDC   OIDCConfig   `envPrefix:"OIDC_"`
	Stripe StripeConfig `envPrefix:"STRIPE_"`
}

// IssuerURLが空ならOAuthログインは無効
type OIDCConfig struct {
	IssuerURL    string `env:"ISSUER_URL"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

func (c OIDCConfig) Enabled() bool { return c.IssuerURL != "" }

// SecretKeyが空なら開発用の決済スタブを使う
type StripeConfig struct {
	SecretKey string `env:"SECRET_KEY"`
	Currency  string `env:"CURRENCY" envDefault:"usd"`
}

// Loadは.envを読み込んでから環境変数をパースする
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// .envは無くてもよい
		_ = godotenv.Load(f)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsProd() bool { return c.GoEnv == "prod" }

// 値の組み合わせチェック
func (c Config) Validate() error {
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("POSTGRES_PORT out of range: %d", c.PostgresPort)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTTL <= 0 || c.GuestTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.DBMaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1")
	}
	if c.OIDC.Enabled() && (c.OIDC.ClientID == "" || c.OIDC.ClientSecret == "") {
		return fmt.Errorf("OIDC_CLIENT_ID and OIDC_CLIENT_SECRET are required when OIDC_ISSUER_URL is set")
	}
	if c.IsProd() {
		if !c.CookieSecure {
			return fmt.Errorf("COOKIE_SECURE must be true in prod")
		}
		if c.Stripe.SecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required in prod")
		}
	}
	return nil
}

// DSN は接続文字列を返す
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Addr は ":8080" 形式
func (c Config) Addr() string {
	if len(c.Port) > 0 && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}
