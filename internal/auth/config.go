package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/musicmesh/pkg/config"
	"github.com/nao1215/musicmesh/pkg/token"
)

// Config は認証局の設定。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string
	// JWTSecret はトークン署名用の秘密鍵。
	JWTSecret string
	// TokenTTL はトークンの有効期間。
	TokenTTL time.Duration
	// BcryptCost はパスワードハッシュのコスト。
	BcryptCost int
	// RateLimitPerSecond は登録とログインの1秒あたりの許可件数（クライアントIP単位）。
	RateLimitPerSecond float64
	// RateLimitBurst は登録とログインのバースト上限。
	RateLimitBurst int
	// CookieSecure はCookieにSecure属性を付けるかどうか。
	CookieSecure bool
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
}

// LoadConfig は環境変数から認証局の設定を読み込む。
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:           config.GetEnvOr("PORT", "5004"),
		DatabasePath:   config.GetEnvOr("AUTH_DB_PATH", "/data/auth.db"),
		JWTSecret:      config.GetEnvOr("JWT_SECRET", ""),
		AllowedOrigins: config.ListOr("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET が設定されていません")
	}

	var err error
	if cfg.TokenTTL, err = config.DurationOr("TOKEN_TTL", token.DefaultTTL); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = config.IntOr("BCRYPT_COST", bcrypt.DefaultCost); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerSecond, err = config.FloatOr("AUTH_RATE_LIMIT", 1); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = config.IntOr("AUTH_RATE_BURST", 5); err != nil {
		return Config{}, err
	}
	if cfg.CookieSecure, err = config.BoolOr("COOKIE_SECURE", false); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
