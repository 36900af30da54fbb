package gateway

import (
	"fmt"
	"time"

	"github.com/nao1215/musicmesh/pkg/config"
)

// PathMode は上流に転送するパスの組み立て方。
type PathMode string

const (
	// PathModeServiceRoot は "<instance>/<service>" に転送し、残りのパスとクエリを捨てる。
	PathModeServiceRoot PathMode = "service-root"
	// PathModePassthrough は "<instance><残りのパス>?<クエリ>" に転送する。
	PathModePassthrough PathMode = "passthrough"
)

// Config はゲートウェイの設定。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// RegistryURL はサービスレジストリのベースURL。空の場合はシードのみで解決する。
	RegistryURL string
	// RegistryTimeout はレジストリへの問い合わせのタイムアウト。
	RegistryTimeout time.Duration
	// Seed はレジストリに登録が無い場合に使う静的な対応表。
	Seed Seed
	// PathMode は転送先パスの組み立て方。
	PathMode PathMode
	// UpstreamTimeout は上流サービスが応答ヘッダーを返すまでの制限時間。
	UpstreamTimeout time.Duration
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
}

// LoadConfig は環境変数からゲートウェイの設定を読み込む。
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:           config.GetEnvOr("PORT", "8080"),
		RegistryURL:    config.GetEnvOr("REGISTRY_URL", ""),
		PathMode:       PathMode(config.GetEnvOr("GATEWAY_PATH_MODE", string(PathModeServiceRoot))),
		AllowedOrigins: config.ListOr("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	var err error
	if cfg.UpstreamTimeout, err = config.DurationOr("GATEWAY_UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RegistryTimeout, err = config.DurationOr("REGISTRY_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}

	if raw := config.GetEnvOr("GATEWAY_SEED", ""); raw != "" {
		if cfg.Seed, err = ParseSeed(raw); err != nil {
			return Config{}, fmt.Errorf("GATEWAY_SEED の値が不正です: %w", err)
		}
	} else {
		cfg.Seed = DefaultSeed()
	}

	switch cfg.PathMode {
	case PathModeServiceRoot, PathModePassthrough:
	default:
		return Config{}, fmt.Errorf("GATEWAY_PATH_MODE の値が不正です（%q）", cfg.PathMode)
	}
	return cfg, nil
}
