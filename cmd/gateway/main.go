// ゲートウェイのエントリポイント。
// 外部からのリクエストを受け付け、サービス名で解決したインスタンスへ転送する。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/musicmesh/internal/gateway"
	"github.com/nao1215/musicmesh/internal/registry"
	"github.com/nao1215/musicmesh/pkg/config"
	"github.com/nao1215/musicmesh/pkg/logging"
)

func main() {
	logger := logging.New(os.Stderr, "gateway")
	if err := config.Load(); err != nil {
		logger.Fatal(".envの読み込みに失敗", "err", err)
	}

	cfg, err := gateway.LoadConfig()
	if err != nil {
		logger.Fatal("設定の読み込みに失敗", "err", err)
	}

	var lookuper registry.Lookuper
	if cfg.RegistryURL != "" {
		lookuper = registry.NewClient(cfg.RegistryURL, cfg.RegistryTimeout)
	} else {
		logger.Warn("REGISTRY_URL が未設定のため静的なサービス表のみを使います", "services", cfg.Seed.Names())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gateway.NewServer(cfg, lookuper, logger).Run(ctx); err != nil {
		logger.Fatal("ゲートウェイの起動に失敗", "err", err)
	}
}
