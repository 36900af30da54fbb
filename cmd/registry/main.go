// サービスレジストリのエントリポイント。
// サービス名とURLの対応を保持し、ゲートウェイからの問い合わせに答える。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/musicmesh/internal/registry"
	"github.com/nao1215/musicmesh/pkg/config"
	"github.com/nao1215/musicmesh/pkg/logging"
)

func main() {
	logger := logging.New(os.Stderr, "registry")
	if err := config.Load(); err != nil {
		logger.Fatal(".envの読み込みに失敗", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := registry.LoadConfig()
	store, err := registry.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("レジストリの保存先の初期化に失敗", "err", err)
	}

	if err := registry.NewServer(cfg, store, logger).Run(ctx); err != nil {
		logger.Fatal("レジストリサービスの起動に失敗", "err", err)
	}
}
