// 楽曲サービスのエントリポイント。
// 認証済みユーザーの楽曲のアップロード、一覧、配信を担当する。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/musicmesh/internal/music"
	"github.com/nao1215/musicmesh/internal/registry"
	"github.com/nao1215/musicmesh/pkg/config"
	"github.com/nao1215/musicmesh/pkg/database"
	"github.com/nao1215/musicmesh/pkg/logging"
)

func main() {
	logger := logging.New(os.Stderr, "music")
	if err := config.Load(); err != nil {
		logger.Fatal(".envの読み込みに失敗", "err", err)
	}

	cfg, err := music.LoadConfig()
	if err != nil {
		logger.Fatal("設定の読み込みに失敗", "err", err)
	}
	announcement, err := registry.LoadAnnouncement("music_service")
	if err != nil {
		logger.Fatal("設定の読み込みに失敗", "err", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("データベースの接続に失敗", "path", cfg.DatabasePath, "err", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := music.NewServer(ctx, cfg, db, nil, logger)
	if err != nil {
		logger.Fatal("楽曲サービスの初期化に失敗", "err", err)
	}

	go registry.Announce(ctx, announcement, logger)

	if err := server.Run(ctx); err != nil {
		logger.Error("楽曲サービスの起動に失敗", "err", err)
		os.Exit(1)
	}
}
