package registry

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nao1215/musicmesh/pkg/config"
)

const (
	// announceInterval は自己登録を再試行する間隔。
	announceInterval = 2 * time.Second
	// announceAttempts は自己登録の最大試行回数。
	announceAttempts = 30
)

// Announcement はバックエンドが起動時にレジストリへ自身を登録するための設定。
type Announcement struct {
	// RegistryURL はレジストリのベースURL。
	RegistryURL string
	// ServiceName は登録するサービス名。
	ServiceName string
	// PublicURL はゲートウェイから到達できる自身のURL。
	PublicURL string
	// Timeout はレジストリへの1回の呼び出しのタイムアウト。
	Timeout time.Duration
}

// LoadAnnouncement は環境変数 REGISTRY_URL, SERVICE_NAME, PUBLIC_URL から自己登録の設定を読み込む。
func LoadAnnouncement(defaultName string) (Announcement, error) {
	timeout, err := config.DurationOr("REGISTRY_TIMEOUT", DefaultClientTimeout)
	if err != nil {
		return Announcement{}, err
	}
	return Announcement{
		RegistryURL: config.GetEnvOr("REGISTRY_URL", ""),
		ServiceName: config.GetEnvOr("SERVICE_NAME", defaultName),
		PublicURL:   config.GetEnvOr("PUBLIC_URL", ""),
		Timeout:     timeout,
	}, nil
}

// Enabled は自己登録に必要な値が揃っているかを返す。
func (a Announcement) Enabled() bool {
	return a.RegistryURL != "" && a.ServiceName != "" && a.PublicURL != ""
}

// Announce はレジストリが応答するまで登録を再試行し、結果をログに記録する。
// 設定が揃っていない場合は何もしない。登録の失敗でサービスを止めることはない。
func Announce(ctx context.Context, a Announcement, logger *log.Logger) {
	if !a.Enabled() {
		logger.Debug("自己登録の設定が無いためレジストリに登録しません")
		return
	}
	client := NewClient(a.RegistryURL, a.Timeout)
	if err := client.RegisterWithRetry(ctx, a.ServiceName, a.PublicURL, announceInterval, announceAttempts); err != nil {
		logger.Warn("レジストリへの登録に失敗", "service", a.ServiceName, "registry", a.RegistryURL, "err", err)
		return
	}
	logger.Info("レジストリに登録しました", "service", a.ServiceName, "url", a.PublicURL)
}
