package music

import (
	"time"

	"github.com/nao1215/musicmesh/pkg/authcheck"
	"github.com/nao1215/musicmesh/pkg/config"
)

// DefaultMaxUploadSize はアップロード可能なファイルの既定の最大サイズ（50MB）。
const DefaultMaxUploadSize int64 = 50 << 20

// Config は楽曲サービスの設定。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string
	// StorageDir は音声ファイルの保存先ディレクトリ。
	StorageDir string
	// AuthURL は認証局のベースURL。
	AuthURL string
	// AuthTimeout は認証局への問い合わせのタイムアウト。
	AuthTimeout time.Duration
	// MaxUploadSize はアップロード可能なファイルの最大サイズ（バイト）。
	MaxUploadSize int64
}

// LoadConfig は環境変数から楽曲サービスの設定を読み込む。
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:         config.GetEnvOr("PORT", "5002"),
		DatabasePath: config.GetEnvOr("MUSIC_DB_PATH", "/data/music.db"),
		StorageDir:   config.GetEnvOr("MUSIC_STORAGE_DIR", "/data/music"),
		AuthURL:      config.GetEnvOr("AUTH_URL", "http://localhost:5004"),
	}

	var err error
	if cfg.AuthTimeout, err = config.DurationOr("AUTH_TIMEOUT", authcheck.DefaultTimeout); err != nil {
		return Config{}, err
	}
	maxMB, err := config.IntOr("MUSIC_MAX_UPLOAD_MB", int(DefaultMaxUploadSize>>20))
	if err != nil {
		return Config{}, err
	}
	cfg.MaxUploadSize = int64(maxMB) << 20
	return cfg, nil
}
