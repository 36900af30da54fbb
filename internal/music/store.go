package music

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// ErrTrackNotFound は楽曲が存在しないか、呼び出し元の所有でないことを表す。
var ErrTrackNotFound = errors.New("楽曲が存在しません")

// Track はアップロードされた楽曲。
type Track struct {
	// ID は楽曲の一意識別子（UUID）。
	ID string
	// OwnerUserID はアップロードしたユーザーのID。
	OwnerUserID string
	// Filename はアップロード時のファイル名。
	Filename string
	// Artist はアーティスト名。任意。
	Artist string
	// Path はディスク上の保存パス。
	Path string
	// Size はファイルサイズ（バイト）。
	Size int64
	// CreatedAt はアップロード日時。
	CreatedAt time.Time
}

// TrackStore は楽曲のメタデータをSQLiteに保存する。
type TrackStore struct {
	db *sql.DB
}

// NewTrackStore は新しいTrackStoreを生成する。
func NewTrackStore(db *sql.DB) *TrackStore {
	return &TrackStore{db: db}
}

// Create は楽曲を保存する。
func (s *TrackStore) Create(ctx context.Context, t Track) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracks (id, owner_user_id, filename, artist, path, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerUserID, t.Filename, t.Artist, t.Path, t.Size, t.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("楽曲の保存に失敗: %w", err)
	}
	return nil
}

// GetOwned はownerが所有する楽曲を取得する。
// 他のユーザーの楽曲も存在しない楽曲と同じく ErrTrackNotFound を返す。
func (s *TrackStore) GetOwned(ctx context.Context, id, owner string) (Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_user_id, filename, artist, path, size, created_at
		 FROM tracks WHERE id = ? AND owner_user_id = ?`,
		id, owner,
	)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Track{}, ErrTrackNotFound
	}
	if err != nil {
		return Track{}, fmt.Errorf("楽曲の取得に失敗: %w", err)
	}
	return t, nil
}

// ListByOwner はownerが所有する楽曲をアップロード順に返す。
func (s *TrackStore) ListByOwner(ctx context.Context, owner string) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_user_id, filename, artist, path, size, created_at
		 FROM tracks WHERE owner_user_id = ? ORDER BY created_at, id`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("楽曲一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tracks := []Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("楽曲の読み取りに失敗: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(row scanner) (Track, error) {
	var (
		t         Track
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.OwnerUserID, &t.Filename, &t.Artist, &t.Path, &t.Size, &createdAt); err != nil {
		return Track{}, err
	}
	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Track{}, fmt.Errorf("アップロード日時の解析に失敗: %w", err)
	}
	return t, nil
}
