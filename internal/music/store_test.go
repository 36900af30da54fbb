package music

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/musicmesh/pkg/database"
	"github.com/nao1215/musicmesh/pkg/migration"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.MemoryPath)
	if err != nil {
		t.Fatalf("DB接続に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migration.Run(context.Background(), db, migrationsFS, migrationsDir, nil); err != nil {
		t.Fatalf("マイグレーションに失敗: %v", err)
	}
	return db
}

// TestTrackStore はTrackStoreを検証する。
func TestTrackStore(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seed := func(t *testing.T, s *TrackStore) {
		t.Helper()
		for i, tr := range []Track{
			{ID: "t1", OwnerUserID: "alice", Filename: "a.mp3", Artist: "A", Path: "/x/t1.mp3", Size: 10},
			{ID: "t2", OwnerUserID: "bob", Filename: "b.mp3", Path: "/x/t2.mp3", Size: 20},
			{ID: "t3", OwnerUserID: "alice", Filename: "c.mp3", Path: "/x/t3.mp3", Size: 30},
		} {
			tr.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			if err := s.Create(context.Background(), tr); err != nil {
				t.Fatalf("Create()でエラーが発生: %v", err)
			}
		}
	}

	t.Run("所有者の楽曲だけをアップロード順に返すこと", func(t *testing.T) {
		t.Parallel()

		s := NewTrackStore(newTestDB(t))
		seed(t, s)

		got, err := s.ListByOwner(context.Background(), "alice")
		if err != nil {
			t.Fatalf("ListByOwner()でエラーが発生: %v", err)
		}
		if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t3" {
			t.Fatalf("ListByOwner() = %+v", got)
		}
		if got[0].Artist != "A" || got[0].Size != 10 || !got[0].CreatedAt.Equal(base) {
			t.Errorf("ListByOwner()[0] = %+v", got[0])
		}
	})

	t.Run("楽曲が無い場合は空のスライスを返すこと", func(t *testing.T) {
		t.Parallel()

		got, err := NewTrackStore(newTestDB(t)).ListByOwner(context.Background(), "carol")
		if err != nil {
			t.Fatalf("ListByOwner()でエラーが発生: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("ListByOwner() = %#v, want empty non-nil slice", got)
		}
	})

	t.Run("他人の楽曲は存在しない楽曲と同じエラーになること", func(t *testing.T) {
		t.Parallel()

		s := NewTrackStore(newTestDB(t))
		seed(t, s)
		ctx := context.Background()

		if _, err := s.GetOwned(ctx, "t1", "alice"); err != nil {
			t.Fatalf("GetOwned()でエラーが発生: %v", err)
		}
		if _, err := s.GetOwned(ctx, "t1", "bob"); !errors.Is(err, ErrTrackNotFound) {
			t.Errorf("他人の楽曲: error = %v, want ErrTrackNotFound", err)
		}
		if _, err := s.GetOwned(ctx, "missing", "alice"); !errors.Is(err, ErrTrackNotFound) {
			t.Errorf("存在しない楽曲: error = %v, want ErrTrackNotFound", err)
		}
	})
}
