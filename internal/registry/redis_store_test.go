package registry

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// newTestRedisStore は REGISTRY_TEST_REDIS_URL が設定されている場合のみRedisStoreを生成する。
// キーはテストごとに一意のプレフィックスで分離し、終了時に削除する。
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	redisURL := os.Getenv("REGISTRY_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("REGISTRY_TEST_REDIS_URL が未設定のためスキップ")
	}
	client, err := NewRedisClient(redisURL)
	if err != nil {
		t.Fatalf("NewRedisClient()でエラーが発生: %v", err)
	}
	store := NewRedisStore(client, "registry-test-"+uuid.NewString())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		t.Skipf("Redisに接続できないためスキップ: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		keys, _ := client.Keys(ctx, store.prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return store
}

// TestRedisStore はRedisStoreの登録と検索を検証する。
func TestRedisStore(t *testing.T) {
	t.Parallel()

	t.Run("登録、上書き、検索、一覧ができること", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := newTestRedisStore(t)

		if _, err := s.Lookup(ctx, "music_service"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("登録前のLookup() error = %v, want ErrNotFound", err)
		}
		if err := s.Register(ctx, "music_service", "http://h1:5002"); err != nil {
			t.Fatalf("Register()でエラーが発生: %v", err)
		}
		if err := s.Register(ctx, "music_service", "http://h2:5002"); err != nil {
			t.Fatalf("Register()でエラーが発生: %v", err)
		}
		if err := s.Register(ctx, "auth", "http://auth:5004"); err != nil {
			t.Fatalf("Register()でエラーが発生: %v", err)
		}

		got, err := s.Lookup(ctx, "music_service")
		if err != nil {
			t.Fatalf("Lookup()でエラーが発生: %v", err)
		}
		if got != "http://h2:5002" {
			t.Errorf("Lookup() = %q, want %q", got, "http://h2:5002")
		}

		records, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List()でエラーが発生: %v", err)
		}
		if len(records) != 2 || records[0].Name != "auth" || records[1].Name != "music_service" {
			t.Errorf("List() = %+v", records)
		}
	})

	t.Run("空の値はErrInvalidInputになること", func(t *testing.T) {
		t.Parallel()

		s := newTestRedisStore(t)
		if err := s.Register(context.Background(), "", "http://x"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Register() error = %v, want ErrInvalidInput", err)
		}
	})
}

// TestNewRedisClient はRedis URLの解析を検証する。
func TestNewRedisClient(t *testing.T) {
	t.Parallel()

	t.Run("不正なURLはエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := NewRedisClient("http://not-redis"); err == nil {
			t.Fatal("不正なURLでエラーが返されなかった")
		}
	})

	t.Run("到達できないRedisはPingでErrUnavailableになること", func(t *testing.T) {
		t.Parallel()

		client, err := NewRedisClient("redis://127.0.0.1:1/0")
		if err != nil {
			t.Fatalf("NewRedisClient()でエラーが発生: %v", err)
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := NewRedisStore(client, "").Ping(ctx); !errors.Is(err, ErrUnavailable) {
			t.Errorf("Ping() error = %v, want ErrUnavailable", err)
		}
	})
}
