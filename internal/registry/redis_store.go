package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix はRedisに保存するキーのデフォルトプレフィックス。
const DefaultRedisPrefix = "registry"

// RedisStore はRedisに登録を保持する Store。
// キーは "<prefix>:<name>"、値はURLで、有効期限は設定しない。
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisClient はredis://形式のURLからクライアントを生成する。
func NewRedisClient(redisURL string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("RedisのURLを解析できません: %w", err)
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{opts.Addr},
		DB:           opts.DB,
		Username:     opts.Username,
		Password:     opts.Password,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
		TLSConfig:    opts.TLSConfig,
	}), nil
}

// NewRedisStore は新しいRedisStoreを生成する。prefixが空の場合は DefaultRedisPrefix を使う。
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Ping はRedisへの接続を確認する。
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Register は名前とURLを登録する。
func (s *RedisStore) Register(ctx context.Context, name, url string) error {
	name, url, err := normalize(name, url)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(name), url, 0).Err(); err != nil {
		return fmt.Errorf("%w: サービス %q の書き込みに失敗: %w", ErrUnavailable, name, err)
	}
	return nil
}

// Lookup は名前に対応するURLを返す。
func (s *RedisStore) Lookup(ctx context.Context, name string) (string, error) {
	url, err := s.client.Get(ctx, s.key(strings.TrimSpace(name))).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: サービス %q の読み込みに失敗: %w", ErrUnavailable, name, err)
	}
	return url, nil
}

// List は全ての登録を名前順で返す。
func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	prefix := s.prefix + ":"
	records := []Record{}

	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		url, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: キー %q の読み込みに失敗: %w", ErrUnavailable, key, err)
		}
		records = append(records, Record{Name: strings.TrimPrefix(key, prefix), URL: url})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: キーの走査に失敗: %w", ErrUnavailable, err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})
	return records, nil
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}
