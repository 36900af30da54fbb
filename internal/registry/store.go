package registry

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrInvalidInput はサービス名またはURLが空であることを表す。
	ErrInvalidInput = errors.New("サービス名とURLは必須です")
	// ErrNotFound は指定された名前のサービスが登録されていないことを表す。
	ErrNotFound = errors.New("サービスが登録されていません")
	// ErrUnavailable はレジストリに到達できないことを表す。
	ErrUnavailable = errors.New("サービスレジストリに到達できません")
)

// Record はレジストリに登録された1件のサービス。
type Record struct {
	// Name はサービス名。
	Name string `json:"name"`
	// URL はサービスのベースURL。
	URL string `json:"url"`
}

// Lookuper はサービス名からURLを検索する。
// Store の実装と Client が満たす。
type Lookuper interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// Store はサービス登録の保存先。
type Store interface {
	Lookuper
	// Register は名前とURLを登録する。既存の登録は上書きする。
	Register(ctx context.Context, name, url string) error
	// List は全ての登録を名前順で返す。
	List(ctx context.Context) ([]Record, error)
}

// normalize は登録値の前後の空白を除去し、空でないことを確認する。
func normalize(name, url string) (string, string, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" || url == "" {
		return "", "", ErrInvalidInput
	}
	return name, url, nil
}

// MemoryStore はプロセス内メモリに登録を保持する Store。
// 複数のゴルーチンから同時に使用できる。
type MemoryStore struct {
	mu       sync.RWMutex
	services map[string]string
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{services: make(map[string]string)}
}

// Register は名前とURLを登録する。
func (s *MemoryStore) Register(_ context.Context, name, url string) error {
	name, url, err := normalize(name, url)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.services[name] = url
	s.mu.Unlock()
	return nil
}

// Lookup は名前に対応するURLを返す。
func (s *MemoryStore) Lookup(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	url, ok := s.services[strings.TrimSpace(name)]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return url, nil
}

// List は全ての登録を名前順で返す。
func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	records := make([]Record, 0, len(s.services))
	for name, url := range s.services {
		records = append(records, Record{Name: name, URL: url})
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})
	return records, nil
}
