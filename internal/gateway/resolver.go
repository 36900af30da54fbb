package gateway

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/nao1215/musicmesh/internal/registry"
)

var (
	// ErrServiceNotFound はサービス名がレジストリにもシードにも存在しないことを表す。
	ErrServiceNotFound = errors.New("サービスが見つかりません")
	// ErrRegistryUnavailable はレジストリに到達できず、シードにも該当がないことを表す。
	ErrRegistryUnavailable = errors.New("サービスレジストリに到達できません")
)

// Seed はサービス名からインスタンスURLの一覧への静的な対応表。
type Seed map[string][]string

// DefaultSeed はレジストリに登録が無い場合に使う既定の対応表を返す。
func DefaultSeed() Seed {
	return Seed{
		"user_service":      {"http://localhost:5001"},
		"music_service":     {"http://localhost:5002"},
		"recommend_service": {"http://localhost:5003"},
	}
}

// ParseSeed は "svc=http://a:1,http://b:2;svc2=http://c:3" 形式の文字列を解析する。
// 空文字列の場合は空の対応表を返す。
func ParseSeed(s string) (Seed, error) {
	seed := Seed{}
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, urls, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("シードの形式が不正です: %q", entry)
		}
		for _, u := range strings.Split(urls, ",") {
			if u = strings.TrimSpace(u); u != "" {
				seed[name] = append(seed[name], u)
			}
		}
		if len(seed[name]) == 0 {
			return nil, fmt.Errorf("サービス %q のインスタンスURLがありません", name)
		}
	}
	return seed, nil
}

// Names はシードに含まれるサービス名を名前順で返す。
func (s Seed) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolver はサービス名をインスタンスプールに解決する。
// レジストリの登録を優先し、未登録またはレジストリに到達できない場合はシードを使う。
type Resolver struct {
	registry registry.Lookuper
	seed     Seed
}

// NewResolver は新しいResolverを生成する。regがnilの場合はシードのみで解決する。
func NewResolver(reg registry.Lookuper, seed Seed) *Resolver {
	if seed == nil {
		seed = Seed{}
	}
	return &Resolver{registry: reg, seed: seed}
}

// Resolve はサービス名に対応するインスタンスプールを返す。
// 返すスライスは呼び出し側で変更してもよい。
func (r *Resolver) Resolve(ctx context.Context, name string) ([]string, error) {
	var registryErr error
	if r.registry != nil {
		url, err := r.registry.Lookup(ctx, name)
		switch {
		case err == nil:
			return []string{url}, nil
		case errors.Is(err, registry.ErrNotFound):
		default:
			registryErr = err
		}
	}

	if pool := r.seed[name]; len(pool) > 0 {
		return slices.Clone(pool), nil
	}
	if registryErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistryUnavailable, registryErr)
	}
	return nil, ErrServiceNotFound
}
