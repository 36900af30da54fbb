package gateway

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrNoInstances はインスタンスプールが空であることを表す。
var ErrNoInstances = errors.New("利用可能なインスタンスがありません")

// Balancer はインスタンスプールから転送先を1つ選ぶ。
type Balancer interface {
	Pick(instances []string) (string, error)
}

// RandomBalancer はリクエストごとに一様ランダムにインスタンスを選ぶ。
// 乱数源はミューテックスで保護するため、複数のゴルーチンから同時に使用できる。
type RandomBalancer struct {
	mu   sync.Mutex
	intn func(n int) int
}

// NewRandomBalancer はRandomBalancerを生成する。
// intnは [0, n) の整数を返す関数で、nilの場合は現在時刻で初期化した乱数源を使う。
func NewRandomBalancer(intn func(n int) int) *RandomBalancer {
	if intn == nil {
		seed := uint64(time.Now().UnixNano())
		intn = rand.New(rand.NewPCG(seed, seed>>1|1)).IntN
	}
	return &RandomBalancer{intn: intn}
}

// NewSeededBalancer は固定のシードで初期化したRandomBalancerを生成する。
// 同じシードからは同じ選択順序が得られる。
func NewSeededBalancer(seed1, seed2 uint64) *RandomBalancer {
	return NewRandomBalancer(rand.New(rand.NewPCG(seed1, seed2)).IntN)
}

// Pick はinstancesから1つを選んで返す。
func (b *RandomBalancer) Pick(instances []string) (string, error) {
	switch len(instances) {
	case 0:
		return "", ErrNoInstances
	case 1:
		return instances[0], nil
	}

	b.mu.Lock()
	i := b.intn(len(instances))
	b.mu.Unlock()

	if i < 0 || i >= len(instances) {
		i = 0
	}
	return instances[i], nil
}
