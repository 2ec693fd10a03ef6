package grid

import (
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Observer 接收每次操作的結果，用於統計
type Observer interface {
	ObserveSearch(found bool)
	ObserveInsert(height int, inserted bool)
	ObserveRemove(removed bool)
}

type nopObserver struct{}

func (nopObserver) ObserveSearch(bool)      {}
func (nopObserver) ObserveInsert(int, bool) {}
func (nopObserver) ObserveRemove(bool)      {}

type options struct {
	rng      *rand.Rand
	policy   HeightPolicy
	capacity int
	hint     int
	logger   *zap.Logger
	observer Observer
}

// Option 設定 List 的建構參數
type Option func(*options)

// WithSeed 以固定種子建立私有的 PCG 亂數來源
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewPCG(seed, 0))
	}
}

// WithRand 使用呼叫端提供的亂數來源；該來源不可與其他 goroutine 共用
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		if rng != nil {
			o.rng = rng
		}
	}
}

func WithHeightPolicy(p HeightPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithCapacity 限制 arena 可配置的 node 總數（含 header），0 表示不限制
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithSizeHint 預先配置 arena 空間
func WithSizeHint(n int) Option {
	return func(o *options) {
		o.hint = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func defaultOptions() *options {
	return &options{
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		policy:   Clamp,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
}
