package grid

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
	"strings"
)

// HeightPolicy 決定抽到的高度超過上限時如何處理
type HeightPolicy uint8

const (
	// Clamp 將超過上限的高度截在 maxLevel-1
	Clamp HeightPolicy = iota
	// Fold 以 h % maxLevel 折回低層，保留舊版行為的分布偏差
	Fold
)

func (p HeightPolicy) String() string {
	switch p {
	case Clamp:
		return "clamp"
	case Fold:
		return "fold"
	default:
		return "unknown"
	}
}

// ParseHeightPolicy 由字串解析 HeightPolicy（不分大小寫）
func ParseHeightPolicy(s string) (HeightPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp":
		return Clamp, nil
	case "fold", "modulo":
		return Fold, nil
	default:
		return Clamp, fmt.Errorf("unknown height policy %q", s)
	}
}

// HeightGenerator 為新插入的 key 抽出高度
// 取一個均勻亂數的最低位 1 的索引，P(h=i) = 2^-(i+1)
type HeightGenerator struct {
	rng      *rand.Rand
	maxLevel int
	policy   HeightPolicy
}

func NewHeightGenerator(rng *rand.Rand, maxLevel int, policy HeightPolicy) *HeightGenerator {
	return &HeightGenerator{
		rng:      rng,
		maxLevel: maxLevel,
		policy:   policy,
	}
}

// Next 回傳 [0, maxLevel-1] 之間的高度
func (g *HeightGenerator) Next() int {
	h := bits.TrailingZeros64(g.rng.Uint64())
	if g.policy == Fold {
		return h % g.maxLevel
	}
	return min(h, g.maxLevel-1)
}

func (g *HeightGenerator) Policy() HeightPolicy {
	return g.policy
}
