package datastream

import (
	"fmt"
	"math/rand/v2"

	"github.com/Hakuto4838/GridSkipList/skiplist"
)

// OperationType 表示操作種類
type OperationType uint8

const (
	OpSearch OperationType = iota
	OpInsert
	OpRemove
)

func (t OperationType) String() string {
	switch t {
	case OpSearch:
		return "Search"
	case OpInsert:
		return "Insert"
	case OpRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

// Operation 表示一筆操作
type Operation struct {
	Type OperationType
	Key  skiplist.K
}

// RankSource 產生 0..n-1 的 rank，rank 越小越常出現
type RankSource interface {
	Next() int
}

type zipfSource struct {
	z *rand.Zipf
}

func (s zipfSource) Next() int { return int(s.z.Uint64()) }

type uniformSource struct {
	r *rand.Rand
	n int
}

func (s uniformSource) Next() int { return s.r.IntN(s.n) }

// NewRankSource 依參數建立 rank 來源，s = 0 時為均勻分布，否則需 s > 1、v >= 1
func NewRankSource(r *rand.Rand, n int, s, v float64) (RankSource, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid n: %d", n)
	}
	if s == 0 {
		return uniformSource{r: r, n: n}, nil
	}
	if s <= 1.0 || v < 1.0 {
		return nil, fmt.Errorf("invalid zipf params: s=%v must >1, v=%v must >=1", s, v)
	}
	return zipfSource{z: rand.NewZipf(r, s, v, uint64(n-1))}, nil
}

// SequenceModel 以既有的 Operation 序列提供順序重播
type SequenceModel struct {
	ops []Operation
	pos int
}

func NewSequenceModelFromOps(ops []Operation) *SequenceModel {
	cp := make([]Operation, len(ops))
	copy(cp, ops)
	return &SequenceModel{ops: cp}
}

// Next 回傳下一筆操作，若結束則回傳零值與 false
func (m *SequenceModel) Next() (Operation, bool) {
	if m.pos >= len(m.ops) {
		return Operation{}, false
	}
	op := m.ops[m.pos]
	m.pos++
	return op, true
}

// Reset 游標重置到起點
func (m *SequenceModel) Reset() { m.pos = 0 }

// Replay 將操作依序套用到集合上，回傳各操作的成功次數
func Replay(set skiplist.Set[skiplist.K], m *SequenceModel) (Stats, error) {
	var st Stats
	for {
		op, ok := m.Next()
		if !ok {
			return st, nil
		}
		switch op.Type {
		case OpSearch:
			st.Searches++
			if set.Contains(op.Key) {
				st.Hits++
			}
		case OpInsert:
			st.Inserts++
			_, inserted, err := set.Insert(op.Key)
			if err != nil {
				return st, fmt.Errorf("op %d insert %d: %w", m.pos-1, op.Key, err)
			}
			if !inserted {
				st.Duplicates++
			}
		case OpRemove:
			st.Removes++
			if set.Remove(op.Key) {
				st.Removed++
			}
		default:
			return st, fmt.Errorf("op %d: unknown operation type %d", m.pos-1, op.Type)
		}
	}
}

// Stats 統計一次重播的結果
type Stats struct {
	Searches, Hits      int
	Inserts, Duplicates int
	Removes, Removed    int
}
