package grid

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestList(t *testing.T, maxLevel int, opts ...Option) *List[int64] {
	t.Helper()
	opts = append([]Option{WithSeed(42)}, opts...)
	l, err := New[int64](maxLevel, opts...)
	require.NoError(t, err)
	return l
}

func TestNewInvalidMaxLevel(t *testing.T) {
	for _, lvl := range []int{0, -1, -32} {
		l, err := New[int64](lvl)
		assert.ErrorIs(t, err, ErrInvalidMaxLevel)
		assert.Nil(t, l)
	}
}

func TestNewCapacityBelowHeaders(t *testing.T) {
	_, err := New[int64](5, WithCapacity(3))
	assert.ErrorIs(t, err, ErrArenaFull)
}

func TestNewEmpty(t *testing.T) {
	l := newTestList(t, 5)
	require.NoError(t, l.Verify())
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 5, l.MaxLevel())

	for lvl := 0; lvl <= 5; lvl++ {
		h := l.Head(lvl)
		assert.True(t, h.IsHeader())
		assert.Equal(t, lvl, h.Level())
		assert.False(t, h.Next().Valid())
		if lvl > 0 {
			assert.Equal(t, lvl-1, h.Down().Level())
		}
	}

	n, found := l.Search(42)
	assert.False(t, found)
	assert.False(t, n.Valid())
}

// create(5); insert 42, 5, 3; search; remove 5 twice; remove 3
func TestScenario(t *testing.T) {
	l := newTestList(t, 5)

	h42, ok, err := l.Insert(42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, h42, 0)
	assert.LessOrEqual(t, h42, 4)

	n, found := l.Search(42)
	require.True(t, found)
	assert.Equal(t, int64(42), n.Key())
	assert.Equal(t, h42, n.Level())

	for _, k := range []int64{5, 3} {
		_, ok, err := l.Insert(k)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, l.Verify())

	_, found = l.Search(3)
	assert.True(t, found)

	assert.True(t, l.Remove(5))
	_, found = l.Search(5)
	assert.False(t, found)
	assert.False(t, l.Remove(5))
	assert.True(t, l.Remove(3))

	require.NoError(t, l.Verify())
	assert.Equal(t, []int64{42}, slices.Collect(l.Keys()))

	assert.True(t, l.Remove(42))
	assert.Equal(t, 0, l.Len())
	require.NoError(t, l.Verify())
}

func TestRoundTrip(t *testing.T) {
	l := newTestList(t, 12)
	rng := rand.New(rand.NewPCG(7, 0))
	keys := rng.Perm(2000)

	heights := make(map[int64]int, len(keys))
	for _, k := range keys {
		h, ok, err := l.Insert(int64(k))
		require.NoError(t, err)
		require.True(t, ok)
		heights[int64(k)] = h
	}
	require.NoError(t, l.Verify())
	assert.Equal(t, len(keys), l.Len())

	for k, h := range heights {
		n, found := l.Search(k)
		require.True(t, found, "key %d", k)
		assert.Equal(t, h, n.Level(), "key %d", k)
		assert.Equal(t, k, n.Key())

		bottom := n.Bottom()
		assert.Equal(t, 0, bottom.Level())
		assert.Equal(t, k, bottom.Key())

		// up 從第 0 層走回最高層
		top := bottom
		for top.Up().Valid() {
			top = top.Up()
			assert.Equal(t, k, top.Key())
		}
		assert.Equal(t, h, top.Level())
	}

	got := slices.Collect(l.Keys())
	assert.True(t, slices.IsSorted(got))
	assert.Len(t, got, len(keys))
}

func TestInsertDuplicate(t *testing.T) {
	l := newTestList(t, 6)
	for _, k := range []int64{10, 20, 30} {
		_, ok, err := l.Insert(k)
		require.NoError(t, err)
		require.True(t, ok)
	}
	before := levelLens(l)
	live := l.arena.live

	h, ok, err := l.Insert(20)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, h)
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, before, levelLens(l))
	assert.Equal(t, live, l.arena.live)
	require.NoError(t, l.Verify())
}

func TestRemoveAbsentLeavesStructure(t *testing.T) {
	l := newTestList(t, 8)
	for k := int64(0); k < 100; k += 2 {
		_, _, err := l.Insert(k)
		require.NoError(t, err)
	}
	before := levelLens(l)

	for _, k := range []int64{-1, 1, 51, 99, 1000} {
		assert.False(t, l.Remove(k))
	}
	assert.Equal(t, before, levelLens(l))
	require.NoError(t, l.Verify())

	for k := int64(0); k < 100; k += 4 {
		require.True(t, l.Remove(k))
		_, found := l.Search(k)
		assert.False(t, found)
	}
	assert.Equal(t, 25, l.Len())
	require.NoError(t, l.Verify())
}

func TestSearchPredecessor(t *testing.T) {
	l := newTestList(t, 4)
	for _, k := range []int64{10, 20, 30} {
		_, _, err := l.Insert(k)
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		key      int64
		header   bool
		predKey  int64
		predNext int64
	}{
		{name: "between", key: 25, predKey: 20, predNext: 30},
		{name: "after last", key: 99, predKey: 30},
		{name: "before first", key: 5, header: true, predNext: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, found := l.Search(tt.key)
			require.False(t, found)
			require.True(t, n.Valid())
			assert.Equal(t, 0, n.Level())
			assert.Equal(t, tt.header, n.IsHeader())
			if !tt.header {
				assert.Equal(t, tt.predKey, n.Key())
			}
			if tt.predNext != 0 {
				assert.Equal(t, tt.predNext, n.Next().Key())
			} else {
				assert.False(t, n.Next().Valid())
			}
		})
	}
}

func TestRandomOpsKeepInvariants(t *testing.T) {
	for _, policy := range []HeightPolicy{Clamp, Fold} {
		t.Run(policy.String(), func(t *testing.T) {
			l := newTestList(t, 6, WithHeightPolicy(policy))
			rng := rand.New(rand.NewPCG(99, 1))
			model := map[int64]bool{}

			for i := 0; i < 5000; i++ {
				k := int64(rng.IntN(300))
				if rng.IntN(3) == 0 {
					assert.Equal(t, model[k], l.Remove(k))
					delete(model, k)
					continue
				}
				h, ok, err := l.Insert(k)
				require.NoError(t, err)
				assert.Equal(t, !model[k], ok)
				if ok {
					assert.GreaterOrEqual(t, h, 0)
					assert.Less(t, h, l.MaxLevel())
				}
				model[k] = true
			}

			require.NoError(t, l.Verify())
			assert.Equal(t, len(model), l.Len())

			for lvl := 0; lvl < l.MaxLevel(); lvl++ {
				upper := slices.Collect(l.LevelKeys(lvl + 1))
				lower := slices.Collect(l.LevelKeys(lvl))
				assert.True(t, slices.IsSorted(lower))
				assert.True(t, isSubsequence(upper, lower), "level %d", lvl+1)
			}
			assert.Zero(t, l.LevelLen(l.MaxLevel()))
		})
	}
}

func TestArenaFull(t *testing.T) {
	const maxLevel = 4
	capacity := maxLevel + 1 + 10
	l := newTestList(t, maxLevel, WithCapacity(capacity))

	var err error
	inserted := 0
	for k := int64(0); k < 100; k++ {
		var ok bool
		before := l.Len()
		_, ok, err = l.Insert(k)
		if err != nil {
			assert.Equal(t, before, l.Len())
			break
		}
		require.True(t, ok)
		inserted++
	}
	require.ErrorIs(t, err, ErrArenaFull)
	assert.LessOrEqual(t, l.arena.live, capacity)
	assert.Equal(t, inserted, l.Len())
	require.NoError(t, l.Verify())

	// 刪除後空間可以再利用
	require.True(t, l.Remove(0))
	_, found := l.Search(0)
	assert.False(t, found)
	require.NoError(t, l.Verify())
}

func TestArenaReuse(t *testing.T) {
	l := newTestList(t, 8)
	for round := 0; round < 20; round++ {
		for k := int64(0); k < 64; k++ {
			_, _, err := l.Insert(k)
			require.NoError(t, err)
		}
		for k := int64(0); k < 64; k++ {
			require.True(t, l.Remove(k))
		}
	}
	require.NoError(t, l.Verify())
	assert.Equal(t, l.MaxLevel()+1, l.arena.live)
	// 反覆插入刪除不會讓 arena 無限成長
	assert.Less(t, len(l.arena.nodes), 64*l.MaxLevel()+l.MaxLevel()+1)
}

func TestDestroy(t *testing.T) {
	l := newTestList(t, 5)
	for k := int64(0); k < 50; k++ {
		_, _, err := l.Insert(k)
		require.NoError(t, err)
	}
	head := l.Head(0)
	l.Destroy()

	assert.False(t, head.Valid())
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.LevelLen(0))
	assert.False(t, l.Remove(3))
	n, found := l.Search(3)
	assert.False(t, found)
	assert.False(t, n.Valid())
	_, _, err := l.Insert(3)
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.ErrorIs(t, l.Verify(), ErrDestroyed)
	assert.Empty(t, slices.Collect(l.Keys()))

	l.Destroy()
}

func TestSeedIsReproducible(t *testing.T) {
	a := newTestList(t, 10)
	b := newTestList(t, 10)
	for k := int64(0); k < 500; k++ {
		ha, _, err := a.Insert(k)
		require.NoError(t, err)
		hb, _, err := b.Insert(k)
		require.NoError(t, err)
		require.Equal(t, ha, hb)
	}
	assert.Equal(t, levelLens(a), levelLens(b))
}

func TestMinMax(t *testing.T) {
	l := newTestList(t, 6)
	_, ok := l.Min()
	assert.False(t, ok)
	_, ok = l.Max()
	assert.False(t, ok)

	for _, k := range []int64{17, -4, 90, 3, 55} {
		_, _, err := l.Insert(k)
		require.NoError(t, err)
	}
	lo, ok := l.Min()
	require.True(t, ok)
	assert.Equal(t, int64(-4), lo)
	hi, ok := l.Max()
	require.True(t, ok)
	assert.Equal(t, int64(90), hi)
}

func TestStringKeys(t *testing.T) {
	l, err := New[string](4, WithSeed(1))
	require.NoError(t, err)
	for _, k := range []string{"pear", "apple", "fig", "", "kiwi"} {
		_, ok, err := l.Insert(k)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, []string{"", "apple", "fig", "kiwi", "pear"}, slices.Collect(l.Keys()))

	n, found := l.Search("")
	require.True(t, found)
	assert.False(t, n.IsHeader())
	require.NoError(t, l.Verify())
}

func TestFloatKeysRejectNaN(t *testing.T) {
	l, err := New[float64](4, WithSeed(1))
	require.NoError(t, err)

	nan := math.NaN()
	for _, k := range []float64{1, 2, nan, nan, 3} {
		_, ok, err := l.Insert(k)
		if math.IsNaN(k) {
			assert.ErrorIs(t, err, ErrInvalidKey)
			assert.False(t, ok)
			continue
		}
		require.NoError(t, err)
		require.True(t, ok)
	}

	assert.Equal(t, []float64{1, 2, 3}, slices.Collect(l.Keys()))
	assert.Equal(t, 3, l.Len())
	require.NoError(t, l.Verify())

	n, found := l.Search(nan)
	assert.False(t, found)
	assert.False(t, n.Valid())
	assert.False(t, l.Remove(nan))

	_, ok, err := l.Insert(math.Inf(-1))
	require.NoError(t, err)
	require.True(t, ok)
	lo, _ := l.Min()
	assert.True(t, math.IsInf(lo, -1))
	require.NoError(t, l.Verify())
}

type countingObserver struct {
	searches, hits, inserts, dups, removes, misses int
	heights                                        []int
}

func (c *countingObserver) ObserveSearch(found bool) {
	c.searches++
	if found {
		c.hits++
	}
}

func (c *countingObserver) ObserveInsert(height int, inserted bool) {
	if !inserted {
		c.dups++
		return
	}
	c.inserts++
	c.heights = append(c.heights, height)
}

func (c *countingObserver) ObserveRemove(removed bool) {
	if removed {
		c.removes++
	} else {
		c.misses++
	}
}

func TestObserver(t *testing.T) {
	obs := &countingObserver{}
	l := newTestList(t, 5, WithObserver(obs))

	for _, k := range []int64{1, 2, 3, 2} {
		_, _, err := l.Insert(k)
		require.NoError(t, err)
	}
	l.Contains(1)
	l.Contains(9)
	l.Remove(3)
	l.Remove(3)

	assert.Equal(t, 3, obs.inserts)
	assert.Equal(t, 1, obs.dups)
	assert.Len(t, obs.heights, 3)
	assert.Equal(t, 2, obs.searches)
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.removes)
	assert.Equal(t, 1, obs.misses)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	l := newTestList(t, 4)
	for _, k := range []int64{1, 2, 3} {
		_, _, err := l.Insert(k)
		require.NoError(t, err)
	}
	n, found := l.Search(2)
	require.True(t, found)
	b := n.Bottom()
	l.arena.at(b.id).prev = l.heads[0]

	assert.ErrorIs(t, l.Verify(), ErrCorrupt)
}

func levelLens(l *List[int64]) []int {
	out := make([]int, l.MaxLevel()+1)
	for i := range out {
		out[i] = l.LevelLen(i)
	}
	return out
}

func isSubsequence(sub, seq []int64) bool {
	i := 0
	for _, v := range seq {
		if i < len(sub) && sub[i] == v {
			i++
		}
	}
	return i == len(sub)
}
