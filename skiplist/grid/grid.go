package grid

import (
	"cmp"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrInvalidMaxLevel = errors.New("max level must be positive")
	ErrArenaFull       = errors.New("node arena is full")
	ErrDestroyed       = errors.New("skip list already destroyed")
	ErrInvalidKey      = errors.New("key is not comparable with itself")
)

// invalidKey 回報無法排序的 key（浮點數 NaN 與自己不相等）
func invalidKey[K cmp.Ordered](key K) bool {
	return key != key
}

// List 是以四向連結 node 組成的 skip list 集合
// 第 0 層包含全部 key，每個 key 以高度 h 插入時會在 0..h 層各有一個實體
type List[K cmp.Ordered] struct {
	maxLevel int
	heads    []nodeID // heads[k] 為第 k 層的 header
	counts   []int    // 每層的 node 數（不含 header）
	arena    *arena[K]
	heights  *HeightGenerator
	path     []nodeID // 插入時每層的前驅
	logger   *zap.Logger
	observer Observer

	destroyed bool
}

// New 建立最高層級為 maxLevel 的 skip list
func New[K cmp.Ordered](maxLevel int, opts ...Option) (*List[K], error) {
	if maxLevel <= 0 {
		return nil, fmt.Errorf("new skip list (max level %d): %w", maxLevel, ErrInvalidMaxLevel)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.capacity > 0 && o.capacity < maxLevel+1 {
		return nil, fmt.Errorf("new skip list: %d headers exceed capacity %d: %w", maxLevel+1, o.capacity, ErrArenaFull)
	}

	l := &List[K]{
		maxLevel: maxLevel,
		heads:    make([]nodeID, maxLevel+1),
		counts:   make([]int, maxLevel+1),
		arena:    newArena[K](max(o.hint, maxLevel+1), o.capacity),
		heights:  NewHeightGenerator(o.rng, maxLevel, o.policy),
		path:     make([]nodeID, maxLevel+1),
		logger:   o.logger,
		observer: o.observer,
	}

	var zero K
	cur := l.newStack(zero, maxLevel, true)
	for lvl := maxLevel; lvl >= 0; lvl-- {
		l.heads[lvl] = cur
		cur = l.arena.at(cur).down
	}

	l.logger.Debug("skip list created",
		zap.Int("max_level", maxLevel),
		zap.Stringer("height_policy", o.policy),
		zap.Int("capacity", o.capacity))
	return l, nil
}

// newStack 建立高度 height 的垂直 node 堆疊並回傳最上層
// 所有 up/down 在這裡接好，水平連結則由呼叫端處理
func (l *List[K]) newStack(key K, height int, head bool) nodeID {
	before := cap(l.arena.nodes)

	top := l.arena.alloc(key, int32(height))
	l.arena.at(top).head = head
	cur := top
	for lvl := height - 1; lvl >= 0; lvl-- {
		lower := l.arena.alloc(key, int32(lvl))
		l.arena.at(lower).head = head
		l.arena.at(cur).down = lower
		l.arena.at(lower).up = cur
		cur = lower
	}

	if after := cap(l.arena.nodes); after != before {
		l.logger.Debug("node arena grown", zap.Int("from", before), zap.Int("to", after))
	}
	return top
}

// find 從最高層的 header 開始往下搜尋 key
// 找到時回傳 key 所在的最高層實體；否則回傳第 0 層最後一個小於 key 的 node
// path 不為 nil 時記錄每一層下降的位置，即該層的前驅
func (l *List[K]) find(key K, path []nodeID) (nodeID, bool) {
	nodes := l.arena.nodes
	cur := l.heads[l.maxLevel]
	for {
		n := &nodes[cur]
		if !n.head && n.key == key {
			return cur, true
		}
		if nx := n.next; nx != nilID && nodes[nx].key <= key {
			cur = nx
			continue
		}
		if path != nil {
			path[n.level] = cur
		}
		if n.down == nilID {
			return cur, false
		}
		cur = n.down
	}
}

// Search 查詢 key
// 找到時回傳其最高層的實體與 true；否則回傳第 0 層的前驅（可能是 header）與 false
// 集合為空時回傳無效的 Node
func (l *List[K]) Search(key K) (Node[K], bool) {
	if l.destroyed || l.counts[0] == 0 || invalidKey(key) {
		l.observer.ObserveSearch(false)
		return Node[K]{}, false
	}
	id, found := l.find(key, nil)
	l.observer.ObserveSearch(found)
	return Node[K]{l: l, id: id}, found
}

// Contains 判斷 key 是否存在
func (l *List[K]) Contains(key K) bool {
	_, found := l.Search(key)
	return found
}

// Insert 插入 key 並回傳抽到的高度
// key 已存在時不改變結構，inserted 為 false；NaN 等無法排序的 key 回傳 ErrInvalidKey
func (l *List[K]) Insert(key K) (height int, inserted bool, err error) {
	if l.destroyed {
		return 0, false, ErrDestroyed
	}
	if invalidKey(key) {
		return 0, false, fmt.Errorf("insert %v: %w", key, ErrInvalidKey)
	}
	if _, found := l.find(key, l.path); found {
		l.observer.ObserveInsert(0, false)
		return 0, false, nil
	}

	h := l.heights.Next()
	if l.arena.available() < h+1 {
		l.logger.Warn("node arena exhausted",
			zap.Int("live", l.arena.live),
			zap.Int("capacity", l.arena.limit),
			zap.Int("height", h))
		return 0, false, fmt.Errorf("insert %v at height %d: %w", key, h, ErrArenaFull)
	}

	top := l.newStack(key, h, false)

	// 從堆疊頂端往下，把每一層接到該層前驅之後
	nodes := l.arena.nodes
	for cur := top; cur != nilID; cur = nodes[cur].down {
		n := &nodes[cur]
		pred := l.path[n.level]
		p := &nodes[pred]
		n.prev = pred
		n.next = p.next
		if p.next != nilID {
			nodes[p.next].prev = cur
		}
		p.next = cur
		l.counts[n.level]++
	}

	l.observer.ObserveInsert(h, true)
	return h, true, nil
}

// Remove 刪除 key 的整個堆疊，key 不存在時回傳 false
func (l *List[K]) Remove(key K) bool {
	if l.destroyed || invalidKey(key) {
		return false
	}
	top, found := l.find(key, nil)
	if !found {
		l.observer.ObserveRemove(false)
		return false
	}

	nodes := l.arena.nodes
	for cur := top; cur != nilID; cur = nodes[cur].down {
		n := &nodes[cur]
		// header 永遠在前面，prev 必定存在
		nodes[n.prev].next = n.next
		if n.next != nilID {
			nodes[n.next].prev = n.prev
		}
		l.counts[n.level]--
	}

	// 所有層都斷開後才釋放
	for cur := top; cur != nilID; {
		down := nodes[cur].down
		l.arena.release(cur)
		cur = down
	}

	l.observer.ObserveRemove(true)
	return true
}

// Destroy 釋放每一層的所有 node（含 header），之後不可再使用
func (l *List[K]) Destroy() {
	if l.destroyed {
		return
	}
	released := 0
	for lvl := 0; lvl <= l.maxLevel; lvl++ {
		for cur := l.heads[lvl]; cur != nilID; {
			next := l.arena.at(cur).next
			l.arena.release(cur)
			released++
			cur = next
		}
	}
	l.logger.Debug("skip list destroyed",
		zap.Int("max_level", l.maxLevel),
		zap.Int("released", released))

	l.arena = nil
	l.heads = nil
	l.counts = nil
	l.path = nil
	l.destroyed = true
}

// Len 回傳集合內的 key 數量
func (l *List[K]) Len() int {
	if l.destroyed {
		return 0
	}
	return l.counts[0]
}

func (l *List[K]) MaxLevel() int {
	return l.maxLevel
}

// LevelLen 回傳第 level 層的 node 數（不含 header）
func (l *List[K]) LevelLen(level int) int {
	if l.destroyed || level < 0 || level > l.maxLevel {
		return 0
	}
	return l.counts[level]
}

// Head 回傳第 level 層的 header
func (l *List[K]) Head(level int) Node[K] {
	if l.destroyed || level < 0 || level > l.maxLevel {
		return Node[K]{}
	}
	return Node[K]{l: l, id: l.heads[level]}
}

func (l *List[K]) HeightPolicy() HeightPolicy {
	return l.heights.Policy()
}
