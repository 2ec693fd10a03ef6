package grid

import (
	"cmp"
	"math"
)

// nodeID 是 node 在 arena 中的索引，nilID 表示不存在的鄰居
type nodeID int32

const (
	nilID    nodeID = -1
	maxNodes        = math.MaxInt32
)

// node 是某個 key 在某一層的實體
// next/prev 為同層鄰居，up/down 為同一個 key 的上下層
type node[K cmp.Ordered] struct {
	key   K
	level int32
	head  bool
	next  nodeID
	prev  nodeID
	up    nodeID
	down  nodeID
}

// arena 以索引管理所有 node，釋放的索引放入 free 重複使用
type arena[K cmp.Ordered] struct {
	nodes []node[K]
	free  []nodeID
	live  int
	limit int
}

func newArena[K cmp.Ordered](hint, limit int) *arena[K] {
	if limit > 0 && hint > limit {
		hint = limit
	}
	return &arena[K]{
		nodes: make([]node[K], 0, hint),
		limit: limit,
	}
}

// available 回傳還能配置的 node 數量
func (a *arena[K]) available() int {
	limit := a.limit
	if limit <= 0 || limit > maxNodes {
		limit = maxNodes
	}
	return limit - a.live
}

// alloc 配置一個尚未連結的 node 並回傳其索引；先前取得的 *node 可能因擴充而失效
func (a *arena[K]) alloc(key K, level int32) nodeID {
	n := node[K]{
		key:   key,
		level: level,
		next:  nilID,
		prev:  nilID,
		up:    nilID,
		down:  nilID,
	}
	a.live++
	if last := len(a.free) - 1; last >= 0 {
		id := a.free[last]
		a.free = a.free[:last]
		a.nodes[id] = n
		return id
	}
	a.nodes = append(a.nodes, n)
	return nodeID(len(a.nodes) - 1)
}

func (a *arena[K]) release(id nodeID) {
	a.nodes[id] = node[K]{level: -1, next: nilID, prev: nilID, up: nilID, down: nilID}
	a.free = append(a.free, id)
	a.live--
}

func (a *arena[K]) at(id nodeID) *node[K] {
	return &a.nodes[id]
}
