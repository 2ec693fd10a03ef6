package grid

import "cmp"

// Node 是某個 node 實體的唯讀視圖，在下一次 Insert/Remove/Destroy 前有效
type Node[K cmp.Ordered] struct {
	l  *List[K]
	id nodeID
}

func (n Node[K]) Valid() bool {
	return n.l != nil && !n.l.destroyed && n.id != nilID
}

func (n Node[K]) raw() *node[K] {
	return n.l.arena.at(n.id)
}

func (n Node[K]) to(id nodeID) Node[K] {
	if id == nilID {
		return Node[K]{}
	}
	return Node[K]{l: n.l, id: id}
}

// Key 回傳 node 的 key；header 與無效的 Node 回傳零值
func (n Node[K]) Key() K {
	if !n.Valid() || n.raw().head {
		var zero K
		return zero
	}
	return n.raw().key
}

// Level 回傳 node 所在的層級，無效的 Node 回傳 -1
func (n Node[K]) Level() int {
	if !n.Valid() {
		return -1
	}
	return int(n.raw().level)
}

func (n Node[K]) IsHeader() bool {
	return n.Valid() && n.raw().head
}

func (n Node[K]) Next() Node[K] {
	if !n.Valid() {
		return Node[K]{}
	}
	return n.to(n.raw().next)
}

func (n Node[K]) Prev() Node[K] {
	if !n.Valid() {
		return Node[K]{}
	}
	return n.to(n.raw().prev)
}

func (n Node[K]) Up() Node[K] {
	if !n.Valid() {
		return Node[K]{}
	}
	return n.to(n.raw().up)
}

func (n Node[K]) Down() Node[K] {
	if !n.Valid() {
		return Node[K]{}
	}
	return n.to(n.raw().down)
}

// Bottom 沿 down 走到第 0 層
func (n Node[K]) Bottom() Node[K] {
	for n.Valid() && n.raw().down != nilID {
		n = n.to(n.raw().down)
	}
	return n
}
