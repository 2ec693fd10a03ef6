package grid

import "iter"

// LevelKeys 由左至右走訪第 level 層的 key
func (l *List[K]) LevelKeys(level int) iter.Seq[K] {
	return func(yield func(K) bool) {
		if l.destroyed || level < 0 || level > l.maxLevel {
			return
		}
		nodes := l.arena.nodes
		for cur := nodes[l.heads[level]].next; cur != nilID; cur = nodes[cur].next {
			if !yield(nodes[cur].key) {
				return
			}
		}
	}
}

// Keys 依序走訪所有 key
func (l *List[K]) Keys() iter.Seq[K] {
	return l.LevelKeys(0)
}

func (l *List[K]) Min() (K, bool) {
	var zero K
	if l.Len() == 0 {
		return zero, false
	}
	first := l.arena.at(l.heads[0]).next
	return l.arena.at(first).key, true
}

// Max 與搜尋相同的方式下降：每層走到底再往下
func (l *List[K]) Max() (K, bool) {
	var zero K
	if l.Len() == 0 {
		return zero, false
	}
	nodes := l.arena.nodes
	cur := l.heads[l.maxLevel]
	for {
		for nodes[cur].next != nilID {
			cur = nodes[cur].next
		}
		if nodes[cur].down == nilID {
			return nodes[cur].key, true
		}
		cur = nodes[cur].down
	}
}
