package grid

import (
	"errors"
	"fmt"
)

var ErrCorrupt = errors.New("skip list structure corrupt")

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

// Verify 檢查整個結構：header、雙向連結、排序、上下對齊、子序列與每層計數
func (l *List[K]) Verify() error {
	if l.destroyed {
		return ErrDestroyed
	}
	nodes := l.arena.nodes
	linked := 0
	var below map[nodeID]struct{}

	for lvl := 0; lvl <= l.maxLevel; lvl++ {
		head := l.heads[lvl]
		h := &nodes[head]
		if !h.head || int(h.level) != lvl || h.prev != nilID {
			return corrupt("header of level %d is malformed", lvl)
		}
		if lvl > 0 && (h.down != l.heads[lvl-1] || nodes[h.down].up != head) {
			return corrupt("header of level %d is not linked to level %d", lvl, lvl-1)
		}

		here := make(map[nodeID]struct{}, l.counts[lvl])
		count := 0
		prev := head
		for cur := h.next; cur != nilID; cur = nodes[cur].next {
			n := &nodes[cur]
			switch {
			case n.head:
				return corrupt("header found inside level %d", lvl)
			case int(n.level) != lvl:
				return corrupt("key %v at level %d claims level %d", n.key, lvl, n.level)
			case n.prev != prev:
				return corrupt("key %v at level %d has broken prev link", n.key, lvl)
			case prev != head && nodes[prev].key >= n.key:
				return corrupt("level %d is not strictly increasing at key %v", lvl, n.key)
			}

			if lvl == 0 {
				if n.down != nilID {
					return corrupt("key %v has a down link at level 0", n.key)
				}
			} else {
				d := n.down
				if d == nilID || nodes[d].up != cur || nodes[d].key != n.key {
					return corrupt("key %v at level %d is not aligned with level %d", n.key, lvl, lvl-1)
				}
				if _, ok := below[d]; !ok {
					return corrupt("key %v at level %d is missing from level %d", n.key, lvl, lvl-1)
				}
			}
			if u := n.up; u != nilID && (nodes[u].down != cur || int(nodes[u].level) != lvl+1) {
				return corrupt("key %v at level %d has a broken up link", n.key, lvl)
			}

			here[cur] = struct{}{}
			prev = cur
			count++
		}
		if count != l.counts[lvl] {
			return corrupt("level %d holds %d nodes, counted %d", lvl, count, l.counts[lvl])
		}
		if lvl == l.maxLevel && count != 0 {
			return corrupt("top level %d must stay empty", lvl)
		}
		linked += count + 1
		below = here
	}

	if linked != l.arena.live {
		return corrupt("%d nodes linked but %d allocated", linked, l.arena.live)
	}
	return nil
}
