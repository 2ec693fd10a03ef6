package skiplist

import (
	"cmp"
	"iter"
)

// K 是 benchmark 工具與 datastream 使用的 key 型別
type K = int64

// Set 是有序集合的操作介面
type Set[T cmp.Ordered] interface {
	Contains(key T) bool
	Insert(key T) (height int, inserted bool, err error)
	Remove(key T) bool
	Len() int
}

// Analyable 提供分析功能的介面，只依賴公開的走訪能力
type Analyable[T cmp.Ordered] interface {
	Set[T]
	// MaxLevel 回傳建構時設定的最高層級
	MaxLevel() int
	// LevelLen 回傳某一層的節點數（不含 header）
	LevelLen(level int) int
	// LevelKeys 依序走訪某一層的 key
	LevelKeys(level int) iter.Seq[T]
}
