// Package asof 提供按分区键的最近前驱查找
//
// 汇率解析与 KYC 历史解析都是同一个不等值连接问题:
// 在某一时间点之前 (含) 最近的一条记录。这里实现一次, 两处复用。
package asof

import "sort"

// Entry 索引条目
type Entry[V any] struct {
	// At 记录时间 (Unix 毫秒)
	At int64
	// Seq 同一时间点的决定性排序依据, 取最小者
	Seq int64
	// Value 记录本体
	Value V
}

// Index 按分区键组织的时间有序索引
type Index[K comparable, V any] struct {
	entries map[K][]Entry[V]
	dirty   map[K]bool
}

// NewIndex 创建索引
func NewIndex[K comparable, V any]() *Index[K, V] {
	return &Index[K, V]{
		entries: make(map[K][]Entry[V]),
		dirty:   make(map[K]bool),
	}
}

// Add 添加记录
func (ix *Index[K, V]) Add(key K, at, seq int64, value V) {
	ix.entries[key] = append(ix.entries[key], Entry[V]{At: at, Seq: seq, Value: value})
	ix.dirty[key] = true
}

// Len 某分区键下的记录数
func (ix *Index[K, V]) Len(key K) int {
	return len(ix.entries[key])
}

// Keys 所有分区键
func (ix *Index[K, V]) Keys() []K {
	keys := make([]K, 0, len(ix.entries))
	for k := range ix.entries {
		keys = append(keys, k)
	}
	return keys
}

// Lookup 查找 at 时刻之前 (含) 最近的记录
// 同一时间点存在多条时取 Seq 最小者, 保证决定性
func (ix *Index[K, V]) Lookup(key K, at int64) (Entry[V], bool) {
	ix.ensureSorted(key)

	s := ix.entries[key]
	// 第一个 At > at 的位置
	i := sort.Search(len(s), func(i int) bool { return s[i].At > at })
	if i == 0 {
		var zero Entry[V]
		return zero, false
	}

	// 回退到相同 At 组的首条 (Seq 最小)
	j := i - 1
	for j > 0 && s[j-1].At == s[j].At {
		j--
	}
	return s[j], true
}

// ensureSorted 惰性排序: 按 (At, Seq) 升序
func (ix *Index[K, V]) ensureSorted(key K) {
	if !ix.dirty[key] {
		return
	}
	s := ix.entries[key]
	sort.SliceStable(s, func(a, b int) bool {
		if s[a].At != s[b].At {
			return s[a].At < s[b].At
		}
		return s[a].Seq < s[b].Seq
	})
	delete(ix.dirty, key)
}
