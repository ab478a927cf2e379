// Package rank implements an ordered score index with O(log n) rank queries.
//
// Entries are ordered by score descending, then key ascending, so two players
// holding the same area are ranked deterministically by id. Spans on every
// forward pointer give rank lookups without a linear walk (the Redis ZSET
// layout, Pugh 1990).
package rank

import (
	"math/rand"
	"sync"
)

const (
	maxLevel         = 16 // 2^16 entries is far beyond any room
	levelProbability = 0.25
)

// Entry is a scored key.
type Entry struct {
	Key   string
	Score float64
}

// before reports whether a sorts ahead of b.
func before(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Key < b.Key
}

type node struct {
	entry Entry
	next  []*node
	span  []int
}

// SkipList is a mutex-guarded skip list keyed by string.
type SkipList struct {
	mu     sync.RWMutex
	head   *node
	level  int
	length int
	scores map[string]float64
	rng    *rand.Rand
}

// NewSkipList creates an empty list. The seed only shapes tower heights;
// ordering never depends on it.
func NewSkipList(seed int64) *SkipList {
	return &SkipList{
		head: &node{
			next: make([]*node, maxLevel),
			span: make([]int, maxLevel),
		},
		level:  1,
		scores: make(map[string]float64),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (sl *SkipList) randomLevel() int {
	level := 1
	for level < maxLevel && sl.rng.Float64() < levelProbability {
		level++
	}
	return level
}

// Insert adds key or moves it to its new score.
func (sl *SkipList) Insert(key string, score float64) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if old, ok := sl.scores[key]; ok {
		if old == score {
			return
		}
		sl.deleteLocked(Entry{Key: key, Score: old})
	}
	sl.insertLocked(Entry{Key: key, Score: score})
	sl.scores[key] = score
}

func (sl *SkipList) insertLocked(e Entry) {
	var update [maxLevel]*node
	var rank [maxLevel]int

	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		if i < sl.level-1 {
			rank[i] = rank[i+1]
		}
		for x.next[i] != nil && before(x.next[i].entry, e) {
			rank[i] += x.span[i]
			x = x.next[i]
		}
		update[i] = x
	}

	level := sl.randomLevel()
	if level > sl.level {
		for i := sl.level; i < level; i++ {
			rank[i] = 0
			update[i] = sl.head
			update[i].span[i] = sl.length
		}
		sl.level = level
	}

	n := &node{
		entry: e,
		next:  make([]*node, level),
		span:  make([]int, level),
	}
	for i := 0; i < level; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n

		n.span[i] = update[i].span[i] - (rank[0] - rank[i])
		update[i].span[i] = rank[0] - rank[i] + 1
	}

	// Levels above the new tower now skip one more element.
	for i := level; i < sl.level; i++ {
		update[i].span[i]++
	}
	sl.length++
}

func (sl *SkipList) deleteLocked(e Entry) bool {
	var update [maxLevel]*node

	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && before(x.next[i].entry, e) {
			x = x.next[i]
		}
		update[i] = x
	}

	target := x.next[0]
	if target == nil || target.entry != e {
		return false
	}

	for i := 0; i < sl.level; i++ {
		if update[i].next[i] == target {
			update[i].span[i] += target.span[i] - 1
			update[i].next[i] = target.next[i]
		} else {
			update[i].span[i]--
		}
	}
	for sl.level > 1 && sl.head.next[sl.level-1] == nil {
		sl.level--
	}
	sl.length--
	return true
}

// Remove deletes key. It reports whether the key was present.
func (sl *SkipList) Remove(key string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	score, ok := sl.scores[key]
	if !ok {
		return false
	}
	delete(sl.scores, key)
	return sl.deleteLocked(Entry{Key: key, Score: score})
}

// Rank returns the 1-based rank of key, or 0 when absent.
func (sl *SkipList) Rank(key string) int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	score, ok := sl.scores[key]
	if !ok {
		return 0
	}
	e := Entry{Key: key, Score: score}

	rank := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && !before(e, x.next[i].entry) {
			rank += x.span[i]
			x = x.next[i]
		}
		if x != sl.head && x.entry == e {
			return rank
		}
	}
	return 0
}

// ByRank returns the entry at 1-based rank.
func (sl *SkipList) ByRank(r int) (Entry, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	n := sl.nodeAt(r)
	if n == nil {
		return Entry{}, false
	}
	return n.entry, true
}

func (sl *SkipList) nodeAt(r int) *node {
	if r < 1 || r > sl.length {
		return nil
	}
	traversed := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && traversed+x.span[i] <= r {
			traversed += x.span[i]
			x = x.next[i]
		}
		if traversed == r {
			return x
		}
	}
	return nil
}

// Range returns entries with ranks in [start, end], both 1-based and inclusive.
func (sl *SkipList) Range(start, end int) []Entry {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if start < 1 {
		start = 1
	}
	if end > sl.length {
		end = sl.length
	}
	if start > end {
		return nil
	}

	out := make([]Entry, 0, end-start+1)
	for x := sl.nodeAt(start); x != nil && len(out) < end-start+1; x = x.next[0] {
		out = append(out, x.entry)
	}
	return out
}

// Len returns the number of entries.
func (sl *SkipList) Len() int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.length
}
