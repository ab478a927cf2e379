package rank

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
)

// TestInsertOrdering checks score-descending, key-ascending order.
func TestInsertOrdering(t *testing.T) {
	sl := NewSkipList(1)
	sl.Insert("carol", 4)
	sl.Insert("alice", 9)
	sl.Insert("bob", 4)
	sl.Insert("dave", 1)

	want := []string{"alice", "bob", "carol", "dave"}
	got := sl.Range(1, 10)
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, e := range got {
		if e.Key != want[i] {
			t.Errorf("rank %d: expected %s, got %s", i+1, want[i], e.Key)
		}
		if r := sl.Rank(e.Key); r != i+1 {
			t.Errorf("Rank(%s) = %d, want %d", e.Key, r, i+1)
		}
	}
}

// TestUpdateMovesEntry verifies re-inserting a key repositions it.
func TestUpdateMovesEntry(t *testing.T) {
	sl := NewSkipList(2)
	sl.Insert("a", 1)
	sl.Insert("b", 2)
	sl.Insert("c", 3)

	sl.Insert("a", 10)
	if sl.Len() != 3 {
		t.Fatalf("expected 3 entries after update, got %d", sl.Len())
	}
	if e, _ := sl.ByRank(1); e.Key != "a" || e.Score != 10 {
		t.Errorf("expected a=10 on top, got %+v", e)
	}
	if r := sl.Rank("c"); r != 2 {
		t.Errorf("expected c at rank 2, got %d", r)
	}
}

// TestRemove verifies removal and missing-key handling.
func TestRemove(t *testing.T) {
	sl := NewSkipList(3)
	sl.Insert("x", 5)
	sl.Insert("y", 7)

	if !sl.Remove("x") {
		t.Fatal("expected x to be removed")
	}
	if sl.Remove("x") {
		t.Error("second remove should report false")
	}
	if sl.Rank("x") != 0 {
		t.Error("removed key should have rank 0")
	}
	if e, _ := sl.ByRank(1); e.Key != "y" {
		t.Errorf("expected y on top after removal, got %+v", e)
	}
	if sl.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", sl.Len())
	}
}

// TestRandomizedAgainstSort cross-checks ranks against a sorted slice.
func TestRandomizedAgainstSort(t *testing.T) {
	sl := NewSkipList(42)
	rng := rand.New(rand.NewSource(7))
	ref := make(map[string]float64)

	for i := 0; i < 2000; i++ {
		key := fmt.Sprintf("p%02d", rng.Intn(60))
		switch rng.Intn(4) {
		case 0:
			sl.Remove(key)
			delete(ref, key)
		default:
			score := float64(rng.Intn(20))
			sl.Insert(key, score)
			ref[key] = score
		}
	}

	expected := make([]Entry, 0, len(ref))
	for k, s := range ref {
		expected = append(expected, Entry{Key: k, Score: s})
	}
	sort.Slice(expected, func(i, j int) bool { return before(expected[i], expected[j]) })

	if sl.Len() != len(expected) {
		t.Fatalf("length mismatch: %d vs %d", sl.Len(), len(expected))
	}
	for i, e := range expected {
		if r := sl.Rank(e.Key); r != i+1 {
			t.Fatalf("Rank(%s) = %d, want %d", e.Key, r, i+1)
		}
		got, ok := sl.ByRank(i + 1)
		if !ok || got != e {
			t.Fatalf("ByRank(%d) = %+v, want %+v", i+1, got, e)
		}
	}

	if all := sl.Range(1, len(expected)); len(all) != len(expected) {
		t.Errorf("Range returned %d entries, want %d", len(all), len(expected))
	} else {
		for i, e := range all {
			if expected[i] != e {
				t.Errorf("Range rank %d: got %+v, want %+v", i+1, e, expected[i])
			}
		}
	}
}

// TestRangeBounds clamps out-of-range requests.
func TestRangeBounds(t *testing.T) {
	sl := NewSkipList(5)
	for i := 0; i < 5; i++ {
		sl.Insert(fmt.Sprint(i), float64(i))
	}
	if got := sl.Range(0, 2); len(got) != 2 || got[0].Key != "4" {
		t.Errorf("Range(0,2) = %+v", got)
	}
	if got := sl.Range(4, 100); len(got) != 2 || got[1].Key != "0" {
		t.Errorf("Range(4,100) = %+v", got)
	}
	if got := sl.Range(3, 2); got != nil {
		t.Errorf("empty range should be nil, got %+v", got)
	}
}
