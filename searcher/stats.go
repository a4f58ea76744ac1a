package searcher

import (
	"math"
	"sync"
	"sync/atomic"

	"treesearch/game"
)

// atomicFloat is a float64 that many goroutines can accumulate into without a lock
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat) Store(value float64) {
	f.bits.Store(math.Float64bits(value))
}

func (f *atomicFloat) Add(delta float64) {
	for {
		old := f.bits.Load()
		sum := math.Float64bits(math.Float64frombits(old) + delta)
		if f.bits.CompareAndSwap(old, sum) {
			return
		}
	}
}

// ActionKey identifies a move by its identity and the player whose ply it was
// played on, independently of where it occurs in the tree.
type ActionKey struct {
	Move game.MoveID
	Ply  int
}

func keyOf(player int, move game.Move) ActionKey {
	return ActionKey{Move: move.ID(), Ply: player}
}

type ActionStats struct {
	Visits float64
	Score  float64
}

func (s ActionStats) Mean() float64 {
	if s.Visits <= 0 {
		return 0
	}
	return s.Score / s.Visits
}

type actionEntry struct {
	visits atomicFloat
	score  atomicFloat
}

// ActionTable accumulates move statistics shared by all workers. Increments
// take the table lock in shared mode and update the entry atomically; Decay
// takes it exclusively.
type ActionTable struct {
	sync.RWMutex
	entries map[ActionKey]*actionEntry
}

func NewActionTable() *ActionTable {
	return &ActionTable{entries: make(map[ActionKey]*actionEntry)}
}

func (t *ActionTable) Add(key ActionKey, score float64) {
	t.RLock()
	entry, ok := t.entries[key]
	if ok {
		entry.visits.Add(1)
		entry.score.Add(score)
		t.RUnlock()
		return
	}
	t.RUnlock()

	t.Lock()
	defer t.Unlock()
	entry, ok = t.entries[key]
	if !ok {
		entry = &actionEntry{}
		t.entries[key] = entry
	}
	entry.visits.Add(1)
	entry.score.Add(score)
}

func (t *ActionTable) Get(key ActionKey) (ActionStats, bool) {
	t.RLock()
	defer t.RUnlock()

	entry, ok := t.entries[key]
	if !ok {
		return ActionStats{}, false
	}
	return ActionStats{Visits: entry.visits.Load(), Score: entry.score.Load()}, true
}

// Mean returns the average score of key, or fallback when it has no statistics
func (t *ActionTable) Mean(key ActionKey, fallback float64) float64 {
	stats, ok := t.Get(key)
	if !ok || stats.Visits <= 0 {
		return fallback
	}
	return stats.Mean()
}

// Decay multiplies every entry's visits and score by factor and evicts entries
// left with less than one visit. It returns the number of evicted entries.
func (t *ActionTable) Decay(factor float64) int {
	if factor >= 1 {
		return 0
	}

	t.Lock()
	defer t.Unlock()

	evicted := 0
	for key, entry := range t.entries {
		visits := entry.visits.Load() * factor
		if visits < 1 {
			delete(t.entries, key)
			evicted++
			continue
		}
		entry.visits.Store(visits)
		entry.score.Store(entry.score.Load() * factor)
	}
	return evicted
}

func (t *ActionTable) Len() int {
	t.RLock()
	defer t.RUnlock()

	return len(t.entries)
}

func (t *ActionTable) Reset() {
	t.Lock()
	defer t.Unlock()

	t.entries = make(map[ActionKey]*actionEntry)
}
