package searcher

import (
	"math"

	"treesearch/game"
)

// bounds brackets the exact utility of every player at a node. A node is proven
// once both bounds meet for every player.
type bounds struct {
	pessimistic []atomicFloat
	optimistic  []atomicFloat
}

func newBounds(state game.State) *bounds {
	n := state.NumPlayers()
	b := &bounds{
		pessimistic: make([]atomicFloat, n+1),
		optimistic:  make([]atomicFloat, n+1),
	}
	if state.IsTerminal() {
		utilities := state.Utilities()
		for p := 1; p <= n; p++ {
			b.pessimistic[p].Store(utilities[p])
			b.optimistic[p].Store(utilities[p])
		}
		return b
	}
	for p := 1; p <= n; p++ {
		b.pessimistic[p].Store(game.Loss)
		b.optimistic[p].Store(game.Win)
	}
	return b
}

// Bounds returns the pessimistic and optimistic utility of player. Nodes
// without bounds report the full utility range.
func (n *Node) Bounds(player int) (float64, float64) {
	if n.bounds == nil {
		return game.Loss, game.Win
	}
	return n.bounds.pessimistic[player].Load(), n.bounds.optimistic[player].Load()
}

// dominated reports whether child cannot improve on what the player to act at n
// is already guaranteed.
func (n *Node) dominated(child *Node) bool {
	if n.bounds == nil || child.bounds == nil {
		return false
	}
	return child.bounds.optimistic[n.player].Load() < n.bounds.pessimistic[n.player].Load()
}

// tighten narrows the bounds of n from its children. The caller holds the lock
// of n. The player to act is guaranteed the best pessimistic bound among its
// children, and cannot hope for more than the best optimistic bound once every
// move is expanded. Two-player utilities are treated as zero-sum.
func (n *Node) tighten() bool {
	b := n.bounds
	if b == nil || len(n.moves) == 0 || n.Proven() {
		return false
	}

	mover := n.player
	players := len(b.pessimistic) - 1
	complete := true
	lowest := make([]float64, players+1)
	highest := make([]float64, players+1)
	best := make([]float64, players+1)
	for p := 1; p <= players; p++ {
		lowest[p] = math.Inf(1)
		highest[p] = math.Inf(-1)
		best[p] = math.Inf(-1)
	}
	for _, child := range n.children {
		if child == nil {
			complete = false
			continue
		}
		for p := 1; p <= players; p++ {
			lowest[p] = math.Min(lowest[p], child.bounds.pessimistic[p].Load())
			highest[p] = math.Max(highest[p], child.bounds.optimistic[p].Load())
		}
		best[mover] = math.Max(best[mover], child.bounds.pessimistic[mover].Load())
	}

	raise(&b.pessimistic[mover], best[mover])
	if complete {
		lower(&b.optimistic[mover], highest[mover])
		for p := 1; p <= players; p++ {
			if p != mover {
				raise(&b.pessimistic[p], lowest[p])
				lower(&b.optimistic[p], highest[p])
			}
		}
	}
	if players == 2 {
		opponent := 3 - mover
		raise(&b.pessimistic[opponent], -b.optimistic[mover].Load())
		lower(&b.optimistic[opponent], -b.pessimistic[mover].Load())
	}

	exact := make([]float64, players+1)
	for p := 1; p <= players; p++ {
		pessimistic, optimistic := b.pessimistic[p].Load(), b.optimistic[p].Load()
		if pessimistic < optimistic {
			return false
		}
		exact[p] = pessimistic
	}
	return n.prove(exact)
}

func raise(f *atomicFloat, value float64) {
	if value > f.Load() && !math.IsInf(value, 0) {
		f.Store(value)
	}
}

func lower(f *atomicFloat, value float64) {
	if value < f.Load() && !math.IsInf(value, 0) {
		f.Store(value)
	}
}
