package searcher

import (
	"math"

	"treesearch/game"

	"github.com/samber/lo"
)

// FinalMoveSelection picks the move to play from the root's statistics once
// the search is over. The root is locked by the caller.
type FinalMoveSelection interface {
	SelectMove(w *Worker, root *Node) game.Move
}

func childVisits(n *Node, i int) int {
	if child := n.Child(i); child != nil {
		return child.Visits()
	}
	return 0
}

// provenWinIndex returns a legal move whose child is proven to win for the
// player to act, or -1.
func provenWinIndex(root *Node) int {
	for i := range root.moves {
		if child := root.Child(i); child != nil && child.ProvenWin(root.player) {
			return i
		}
	}
	return -1
}

// candidates returns the legal moves not proven to lose, or every legal move
// when all of them lose.
func candidates(root *Node) []int {
	all := lo.Range(len(root.moves))
	alive := lo.Filter(all, func(i int, _ int) bool {
		child := root.Child(i)
		return child == nil || !child.ProvenLoss(root.player)
	})
	if len(alive) == 0 {
		return all
	}
	return alive
}

// RobustChild plays the most visited move, preferring the better mean among
// equally visited ones.
type RobustChild struct{}

func (RobustChild) SelectMove(w *Worker, root *Node) game.Move {
	if i := provenWinIndex(root); i >= 0 {
		return root.moves[i]
	}

	options := candidates(root)
	maxVisits := lo.Max(lo.Map(options, func(i int, _ int) int {
		return childVisits(root, i)
	}))
	mostVisited := lo.Filter(options, func(i int, _ int) bool {
		return childVisits(root, i) == maxVisits
	})
	k := pick(w, len(mostVisited), func(k int) float64 {
		if child := root.Child(mostVisited[k]); child != nil {
			return child.MeanScore(root.player)
		}
		return 0
	})
	return root.moves[mostVisited[k]]
}

// MaxAverageScore plays the move with the best mean outcome among visited moves
type MaxAverageScore struct{}

func (MaxAverageScore) SelectMove(w *Worker, root *Node) game.Move {
	if i := provenWinIndex(root); i >= 0 {
		return root.moves[i]
	}

	options := candidates(root)
	k := pick(w, len(options), func(k int) float64 {
		child := root.Child(options[k])
		if child == nil || child.Visits() == 0 {
			return math.Inf(-1)
		}
		return child.MeanScore(root.player)
	})
	return root.moves[options[k]]
}

// Proportional samples a move with probability proportional to its visits
// raised to 1/Temperature. A non-positive temperature plays the robust child.
type Proportional struct {
	Temperature float64
}

func (p Proportional) SelectMove(w *Worker, root *Node) game.Move {
	if i := provenWinIndex(root); i >= 0 {
		return root.moves[i]
	}
	if p.Temperature <= 0 {
		return RobustChild{}.SelectMove(w, root)
	}

	options := candidates(root)
	exponent := 1.0 / p.Temperature
	most := lo.Max(lo.Map(options, func(i int, _ int) int {
		return childVisits(root, i)
	}))
	if most == 0 {
		return root.moves[options[w.rand.Intn(len(options))]]
	}
	// Relative visit counts keep the powers within [0, 1]
	weights := lo.Map(options, func(i int, _ int) float64 {
		return math.Pow(float64(childVisits(root, i))/float64(most), exponent)
	})
	sum := lo.Sum(weights)

	sampled := w.rand.Float64() * sum
	cumulative := 0.0
	for k, weight := range weights {
		cumulative += weight
		if sampled < cumulative {
			return root.moves[options[k]]
		}
	}
	return RobustChild{}.SelectMove(w, root) // Rounding errors
}
