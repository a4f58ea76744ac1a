package searcher

import (
	"math"

	"treesearch/game"
)

// Flags name the statistics a strategy relies on, so the engine only maintains
// what the configured strategies read.
type Flags uint8

const (
	AMAFStats         Flags = 1 << iota // Per-node all-moves-as-first tables
	GlobalActionStats                   // Engine-wide action table
	HeuristicInit                       // Evaluator prior on new nodes
)

func (f Flags) has(flag Flags) bool {
	return f&flag != 0
}

// Selection picks the legal move to explore at a node during tree descent.
// Select is called with the node locked and returns an index into its legal
// moves. Implementations must be safe for concurrent use.
type Selection interface {
	Select(w *Worker, n *Node) int
	Flags() Flags
}

// Estimator is implemented by selections that blend implicit minimax
// estimates, which requires implicit nodes.
type Estimator interface {
	UsesEstimates() bool
}

func usesEstimates(s Selection) bool {
	e, ok := s.(Estimator)
	return ok && e.UsesEstimates()
}

// pick returns the index in [0, count) with the highest score. Ties are broken
// uniformly: the k-th tied index replaces the current best with probability 1/k.
func pick(w *Worker, count int, score func(i int) float64) int {
	best := -1
	bestScore := math.Inf(-1)
	ties := 0
	for i := 0; i < count; i++ {
		s := score(i)
		switch {
		case best < 0 || s > bestScore:
			best, bestScore, ties = i, s, 1
		case s == bestScore:
			ties++
			if w.rand.Intn(ties) == 0 {
				best = i
			}
		}
	}
	return best
}

// argmax scores every legal move of n, which the caller has locked. Children
// proven to win for the player to act are taken first, and children proven to
// lose or dominated by score bounds only when nothing else is left.
func argmax(w *Worker, n *Node, score func(i int, child *Node) float64) int {
	mover := n.player
	return pick(w, len(n.moves), func(i int) float64 {
		child := n.Child(i)
		if child != nil {
			if proof := child.Proof(); proof != nil {
				if proof[mover] >= game.Win {
					return math.Inf(1)
				}
				if proof[mover] <= game.Loss {
					return math.Inf(-1)
				}
			}
			if n.dominated(child) {
				return math.Inf(-1)
			}
		}
		return score(i, child)
	})
}

// UCB1 balances the mean outcome of a child against sqrt(ln(N) / n).
type UCB1 struct {
	C         float64 // Exploration constant
	Unvisited float64 // Exploitation score of unvisited children
	Prior     bool    // Seed new nodes with the evaluator's estimate
}

func NewUCB1() UCB1 {
	return UCB1{C: ExplorationConstant}
}

func (u UCB1) Select(w *Worker, n *Node) int {
	parentLog := math.Log(math.Max(1, float64(n.Visits())))
	mover := n.player
	return argmax(w, n, func(i int, child *Node) float64 {
		exploit, explore := u.values(child, mover, parentLog)
		return exploit + u.C*explore
	})
}

func (u UCB1) values(child *Node, mover int, parentLog float64) (float64, float64) {
	if child == nil {
		return u.Unvisited, math.Sqrt(parentLog)
	}
	visits := child.totalVisits()
	if visits == 0 {
		if child.prior != nil {
			return child.exploit(mover), math.Sqrt(parentLog)
		}
		return u.Unvisited, math.Sqrt(parentLog)
	}
	return child.exploit(mover), math.Sqrt(parentLog / visits)
}

func (u UCB1) Flags() Flags {
	if u.Prior {
		return HeuristicInit
	}
	return 0
}
