package searcher

import "math"

// ProgressiveHistory adds globalMean · Weight / ((1 - mean)·n + 1) to UCB1, which
// favors moves with a good global record until a child has evidence of its own.
type ProgressiveHistory struct {
	C         float64
	Weight    float64
	Unvisited float64
}

func NewProgressiveHistory() ProgressiveHistory {
	return ProgressiveHistory{C: ExplorationConstant, Weight: 3}
}

func (h ProgressiveHistory) Flags() Flags {
	return GlobalActionStats
}

func (h ProgressiveHistory) Select(w *Worker, n *Node) int {
	parentLog := math.Log(math.Max(1, float64(n.Visits())))
	mover := n.player
	table := w.m.actions
	return argmax(w, n, func(i int, child *Node) float64 {
		mean, explore := h.Unvisited, math.Sqrt(parentLog)
		visits := 0.0
		if child != nil {
			if visits = child.totalVisits(); visits > 0 {
				mean = child.exploit(mover)
				explore = math.Sqrt(parentLog / visits)
			}
		}
		history := table.Mean(keyOf(mover, n.moves[i]), 0)
		bias := history * (h.Weight / ((1-mean)*visits + 1))
		return mean + h.C*explore + bias
	})
}
