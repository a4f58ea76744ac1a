package searcher

import "math"

// GRAVE blends each child's mean with the all-moves-as-first statistics of a
// reference node: the deepest node on the current descent with more than
// RefThreshold visits, or the root. The blend weight is
// β = m / (m + n + Bias·m·n) for m AMAF visits and n child visits.
type GRAVE struct {
	C            float64
	Bias         float64
	RefThreshold int
	Unvisited    float64
}

func NewGRAVE() GRAVE {
	return GRAVE{C: ExplorationConstant, Bias: 1e-6, RefThreshold: 100}
}

func (g GRAVE) Flags() Flags {
	return AMAFStats
}

func (g GRAVE) Select(w *Worker, n *Node) int {
	if w.reference == nil || (n.amaf != nil && n.Visits() > g.RefThreshold) {
		w.reference = n
	}
	reference := w.reference.amaf

	parentLog := math.Log(math.Max(1, float64(n.Visits())))
	mover := n.player
	return argmax(w, n, func(i int, child *Node) float64 {
		mean, explore := g.Unvisited, math.Sqrt(parentLog)
		visits := 0.0
		if child != nil {
			if visits = child.totalVisits(); visits > 0 {
				mean = child.exploit(mover)
				explore = math.Sqrt(parentLog / visits)
			}
		}
		if reference != nil {
			if amaf, ok := reference.Get(keyOf(mover, n.moves[i])); ok && amaf.Visits > 0 {
				beta := amaf.Visits / (amaf.Visits + visits + g.Bias*amaf.Visits*visits)
				mean = (1-beta)*mean + beta*amaf.Mean()
			}
		}
		return mean + g.C*explore
	})
}
