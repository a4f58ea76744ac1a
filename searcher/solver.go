package searcher

import "treesearch/game"

// resolve derives the proven value of n from its children by backward
// induction. The player to act wins if any child is a proven win for them; the
// node is otherwise proven only once every legal move leads to a proven child,
// and takes the value of the child best for the player to act. The caller holds
// the lock of n. It reports whether n became proven.
func (n *Node) resolve() bool {
	if n.Proven() || len(n.moves) == 0 {
		return false
	}

	var best []float64
	complete := true
	for _, child := range n.children {
		if child == nil {
			complete = false
			continue
		}
		proof := child.Proof()
		if proof == nil {
			complete = false
			continue
		}
		if proof[n.player] >= game.Win {
			return n.prove(proof)
		}
		if best == nil || proof[n.player] > best[n.player] {
			best = proof
		}
	}
	if !complete {
		return false
	}
	return n.prove(best)
}

// provenUtilities converts a proof into the utilities fed to the statistics
func provenUtilities(proof []float64) []float64 {
	utilities := make([]float64, len(proof))
	for p := 1; p < len(proof); p++ {
		utilities[p] = ProvenScale * proof[p]
	}
	return utilities
}
