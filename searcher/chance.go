package searcher

import "treesearch/game"

// Open-loop nodes stand for a sequence of moves rather than a position. The
// position is replayed from the root on every visit, so chance outcomes and
// hidden information are sampled afresh instead of being fixed by the tree.

// observe refreshes an open-loop node from the position reached on this visit
func (n *Node) observe(state game.State) {
	n.player = state.Player()
	n.moves = state.LegalMoves()
}

func (s *search) descendOpen(n *Node, state game.State, i int) (*Node, game.State, bool) {
	move := n.moves[i]
	next := state.Play(move)

	child, ok := n.outcomes[move.ID()]
	if ok {
		return child, next, false
	}
	child = s.newNode(n, move, i, next)
	n.setChild(i, child)
	return child, next, true
}
