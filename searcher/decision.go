package searcher

import (
	"treesearch/game"
)

// newNode materializes a node of the search's variant for the position reached
// by playing move from parent.
func (s *search) newNode(parent *Node, move game.Move, index int, state game.State) *Node {
	n := &Node{
		kind:   s.kind,
		parent: parent,
		move:   move,
		index:  index,
		player: state.Player(),
		scores: make([]atomicFloat, state.NumPlayers()+1),
	}
	if s.flags.has(AMAFStats) {
		n.amaf = NewActionTable()
	}
	if s.kind == OpenLoop {
		n.outcomes = make(map[game.MoveID]*Node)
		return n
	}

	n.state = state
	n.moves = state.LegalMoves()
	n.children = make([]*Node, len(n.moves))
	s.initialize(n)
	return n
}

// initialize derives the variant extensions from a closed-loop node's position
func (s *search) initialize(n *Node) {
	state := n.state
	terminal := state.IsTerminal()
	if terminal && s.kind.proves() {
		n.prove(state.Utilities())
	}
	if s.kind == ScoreBounded {
		n.bounds = newBounds(state)
	}
	if s.kind.implicit() {
		n.estimates = s.estimate(state, n.moves)
	}
	if s.flags.has(HeuristicInit) && !terminal && s.m.evaluate != nil {
		n.prior = game.PlayerValues(state, s.m.evaluate(state))
	}
}

// refreshRoot recomputes the root's legal moves and initial estimates from the
// current position, keeping the children of moves that are still legal.
func (s *search) refreshRoot(root *Node, state game.State) {
	root.Lock()
	defer root.Unlock()

	if s.flags.has(AMAFStats) && root.amaf == nil {
		root.amaf = NewActionTable()
	}
	if root.kind == OpenLoop {
		root.observe(state)
		return
	}

	moves := state.LegalMoves()
	children := make([]*Node, len(moves))
	var expanded int32
	for i, move := range moves {
		if child := root.childByID(move.ID()); child != nil {
			child.index = i
			children[i] = child
			expanded++
		}
	}
	root.state = state
	root.player = state.Player()
	root.moves = moves
	root.children = children
	root.expanded.Store(expanded)

	if root.kind.implicit() {
		root.estimates = s.estimate(state, moves)
		for i, child := range children {
			if child != nil {
				root.estimates.values[i] = child.valueFor(root.player)
			}
		}
		root.estimates.refresh()
	}
	if s.kind.proves() && state.IsTerminal() {
		root.prove(state.Utilities())
	}
}

// descend follows or expands the i-th legal move of n, which the caller has
// locked. It returns the child, its position and whether it was just created.
func (s *search) descend(n *Node, state game.State, i int) (*Node, game.State, bool) {
	move := n.moves[i]
	if n.kind == OpenLoop {
		return s.descendOpen(n, state, i)
	}

	child := n.children[i]
	if child != nil {
		return child, child.state, false
	}
	next := state.Play(move)
	child = s.newNode(n, move, i, next)
	n.setChild(i, child)
	return child, next, true
}
