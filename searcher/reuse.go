package searcher

import (
	"treesearch/game"

	"github.com/rs/zerolog/log"
)

// findRoot returns the retained node for the searched position, or a fresh
// root when the tree cannot be reused. It reports whether the tree was reused.
func (m *MCTS) findRoot(s *search) (*Node, bool) {
	if m.reuse {
		if root := m.traverse(s.state, s.kind); root != nil {
			return root, true
		}
	}
	return s.newNode(nil, nil, -1, s.state), false
}

// traverse replays the real moves played since the retained root. Any move
// without a child, or a position that does not match the game, abandons reuse.
func (m *MCTS) traverse(state game.State, kind Kind) *Node {
	if m.root == nil {
		return nil
	}
	if m.root.kind != kind {
		log.Warn().Msgf("retained %s tree cannot serve a %s search", m.root.kind, kind)
		return nil
	}
	history, ok := game.HistoryOf(state)
	if !ok {
		return nil
	}
	if len(history) < m.rootPly {
		log.Warn().Msgf("game history has %d moves but the retained tree starts after %d", len(history), m.rootPly)
		return nil
	}

	node := m.root
	for _, move := range history[m.rootPly:] {
		node.Lock()
		child := node.childByID(move.ID())
		node.Unlock()
		if child == nil { // Node has not expanded this move
			return nil
		}
		node = child
	}

	if node.state != nil && node.state.Hash() != state.Hash() {
		log.Warn().Msgf("node's state hash %d does not match the game's state hash %d", node.state.Hash(), state.Hash())
		return nil
	}

	node.Lock()
	node.parent = nil
	node.Unlock()
	return node
}

// advance keeps the subtree of the chosen move for the next search, dropping
// its siblings, or the whole tree when it cannot be reused.
func (m *MCTS) advance(state game.State, chosen *Node) {
	history, ok := game.HistoryOf(state)
	if !m.reuse || !ok || chosen == nil {
		m.root = nil
		m.rootPly = 0
		return
	}

	chosen.Lock()
	chosen.parent = nil
	chosen.Unlock()
	m.root = chosen
	m.rootPly = len(history) + 1
}
