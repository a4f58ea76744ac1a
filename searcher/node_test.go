package searcher

import (
	"context"
	"testing"

	"treesearch/game"

	"github.com/stretchr/testify/require"
)

type mockMove struct {
	id int
}

func (m mockMove) ID() game.MoveID {
	return game.MoveID(m.id)
}

// position is a vertex of a synthetic game tree
type position struct {
	hash     game.StateHash
	player   int
	value    float64   // Evaluation for the player to act
	utility  []float64 // Non-nil for terminal positions
	children []*position
}

type mockState struct {
	at         *position
	players    int
	played     []game.Move
	stochastic bool
}

func (m mockState) Player() int {
	return m.at.player
}

func (m mockState) NumPlayers() int {
	return m.players
}

func (m mockState) LegalMoves() []game.Move {
	moves := make([]game.Move, len(m.at.children))
	for i := range m.at.children {
		moves[i] = mockMove{id: i}
	}
	return moves
}

func (m mockState) Play(move game.Move) game.State {
	played := append(m.played[:len(m.played):len(m.played)], move)
	return mockState{at: m.at.children[move.(mockMove).id], players: m.players, played: played, stochastic: m.stochastic}
}

func (m mockState) IsTerminal() bool {
	return m.at.utility != nil
}

func (m mockState) Utilities() []float64 {
	return m.at.utility
}

func (m mockState) Hash() game.StateHash {
	return m.at.hash
}

func (m mockState) History() []game.Move {
	return m.played
}

func (m mockState) IsStochastic() bool {
	return m.stochastic
}

func mockEvaluate(s game.State) float64 {
	return s.(mockState).at.value
}

// tree numbers the positions of a synthetic game and returns its root state
func tree(players int, root *position) mockState {
	var next game.StateHash
	var number func(p *position)
	number = func(p *position) {
		next++
		p.hash = next
		for _, child := range p.children {
			number(child)
		}
	}
	number(root)
	return mockState{at: root, players: players}
}

func branch(player int, children ...*position) *position {
	return &position{player: player, children: children}
}

func leaf(utility ...float64) *position {
	return &position{utility: append([]float64{0}, utility...)}
}

// chain is a subtree of the given depth where player 1 always acts and every
// position evaluates to value
func chain(value float64, depth int) *position {
	if depth == 0 {
		return &position{player: 1, value: value, utility: []float64{0, value, -value}}
	}
	return &position{player: 1, value: value, children: []*position{chain(value, depth-1), chain(value, depth-1)}}
}

// forcedWin is a two-ply game where player 1 wins by playing move 0
func forcedWin() mockState {
	return tree(2, branch(1,
		branch(2, leaf(1, -1), leaf(1, -1)),
		branch(2, leaf(1, -1), leaf(-1, 1)),
		leaf(0, 0),
	))
}

func newTestSearch(m *MCTS, state game.State) *search {
	s := &search{
		m:     m,
		ctx:   context.Background(),
		state: state,
		kind:  m.nodeKind(state),
		flags: m.flags(),
		cap:   NoLimit,
		depth: NoLimit,
	}
	s.root = s.newNode(nil, nil, -1, state)
	s.refreshRoot(s.root, state)
	return s
}

func TestNodePhase(t *testing.T) {
	m := NewMCTS(1, WithIterations(1), WithSolver())
	state := forcedWin()
	s := newTestSearch(m, state)
	root := s.root

	require.Equal(t, Unexpanded, root.Phase(), "New node should be unexpanded")
	require.Equal(t, SolverStandard, root.Kind(), "Solver search should use solver nodes")
	require.Equal(t, 3, root.NumMoves(), "Node should know its legal moves")

	root.Lock()
	child, next, expanded := s.descend(root, state, 2)
	root.Unlock()

	require.True(t, expanded, "Unexplored move should be expanded")
	require.Same(t, child, root.Child(2), "Expansion should link the child")
	require.Equal(t, PartiallyExpanded, root.Phase(), "Node with a child should be partially expanded")
	require.True(t, next.IsTerminal(), "Third move should end the game")
	require.Equal(t, FullyProven, child.Phase(), "Terminal node should be proven on creation")
	require.Equal(t, []float64{0, 0, 0}, child.Proof(), "Terminal node should be proven with its utilities")

	root.Lock()
	again, _, expanded := s.descend(root, state, 2)
	root.Unlock()
	require.False(t, expanded, "Expanded move should be followed")
	require.Same(t, child, again, "Expanded move should lead to the same child")
}

func TestNodeResolve(t *testing.T) {
	t.Run("proving a win when any child wins for the player to act", func(t *testing.T) {
		m := NewMCTS(1, WithIterations(1), WithSolver())
		state := forcedWin()
		s := newTestSearch(m, state)
		root := s.root

		root.Lock()
		first, firstState, _ := s.descend(root, state, 0)
		root.Unlock()
		for i := 0; i < 2; i++ {
			first.Lock()
			s.descend(first, firstState, i)
			first.Unlock()
		}

		first.Lock()
		proven := first.resolve()
		first.Unlock()
		require.True(t, proven, "Node whose children all lose for the player to act should be proven")
		require.True(t, first.ProvenLoss(2), "Node should be a proven loss for its player to act")

		root.Lock()
		proven = root.resolve()
		root.Unlock()
		require.True(t, proven, "Parent of a proven win should be proven")
		require.True(t, root.ProvenWin(1), "Root should be a proven win for player 1")
	})

	t.Run("waiting for every child before proving a loss", func(t *testing.T) {
		m := NewMCTS(1, WithIterations(1), WithSolver())
		state := tree(2, branch(1, leaf(-1, 1), leaf(-1, 1)))
		s := newTestSearch(m, state)
		root := s.root

		root.Lock()
		s.descend(root, state, 0)
		require.False(t, root.resolve(), "Unexpanded moves may still win")
		s.descend(root, state, 1)
		require.True(t, root.resolve(), "All children lose so the node should be proven")
		root.Unlock()

		require.True(t, root.ProvenLoss(1), "Root should be a proven loss for player 1")
		require.False(t, root.prove([]float64{0, 1, -1}), "Proven node should never change")
		require.True(t, root.ProvenLoss(1), "Proof should not regress")
	})

	t.Run("taking the best proven draw", func(t *testing.T) {
		m := NewMCTS(1, WithIterations(1), WithSolver())
		state := tree(2, branch(1, leaf(-1, 1), leaf(0, 0)))
		s := newTestSearch(m, state)
		root := s.root

		root.Lock()
		s.descend(root, state, 0)
		s.descend(root, state, 1)
		require.True(t, root.resolve(), "All children are proven")
		root.Unlock()

		require.Equal(t, []float64{0, 0, 0}, root.Proof(), "Player to act should take the draw")
	})
}

func TestNodeTighten(t *testing.T) {
	m := NewMCTS(1, WithIterations(1), WithScoreBounds())
	state := tree(2, branch(1, leaf(0, 0), branch(2, leaf(1, -1), leaf(-1, 1))))
	s := newTestSearch(m, state)
	root := s.root

	pessimistic, optimistic := root.Bounds(1)
	require.Equal(t, game.Loss, pessimistic, "Unknown node should start at the worst outcome")
	require.Equal(t, game.Win, optimistic, "Unknown node should start at the best outcome")

	root.Lock()
	s.descend(root, state, 0)
	require.False(t, root.tighten(), "Unexpanded move may still improve the outcome")
	root.Unlock()

	pessimistic, optimistic = root.Bounds(1)
	require.Equal(t, 0.0, pessimistic, "Player to act is guaranteed the draw")
	require.Equal(t, game.Win, optimistic, "Unexpanded move may still win")
	_, optimistic = root.Bounds(2)
	require.Equal(t, 0.0, optimistic, "Opponent cannot do better than the draw")

	root.Lock()
	s.descend(root, state, 1)
	root.Unlock()
	child := root.Child(1)
	require.Equal(t, ScoreBounded, child.Kind(), "Score bounds search should use score bounded nodes")
	require.False(t, root.dominated(child), "Open child can still win")

	child.Lock()
	s.descend(child, child.state, 0)
	s.descend(child, child.state, 1)
	require.True(t, child.tighten(), "Opponent has a winning reply")
	child.Unlock()
	require.True(t, child.ProvenLoss(1), "Child should be a proven loss for player 1")
	require.True(t, root.dominated(child), "Proven loss cannot improve on the draw")

	root.Lock()
	require.True(t, root.tighten(), "Every move is bounded")
	root.Unlock()
	require.Equal(t, []float64{0, 0, 0}, root.Proof(), "Root should be proven a draw")
}
