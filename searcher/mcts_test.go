package searcher

import (
	"context"
	"testing"
	"time"

	"treesearch/game"
	"treesearch/game/pig"
	"treesearch/game/tictactoe"

	"github.com/stretchr/testify/require"
)

// walk visits every node of the subtree rooted at n
func walk(n *Node, visit func(n *Node)) {
	visit(n)
	for _, child := range n.allChildren() {
		walk(child, visit)
	}
}

func parse(t *testing.T, board string) *tictactoe.State {
	t.Helper()
	state, err := tictactoe.Parse(board)
	require.NoError(t, err)
	return state
}

func TestNewMCTS(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		m := NewMCTS(2)
		require.Equal(t, "mcts", m.Name())
		require.Equal(t, NewUCB1(), m.selection, "Should select with UCB1")
		require.Equal(t, RandomPlayout{}, m.playout, "Should play out randomly")
		require.Equal(t, MonteCarlo{}, m.backprop, "Should back up game outcomes")
		require.Equal(t, RobustChild{}, m.final, "Should play the robust child")
		require.Equal(t, Standard, m.nodeKind(tictactoe.New()))
	})

	t.Run("invalid configurations", func(t *testing.T) {
		require.Panics(t, func() { NewMCTS(0) }, "Should need a goroutine")
		require.Panics(t, func() { NewMCTS(1, WithSolver(), WithScoreBounds()) }, "Solver and score bounds are exclusive")
		require.Panics(t, func() { NewMCTS(1, WithSelection(NewImplicitUCT(0.5)), WithScoreBounds()) },
			"Implicit selection cannot use score bounds")
		require.Panics(t, func() { NewMCTS(1, WithSelection(NewImplicitUCT(0.5)), WithOpenLoop()) },
			"Implicit selection needs positions in the tree")
		require.PanicsWithValue(t, "Must specify search iterations or duration", func() {
			NewMCTS(1).SelectAction(tictactoe.New(), 0, -1, -1)
		})
	})

	t.Run("node kinds", func(t *testing.T) {
		state := tictactoe.New()
		require.Equal(t, SolverStandard, NewMCTS(1, WithSolver()).nodeKind(state))
		require.Equal(t, ScoreBounded, NewMCTS(1, WithScoreBounds()).nodeKind(state))
		require.Equal(t, Implicit, NewMCTS(1, WithSelection(NewImplicitUCT(0.5))).nodeKind(state))
		require.Equal(t, ImplicitSolver, NewMCTS(1, WithSelection(NewImplicitUCT(0.5)), WithSolver()).nodeKind(state))
		require.Equal(t, OpenLoop, NewMCTS(1, WithOpenLoop()).nodeKind(state))
		require.Equal(t, OpenLoop, NewMCTS(1).nodeKind(pig.New(10)), "Stochastic games should use open loop")
		require.Equal(t, Standard, NewMCTS(1, WithCheating()).nodeKind(pig.New(10)), "Cheating should store positions")
	})
}

func TestSelectAction(t *testing.T) {
	t.Run("root visits match iterations", func(t *testing.T) {
		state := tictactoe.New()
		m := NewMCTS(1, WithIterations(200), WithSeed(1), WithMetrics())

		move := m.SelectAction(state, 0, -1, -1)

		require.Contains(t, state.LegalMoves(), move, "Should return a legal move")
		report := m.Report()
		require.Equal(t, 200, report.Iterations, "Should run every iteration")
		require.Equal(t, 200, report.RootVisits, "Every iteration should visit the root once")
		require.False(t, report.TreeReused, "Should start from a fresh root")
		require.Equal(t, 200, m.Metric().Iterations, "Should record the iterations")
	})

	t.Run("concurrent search keeps statistics consistent", func(t *testing.T) {
		state := tictactoe.New()
		m := NewMCTS(8, WithIterations(2000), WithTreeReuse(), WithSeed(2))

		m.SelectAction(state, 0, -1, -1)

		report := m.Report()
		require.Equal(t, 2000, report.Iterations, "Should claim exactly the iteration cap")
		require.Equal(t, 2000, report.RootVisits, "Every iteration should visit the root once")

		root := m.Root()
		require.NotNil(t, root, "Should retain the chosen subtree")
		require.Nil(t, root.Parent(), "Retained root should be detached")
		require.Equal(t, report.Visits, root.Visits(), "Retained root should be the chosen child")
		walk(root, func(n *Node) {
			require.Zero(t, n.VirtualVisits(), "Virtual visits should be settled")
			require.LessOrEqual(t, n.Visits(), report.Iterations, "Visits cannot exceed iterations")
			sum := 0
			for _, child := range n.allChildren() {
				sum += child.Visits()
			}
			require.LessOrEqual(t, sum, n.Visits(), "Children cannot be visited more than their parent")
		})
	})

	t.Run("solver proves a forced win", func(t *testing.T) {
		state := forcedWin()
		m := NewMCTS(2, WithSolver(), WithDuration(10*time.Second), WithTreeReuse(), WithSeed(3))

		start := time.Now()
		move := m.SelectAction(state, 0, -1, -1)

		require.Less(t, time.Since(start), 5*time.Second, "Should stop once the root is proven")
		require.Equal(t, game.MoveID(0), move.ID(), "Should play the winning move")
		require.True(t, m.Report().RootProven, "Root should be proven")
		retained := m.Root()
		require.True(t, retained.ProvenLoss(2), "Opponent should be proven lost after the winning move")
		walk(retained, func(n *Node) {
			requireSoundProof(t, n)
		})
	})

	t.Run("solver finds the winning mark", func(t *testing.T) {
		state := parse(t, "XX.OO....")
		m := NewMCTS(1, WithSolver(), WithIterations(500), WithSeed(4))

		move := m.SelectAction(state, 0, -1, -1)

		require.Equal(t, tictactoe.Mark(2), move, "Should complete the row")
		require.True(t, m.Report().RootProven, "Root should be proven")
		require.Less(t, m.Report().Iterations, 500, "Should stop early")
	})

	t.Run("score bounds find the winning mark", func(t *testing.T) {
		state := parse(t, "XX.OO....")
		m := NewMCTS(2, WithScoreBounds(), WithIterations(500), WithSeed(5))

		move := m.SelectAction(state, 0, -1, -1)

		require.Equal(t, tictactoe.Mark(2), move, "Should complete the row")
		require.True(t, m.Report().RootProven, "Root bounds should meet")
		require.Equal(t, ScoreBounded, m.Report().Kind)
	})

	t.Run("implicit minimax follows the best estimate", func(t *testing.T) {
		state := tree(2, branch(1, chain(0.9, 3), chain(0.1, 3), chain(0.5, 3)))
		m := NewMCTS(1,
			WithSelection(NewImplicitUCT(0.8)),
			WithoutPlayout(),
			WithEvaluationFn(mockEvaluate),
			WithIterations(1000),
			WithTreeReuse(),
			WithSeed(6),
		)

		s := newTestSearch(m, state)
		require.InDeltaSlice(t, []float64{0.9, 0.1, 0.5},
			[]float64{s.root.InitialEstimate(0), s.root.InitialEstimate(1), s.root.InitialEstimate(2)}, 1e-9,
			"Root should hold the one-ply estimates")

		move := m.SelectAction(state, 0, -1, -1)
		require.Equal(t, game.MoveID(0), move.ID(), "Should play the best estimated move")
		require.Equal(t, Implicit, m.Report().Kind)
		require.Greater(t, m.Report().Visits, 500, "Best estimate should get most visits")
	})

	t.Run("implicit backups overturn misleading estimates", func(t *testing.T) {
		misleading := &position{player: 1, value: 0.9, children: []*position{chain(-0.5, 1), chain(-0.5, 1)}}
		state := tree(2, branch(1, misleading, chain(0.1, 1), chain(0.5, 2)))
		m := NewMCTS(1,
			WithSelection(NewImplicitUCT(0.8)),
			WithoutPlayout(),
			WithEvaluationFn(mockEvaluate),
			WithIterations(1000),
			WithSeed(7),
		)

		move := m.SelectAction(state, 0, -1, -1)
		require.Equal(t, game.MoveID(2), move.ID(), "Should play the best backed-up move")
	})

	t.Run("batch evaluation seeds the estimates", func(t *testing.T) {
		state := tree(2, branch(1, chain(0.9, 1), chain(0.1, 1)))
		batches := 0
		m := NewMCTS(1,
			WithSelection(NewImplicitUCT(0.8)),
			WithBatchEvaluationFn(func(states []game.State) []float64 {
				batches++
				values := make([]float64, len(states))
				for i, s := range states {
					values[i] = mockEvaluate(s)
				}
				return values
			}),
			WithIterations(1),
		)

		s := newTestSearch(m, state)
		require.Equal(t, 0.9, s.root.InitialEstimate(0))
		require.Equal(t, 0.1, s.root.InitialEstimate(1))
		require.Equal(t, 2, batches, "Should evaluate the moves of a node in one batch")
	})

	t.Run("forced move uses the autoplay budget", func(t *testing.T) {
		state := tree(2, branch(1, branch(2, leaf(1, -1), leaf(-1, 1))))
		m := NewMCTS(2, WithDuration(10*time.Second), WithAutoPlay(20*time.Millisecond))

		start := time.Now()
		move := m.SelectAction(state, 0, -1, -1)

		require.Less(t, time.Since(start), 2*time.Second, "Should not spend the full budget")
		require.Equal(t, game.MoveID(0), move.ID(), "Should play the only move")
	})

	t.Run("worker panics are contained", func(t *testing.T) {
		state := tictactoe.New()
		m := NewMCTS(2, WithIterations(100), WithCutoff(0), WithEvaluationFn(func(game.State) float64 {
			panic("evaluator failure")
		}))

		var move game.Move
		require.NotPanics(t, func() {
			move = m.SelectAction(state, 0, -1, -1)
		})
		require.Contains(t, state.LegalMoves(), move, "Should still return a legal move")
		require.Zero(t, m.Report().Iterations, "No iteration should complete")
	})

	t.Run("open loop search of a stochastic game", func(t *testing.T) {
		state := pig.NewWithDie(20, func() int { return 4 }).Play(pig.Roll)
		m := NewMCTS(2, WithIterations(300), WithTreeReuse(), WithEvaluationFn(pig.Evaluate), WithSeed(8))

		move := m.SelectAction(state, 0, -1, -1)

		require.Contains(t, state.LegalMoves(), move, "Should return a legal move")
		require.Equal(t, OpenLoop, m.Report().Kind)
		require.Equal(t, 300, m.Report().RootVisits)
		if root := m.Root(); root != nil {
			require.Equal(t, OpenLoop, root.Kind(), "Retained tree should stay open loop")
		}
	})
}

func requireSoundProof(t *testing.T, n *Node) {
	t.Helper()
	proof := n.Proof()
	children := n.allChildren()
	if proof == nil || len(children) == 0 {
		return
	}
	matched := false
	for _, child := range children {
		childProof := child.Proof()
		if childProof == nil {
			continue
		}
		require.LessOrEqual(t, childProof[n.player], proof[n.player],
			"No proven child can be better for the player to act than the proof")
		if childProof[n.player] == proof[n.player] {
			matched = true
		}
	}
	require.True(t, matched, "Proof should come from a proven child")
}

func TestTreeReuse(t *testing.T) {
	t.Run("continues from the played moves", func(t *testing.T) {
		state := tictactoe.New()
		m := NewMCTS(1, WithIterations(300), WithTreeReuse(), WithSeed(9))

		move := m.SelectAction(state, 0, -1, -1)
		retained := m.Root()
		require.NotNil(t, retained)
		require.Equal(t, move.ID(), retained.Move().ID(), "Should retain the chosen move")

		var expected *Node
		var reply game.Move
		for i, candidate := range retained.Moves() {
			if child := retained.Child(i); child != nil {
				expected, reply = child, candidate
				break
			}
		}
		require.NotNil(t, expected, "Chosen move should have expanded replies")
		before := expected.Visits()

		reused := m.traverse(state.Play(move).Play(reply), retained.Kind())
		require.Same(t, expected, reused, "Should replay the reply")
		require.Nil(t, reused.Parent(), "Reused root should let go of the old tree")

		m.SelectAction(state.Play(move).Play(reply), 0, -1, -1)

		report := m.Report()
		require.True(t, report.TreeReused, "Should reuse the retained tree")
		require.Equal(t, before+300, report.RootVisits, "Root should be the reply's node")
	})

	t.Run("starts afresh on a diverging game", func(t *testing.T) {
		state := tictactoe.New()
		m := NewMCTS(1, WithIterations(300), WithTreeReuse(), WithSeed(10))

		move := m.SelectAction(state, 0, -1, -1)
		other := state.LegalMoves()[0]
		if other.ID() == move.ID() {
			other = state.LegalMoves()[1]
		}

		m.SelectAction(state.Play(other), 0, -1, -1)

		report := m.Report()
		require.False(t, report.TreeReused, "Position should not match the retained tree")
		require.Equal(t, 300, report.RootVisits, "Fresh root should only count this search")
	})

	t.Run("new game drops the tree", func(t *testing.T) {
		state := tictactoe.New()
		m := NewMCTS(1, WithIterations(50), WithTreeReuse())

		m.SelectAction(state, 0, -1, -1)
		require.NotNil(t, m.Root())
		require.NoError(t, m.InitAI(state, 1))
		require.Nil(t, m.Root(), "Should forget the previous game")
		require.Zero(t, m.Actions().Len(), "Should forget the action statistics")
	})

	t.Run("decays statistics between searches", func(t *testing.T) {
		state := tictactoe.New()
		m := NewMCTS(2, WithIterations(300), WithTreeReuse(), WithDecay(0.5),
			WithSelection(NewProgressiveHistory()), WithPlayout(MASTPlayout{Epsilon: 0.2}))

		move := m.SelectAction(state, 0, -1, -1)
		require.Positive(t, m.Actions().Len(), "Should collect global statistics")
		key := keyOf(state.Player(), move)
		before, ok := m.Actions().Get(key)
		require.True(t, ok)

		next := state.Play(move)
		m.SelectAction(next, 0, 0, -1)

		after, ok := m.Actions().Get(key)
		require.True(t, ok)
		require.InDelta(t, before.Visits*0.5, after.Visits, 1e-9, "Should halve the visits before searching")
	})
}

func TestInterrupt(t *testing.T) {
	t.Run("returns promptly without advancing the tree", func(t *testing.T) {
		state := tictactoe.New()
		m := NewMCTS(4, WithDuration(time.Minute), WithTreeReuse(), WithSeed(11))

		move := m.SelectAction(state, 0, 200, -1)
		retained := m.Root()
		next := state.Play(move)

		go func() {
			time.Sleep(50 * time.Millisecond)
			m.Interrupt()
		}()
		start := time.Now()
		reply := m.SelectAction(next, 0, -1, -1)

		require.Less(t, time.Since(start), 5*time.Second, "Should return soon after the interrupt")
		require.Contains(t, next.LegalMoves(), reply, "Should return a legal move")
		require.True(t, m.Report().Interrupted)
		require.Same(t, retained, m.Root(), "Interrupted search should keep the retained root")

		m.SelectAction(next, 0, 100, -1)
		require.False(t, m.Report().Interrupted, "Next search should run normally")
		require.True(t, m.Report().TreeReused, "Next search should reuse the tree")
		require.Equal(t, 100, m.Report().Iterations)
	})

	t.Run("context cancellation", func(t *testing.T) {
		state := tictactoe.New()
		m := NewMCTS(2, WithDuration(time.Minute))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		start := time.Now()
		move := m.SelectActionContext(ctx, state, 0, -1, -1)

		require.Less(t, time.Since(start), 5*time.Second, "Should return soon after cancellation")
		require.Contains(t, state.LegalMoves(), move)
		require.True(t, m.Report().Interrupted)
	})
}

func TestValidate(t *testing.T) {
	threePlayers := tree(3, branch(1, leaf(1, -0.5, -0.5), leaf(-0.5, 1, -0.5)))

	t.Run("early termination needs two players", func(t *testing.T) {
		for _, backprop := range []Backpropagation{FixedEarlyTermination{}, NewDynamicEarlyTermination(0.5, true)} {
			m := NewMCTS(1, WithIterations(10), WithEvaluationFn(mockEvaluate), WithBackpropagation(backprop))
			require.Error(t, m.InitAI(threePlayers, 1), "Should reject a three-player game")
			require.Panics(t, func() { m.SelectAction(threePlayers, 0, -1, -1) })
			require.NoError(t, m.InitAI(tictactoe.New(), 1), "Should accept a two-player game")
		}
	})

	t.Run("early termination needs an evaluator", func(t *testing.T) {
		m := NewMCTS(1, WithIterations(10), WithBackpropagation(FixedEarlyTermination{}))
		require.Error(t, m.InitAI(tictactoe.New(), 1))
	})

	t.Run("implicit selection needs positions", func(t *testing.T) {
		m := NewMCTS(1, WithIterations(10), WithSelection(NewImplicitUCT(0.5)))
		require.Error(t, m.InitAI(pig.New(10), 1), "Should reject a stochastic game")

		m = NewMCTS(1, WithIterations(10), WithSelection(NewImplicitUCT(0.5)), WithCheating())
		require.NoError(t, m.InitAI(pig.New(10), 1), "Cheating stores positions in the tree")
	})

	t.Run("multi-player Monte Carlo search", func(t *testing.T) {
		m := NewMCTS(1, WithIterations(50))
		require.NoError(t, m.InitAI(threePlayers, 1))
		move := m.SelectAction(threePlayers, 0, -1, -1)
		require.Equal(t, game.MoveID(0), move.ID(), "Should play the winning move")
	})
}
