package searcher

import (
	"treesearch/game"
)

type Action struct {
	Player int
	Move   game.Move
}

// Trial records the moves of one iteration, from the root through the
// playout, for the action statistics.
type Trial struct {
	Actions  []Action
	selected int // Moves made during tree descent
}

func (t *Trial) add(player int, move game.Move) {
	t.Actions = append(t.Actions, Action{Player: player, Move: move})
}

func (t *Trial) endSelection() {
	t.selected = len(t.Actions)
}

func (t *Trial) PlayoutMoves() int {
	return len(t.Actions) - t.selected
}

func (t *Trial) reset() {
	t.Actions = t.Actions[:0]
	t.selected = 0
}

// Playout extends a non-terminal position until the game ends, the depth limit
// is reached or the search stops, recording its moves into trial.
type Playout interface {
	Playout(w *Worker, state game.State, trial *Trial) game.State
	Flags() Flags
}

func playout(w *Worker, state game.State, trial *Trial, choose func(state game.State, moves []game.Move) int) game.State {
	depth := 0
	for !state.IsTerminal() && (w.depth < 0 || depth < w.depth) && !w.Stopped() {
		moves := state.LegalMoves()
		if len(moves) == 0 {
			break
		}
		move := moves[choose(state, moves)]
		trial.add(state.Player(), move)
		state = state.Play(move)
		depth++
	}
	return state
}

type RandomPlayout struct{}

func (RandomPlayout) Playout(w *Worker, state game.State, trial *Trial) game.State {
	return playout(w, state, trial, func(_ game.State, moves []game.Move) int {
		return w.rand.Intn(len(moves))
	})
}

func (RandomPlayout) Flags() Flags {
	return 0
}

// MASTPlayout plays the move with the best global mean for the player to act,
// and a uniformly random move with probability Epsilon.
type MASTPlayout struct {
	Epsilon float64
}

func (p MASTPlayout) Playout(w *Worker, state game.State, trial *Trial) game.State {
	table := w.m.actions
	return playout(w, state, trial, func(s game.State, moves []game.Move) int {
		if w.rand.Float64() < p.Epsilon {
			return w.rand.Intn(len(moves))
		}
		mover := s.Player()
		return pick(w, len(moves), func(i int) float64 {
			return table.Mean(keyOf(mover, moves[i]), 0)
		})
	})
}

func (MASTPlayout) Flags() Flags {
	return GlobalActionStats
}

// HeuristicPlayout plays the move whose successor the evaluator rates best for
// the player to act, and a uniformly random move with probability Epsilon. It
// plays randomly when the engine has no evaluator.
type HeuristicPlayout struct {
	Epsilon float64
}

func (p HeuristicPlayout) Playout(w *Worker, state game.State, trial *Trial) game.State {
	evaluate := w.m.evaluate
	return playout(w, state, trial, func(s game.State, moves []game.Move) int {
		if evaluate == nil || w.rand.Float64() < p.Epsilon {
			return w.rand.Intn(len(moves))
		}
		mover := s.Player()
		return pick(w, len(moves), func(i int) float64 {
			next := s.Play(moves[i])
			if next.IsTerminal() {
				return next.Utilities()[mover]
			}
			value := evaluate(next)
			if next.Player() != mover {
				value = -value
			}
			return value
		})
	})
}

func (HeuristicPlayout) Flags() Flags {
	return 0
}
