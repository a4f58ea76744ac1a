package searcher

import (
	"math"
	"sync"

	"treesearch/game"

	"github.com/pkg/errors"
)

// Backpropagation derives the per-player utilities of an iteration from the
// position it ended in. Index 0 of the result is unused.
type Backpropagation interface {
	Utilities(w *Worker, n *Node, end game.State, playoutMoves int) []float64
	Flags() Flags
}

// Validator is implemented by strategies that only support some games
type Validator interface {
	Validate(m *MCTS, state game.State) error
}

// MonteCarlo backs up the outcome of a finished game, and the evaluator's
// estimate when the playout stopped early.
type MonteCarlo struct{}

func (MonteCarlo) Utilities(w *Worker, _ *Node, end game.State, _ int) []float64 {
	if end.IsTerminal() {
		return end.Utilities()
	}
	if w.m.evaluate == nil {
		return game.Drawn(end.NumPlayers())
	}
	return game.PlayerValues(end, game.Clamp(w.m.evaluate(end)))
}

func (MonteCarlo) Flags() Flags {
	return 0
}

// FixedEarlyTermination backs up the evaluator's value of the end position as
// +v for the player to act and -v for the opponent. Terminal positions back up
// their true outcome. It assumes exactly two players.
type FixedEarlyTermination struct{}

func (FixedEarlyTermination) Utilities(w *Worker, _ *Node, end game.State, _ int) []float64 {
	if end.IsTerminal() {
		return end.Utilities()
	}
	return opposed(end, game.Clamp(w.m.evaluate(end)))
}

func (FixedEarlyTermination) Flags() Flags {
	return 0
}

func (FixedEarlyTermination) Validate(m *MCTS, state game.State) error {
	return validateTwoPlayers("fixed early termination", m, state)
}

// DynamicEarlyTermination keeps playing random moves from the end position until
// the evaluator's value crosses the threshold, then backs up a win for the player
// it favors and a loss for the other. With Dynamic set the threshold follows the
// mean plus one standard deviation of the magnitudes seen so far, capped at
// Threshold. It assumes exactly two players.
type DynamicEarlyTermination struct {
	Threshold    float64
	Dynamic      bool
	MaxExtension int // Random moves before backing up the raw value, 0 for no limit

	mu      sync.Mutex
	samples int
	mean    float64
	m2      float64
}

const minThresholdSamples = 30

func NewDynamicEarlyTermination(threshold float64, dynamic bool) *DynamicEarlyTermination {
	return &DynamicEarlyTermination{Threshold: threshold, Dynamic: dynamic}
}

func (d *DynamicEarlyTermination) Utilities(w *Worker, _ *Node, end game.State, _ int) []float64 {
	state := end
	for steps := 0; ; steps++ {
		if state.IsTerminal() {
			return state.Utilities()
		}
		value := game.Clamp(w.m.evaluate(state))
		if math.Abs(value) >= d.threshold(value) {
			if value > 0 {
				return opposed(state, game.Win)
			}
			return opposed(state, game.Loss)
		}
		moves := state.LegalMoves()
		if len(moves) == 0 || w.Stopped() || (d.MaxExtension > 0 && steps >= d.MaxExtension) {
			return opposed(state, value)
		}
		state = state.Play(moves[w.rand.Intn(len(moves))])
	}
}

// threshold records the magnitude of value and returns the current threshold
func (d *DynamicEarlyTermination) threshold(value float64) float64 {
	if !d.Dynamic {
		return d.Threshold
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	magnitude := math.Abs(value)
	d.samples++
	delta := magnitude - d.mean
	d.mean += delta / float64(d.samples)
	d.m2 += delta * (magnitude - d.mean)
	if d.samples < minThresholdSamples {
		return d.Threshold
	}
	std := math.Sqrt(d.m2 / float64(d.samples-1))
	return math.Min(d.Threshold, d.mean+std)
}

func (d *DynamicEarlyTermination) Flags() Flags {
	return 0
}

func (d *DynamicEarlyTermination) Validate(m *MCTS, state game.State) error {
	return validateTwoPlayers("dynamic early termination", m, state)
}

func validateTwoPlayers(name string, m *MCTS, state game.State) error {
	if players := state.NumPlayers(); players != 2 {
		return errors.Errorf("%s assigns opposite values to two players, but the game has %d players", name, players)
	}
	if m.evaluate == nil {
		return errors.Errorf("%s requires an evaluation function", name)
	}
	return nil
}

// opposed gives value to the player to act in a two-player state and its
// negation to the opponent.
func opposed(state game.State, value float64) []float64 {
	utilities := game.Drawn(2)
	mover := state.Player()
	utilities[mover] = value
	utilities[3-mover] = -value
	return utilities
}
