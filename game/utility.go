package game

const (
	Win  = 1.0
	Loss = -Win
	Draw = 0.0
)

// PlayerValues spreads a value from the perspective of the player to act in state
// across all players. Opponents share the negated value equally, so the vector
// sums to zero.
func PlayerValues(state State, value float64) []float64 {
	n := state.NumPlayers()
	values := make([]float64, n+1)
	mover := state.Player()
	for p := 1; p <= n; p++ {
		if p == mover {
			values[p] = value
		} else if n > 1 {
			values[p] = -value / float64(n-1)
		}
	}
	return values
}

// Drawn returns the utility vector of a game where no player won.
func Drawn(numPlayers int) []float64 {
	return make([]float64, numPlayers+1)
}

func Clamp(value float64) float64 {
	if value > Win {
		return Win
	}
	if value < Loss {
		return Loss
	}
	return value
}

// IndexOf returns the index of the move with the given ID in moves, or -1.
func IndexOf(moves []Move, id MoveID) int {
	for i, move := range moves {
		if move.ID() == id {
			return i
		}
	}
	return -1
}

func IsStochastic(state State) bool {
	s, ok := state.(Stochastic)
	return ok && s.IsStochastic()
}

// HistoryOf returns the moves played to reach state, if the state tracks them.
func HistoryOf(state State) ([]Move, bool) {
	h, ok := state.(Historian)
	if !ok {
		return nil, false
	}
	return h.History(), true
}
