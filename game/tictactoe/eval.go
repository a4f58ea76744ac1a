package tictactoe

import "treesearch/game"

// EvaluateLines scores the open lines of each player to produce a score between -1
// and 1 from the current player's perspective. A line is open for a player when the
// opponent has no mark on it; lines with two marks weigh more.
func EvaluateLines(s game.State) float64 {
	ts, ok := s.(*State)
	if !ok {
		panic("unexpected state type")
	}
	if ts.IsTerminal() {
		return ts.Utilities()[ts.player]
	}

	var own, other float64
	for _, line := range lines {
		marks := [3]int{}
		for _, cell := range line {
			marks[ts.board[cell]]++
		}
		mover, opponent := marks[ts.player], marks[3-ts.player]
		if opponent == 0 {
			own += weight(mover)
		}
		if mover == 0 {
			other += weight(opponent)
		}
	}
	if own+other == 0 {
		return game.Draw
	}
	return game.Clamp((own - other) / (own + other))
}

func weight(marks int) float64 {
	switch marks {
	case 0:
		return 0
	case 1:
		return 1
	default:
		return 4
	}
}
