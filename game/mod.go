package game

// MoveID identifies a move independently of the position it is played in, so
// statistics about a move can be shared across the whole search tree.
type MoveID uint64

type Move interface {
	ID() MoveID
}

type StateHash uint64

// State should be immutable - operations on State always return a new copy
type State interface {
	// Player returns the player to act, numbered from 1 to NumPlayers()
	Player() int
	NumPlayers() int
	LegalMoves() []Move
	Play(Move) State
	IsTerminal() bool
	// Utilities returns the per-player outcome of a terminal state in [-1, 1].
	// Index 0 is unused.
	Utilities() []float64
	Hash() StateHash
}

// Stochastic is implemented by games with hidden or chance elements. Playing the
// same move from the same position may then lead to different successors.
type Stochastic interface {
	IsStochastic() bool
}

// Historian is implemented by states that remember the moves played so far in the
// real game, oldest first.
type Historian interface {
	History() []Move
}

// Evaluates the game state to a score between -1 and 1 indicating how
// favorable the current player's position is to a winning (positive) outcome.
type Evaluate func(State) float64

// BatchEvaluate evaluates many states at once, in the same order, for evaluators
// that are cheaper per state in bulk.
type BatchEvaluate func([]State) []float64
