package engine

import (
	"treesearch/experiments/metrics"
	"treesearch/game"
)

const MaxMoves = 10000

type Engine interface {
	// Run starts a game till there's a winner or a max number of moves is reached
	Run() (winner int, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric)
}

// Agent picks moves for one seat of a game
type Agent interface {
	InitAI(state game.State, player int) error
	SelectAction(state game.State, maxSeconds float64, maxIterations, maxDepth int) game.Move
	// Metric returns the metric of the agent's latest search
	Metric() metrics.SearchMetric
}

// Budget bounds every search of a game. Non-positive seconds and negative
// iterations or depth leave the agent's own configuration in charge.
type Budget struct {
	Seconds    float64
	Iterations int
	Depth      int
}

// DefaultBudget defers to the agents' configuration
var DefaultBudget = Budget{Seconds: 0, Iterations: -1, Depth: -1}
