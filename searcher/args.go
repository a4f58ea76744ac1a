package searcher

import (
	"math"
	"time"
)

// Hyperparameters for MCTS

const ExplorationConstant = math.Sqrt2

// NoLimit disables an iteration cap or a playout depth limit
const NoLimit = -1

const MaxCutoff = NoLimit // Play out till the game is over

const (
	DefaultAutoPlay    = 100 * time.Millisecond // Budget for a forced move
	DefaultGracePeriod = 50 * time.Millisecond  // Extra wait for workers past the deadline
)

// ProvenScale scales the utilities of a proven node before they enter the
// statistics, keeping proven and sampled outcomes on the same [-1, 1] range.
const ProvenScale = 1.0

// PriorWeight is the number of pseudo visits a heuristic prior counts for.
const PriorWeight = 1.0
