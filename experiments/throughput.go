package experiments

import (
	"time"

	"treesearch/experiments/metrics"
)

const (
	NumGames   = 10 // Per match up
	TimeBudget = 50 * time.Millisecond
)

var parallelConfigs = []metrics.AgentConfig{
	{ID: 1, Goroutines: 1, Duration: TimeBudget},
	{ID: 2, Goroutines: 2, Duration: TimeBudget},
	{ID: 3, Goroutines: 4, Duration: TimeBudget},
	{ID: 4, Goroutines: 8, Duration: TimeBudget},
	{ID: 5, Goroutines: 16, Duration: TimeBudget},
}

// Throughput pairs each parallel configuration with itself, for the same
// playing strength and similar game length
func Throughput() *Experiment {
	exp := &Experiment{Name: "throughput", Game: "tictactoe", Games: NumGames, Agents: parallelConfigs}
	for _, config := range parallelConfigs {
		exp.MatchUps = append(exp.MatchUps, [2]int{config.ID, config.ID})
	}
	return exp
}

// Strategies pairs a plain UCB1 baseline against each strategy family
func Strategies() *Experiment {
	baseline := metrics.AgentConfig{ID: 0, Name: "ucb1", Goroutines: 4, Duration: TimeBudget}
	configs := []metrics.AgentConfig{
		baseline,
		{ID: 1, Name: "solver", Goroutines: 4, Duration: TimeBudget, Solver: true, TreeReuse: true},
		{ID: 2, Name: "score-bounds", Goroutines: 4, Duration: TimeBudget, ScoreBounds: true},
		{ID: 3, Name: "implicit", Goroutines: 4, Duration: TimeBudget, Selection: "implicit", Playout: "none", Solver: true},
		{ID: 4, Name: "grave", Goroutines: 4, Duration: TimeBudget, Selection: "grave", Decay: 0.5, TreeReuse: true},
		{ID: 5, Name: "history", Goroutines: 4, Duration: TimeBudget, Selection: "progressive-history", Playout: "mast", Decay: 0.5},
		{ID: 6, Name: "early-termination", Goroutines: 4, Duration: TimeBudget, Cutoff: 2, Backprop: "dynamic-early-termination"},
	}
	exp := &Experiment{Name: "strategies", Game: "tictactoe", Games: NumGames, Agents: configs}
	for _, config := range configs[1:] {
		exp.MatchUps = append(exp.MatchUps, [2]int{baseline.ID, config.ID})
	}
	return exp
}
