package experiments

import (
	"treesearch/experiments/metrics"
	"treesearch/game"
	"treesearch/searcher"

	"github.com/pkg/errors"
)

// createMCTS builds the searcher described by config, evaluating positions
// with evaluate
func createMCTS(config metrics.AgentConfig, evaluate game.Evaluate) (*searcher.MCTS, error) {
	goroutines := config.Goroutines
	if goroutines <= 0 {
		goroutines = 1
	}
	options := []searcher.Option{
		searcher.WithMetrics(),
		searcher.WithEvaluationFn(evaluate),
	}
	if config.Name != "" {
		options = append(options, searcher.WithName(config.Name))
	}
	if config.Iterations > 0 {
		options = append(options, searcher.WithIterations(config.Iterations))
	}
	if config.Duration > 0 {
		options = append(options, searcher.WithDuration(config.Duration))
	}
	if config.Iterations <= 0 && config.Duration <= 0 {
		return nil, errors.Errorf("agent %d must specify search iterations or duration", config.ID)
	}
	if config.Cutoff > 0 {
		options = append(options, searcher.WithCutoff(config.Cutoff))
	}
	if config.Solver {
		options = append(options, searcher.WithSolver())
	}
	if config.ScoreBounds {
		options = append(options, searcher.WithScoreBounds())
	}
	if config.Solver && config.ScoreBounds {
		return nil, errors.Errorf("agent %d cannot combine the solver with score bounds", config.ID)
	}
	if config.TreeReuse {
		options = append(options, searcher.WithTreeReuse())
	}
	if config.Cheating {
		options = append(options, searcher.WithCheating())
	}
	if config.Decay > 0 {
		options = append(options, searcher.WithDecay(config.Decay))
	}
	if config.Seed != 0 {
		options = append(options, searcher.WithSeed(config.Seed))
	}

	selection, err := newSelection(config)
	if err != nil {
		return nil, err
	}
	options = append(options, searcher.WithSelection(selection))

	switch config.Playout {
	case "", "random":
		options = append(options, searcher.WithPlayout(searcher.RandomPlayout{}))
	case "mast":
		options = append(options, searcher.WithPlayout(searcher.MASTPlayout{Epsilon: 0.1}))
	case "heuristic":
		options = append(options, searcher.WithPlayout(searcher.HeuristicPlayout{Epsilon: 0.1}))
	case "none":
		options = append(options, searcher.WithoutPlayout())
	default:
		return nil, errors.Errorf("agent %d has unknown playout %q", config.ID, config.Playout)
	}

	switch config.Backprop {
	case "", "monte-carlo":
		options = append(options, searcher.WithBackpropagation(searcher.MonteCarlo{}))
	case "fixed-early-termination":
		options = append(options, searcher.WithBackpropagation(searcher.FixedEarlyTermination{}))
	case "dynamic-early-termination":
		options = append(options, searcher.WithBackpropagation(searcher.NewDynamicEarlyTermination(0.8, true)))
	default:
		return nil, errors.Errorf("agent %d has unknown backpropagation %q", config.ID, config.Backprop)
	}

	switch config.Final {
	case "", "robust":
		options = append(options, searcher.WithFinalMoveSelection(searcher.RobustChild{}))
	case "max-average":
		options = append(options, searcher.WithFinalMoveSelection(searcher.MaxAverageScore{}))
	case "proportional":
		options = append(options, searcher.WithFinalMoveSelection(searcher.Proportional{Temperature: 1}))
	default:
		return nil, errors.Errorf("agent %d has unknown final move selection %q", config.ID, config.Final)
	}

	return newSearcher(goroutines, options)
}

// newSearcher turns the searcher's construction panics into errors
func newSearcher(goroutines int, options []searcher.Option) (m *searcher.MCTS, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("invalid searcher configuration: %v", r)
		}
	}()
	return searcher.NewMCTS(goroutines, options...), nil
}

func newSelection(config metrics.AgentConfig) (searcher.Selection, error) {
	c := config.Exploration
	if c <= 0 {
		c = searcher.ExplorationConstant
	}
	switch config.Selection {
	case "", "ucb1":
		return searcher.UCB1{C: c}, nil
	case "implicit":
		alpha := config.Alpha
		if alpha <= 0 {
			alpha = 0.8
		}
		return searcher.ImplicitUCT{Alpha: alpha, C: c}, nil
	case "grave":
		g := searcher.NewGRAVE()
		g.C = c
		return g, nil
	case "progressive-history":
		h := searcher.NewProgressiveHistory()
		h.C = c
		return h, nil
	default:
		return nil, errors.Errorf("agent %d has unknown selection %q", config.ID, config.Selection)
	}
}
