package experiments

import (
	"treesearch/engine"
	"treesearch/experiments/metrics"
	"treesearch/game"
	"treesearch/game/pig"
	"treesearch/game/tictactoe"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Results collects the records of an experiment
type Results struct {
	Games []metrics.GameRecord
	Moves []metrics.MoveRecord
}

// Wins counts the games won by each agent ID
func (r Results) Wins() map[int]int {
	wins := map[int]int{}
	for _, record := range r.Games {
		switch record.Winner {
		case 1:
			wins[record.Agent1]++
		case 2:
			wins[record.Agent2]++
		}
	}
	return wins
}

// Run plays every match up of exp and stores its records under outDir
func Run(exp *Experiment, outDir string) (Results, error) {
	results, err := play(exp)
	if err != nil {
		return results, err
	}
	return results, store(exp, results, outDir)
}

func play(exp *Experiment) (Results, error) {
	count := 0
	results := Results{}

	log.Info().Msgf("starting %s experiment...", exp.Name)

	for mi, matchUp := range exp.MatchUps {
		config1 := exp.agent(matchUp[0])
		config2 := exp.agent(matchUp[1])

		log.Info().Msgf("starting matchup %d of %d between agent1=%d and agent2=%d...", mi+1, len(exp.MatchUps), config1.ID, config2.ID)

		for i := 0; i < exp.Games; i++ {
			winner, gameMetric, moveMetrics, err := runGame(exp, config1, config2)
			if err != nil {
				return results, errors.Wrapf(err, "matchup %d game %d", mi+1, i+1)
			}
			count++
			results.Games = append(results.Games, metrics.GameRecord{
				ID:         count,
				Agent1:     config1.ID,
				Agent2:     config2.ID,
				GameMetric: gameMetric,
			})
			results.Moves = append(results.Moves, lo.Map(moveMetrics, func(mm metrics.MoveMetric, _ int) metrics.MoveRecord {
				return metrics.MoveRecord{Game: count, MoveMetric: mm}
			})...)

			log.Info().Msgf("completed matchup %d of %d game %d with winner: %d", mi+1, len(exp.MatchUps), i+1, winner)
		}
		log.Info().Msgf("completed matchup %d of %d", mi+1, len(exp.MatchUps))
	}

	log.Info().Msgf("completed %s experiment", exp.Name)
	return results, nil
}

func store(exp *Experiment, results Results, outDir string) error {
	writer, err := metrics.NewWriter(outDir, exp.Name)
	if err != nil {
		return errors.Wrap(err, "failed to create experiment writer")
	}

	if err = writer.WriteAgentConfigs(exp.Agents); err != nil {
		return errors.Wrap(err, "failed to store agent configs")
	}
	log.Info().Msg("stored agent configs")

	if err = writer.WriteGameRecords(results.Games); err != nil {
		return errors.Wrap(err, "failed to write game records")
	}
	log.Info().Msg("stored game records")

	if err = writer.WriteMoveRecords(results.Moves); err != nil {
		return errors.Wrap(err, "failed to write move records")
	}
	log.Info().Str("dir", writer.Dir()).Msg("stored move records")
	return nil
}

// runGame executes a single game between two agents and returns the winner
func runGame(exp *Experiment, config1, config2 metrics.AgentConfig) (int, metrics.GameMetric, []metrics.MoveMetric, error) {
	state, evaluate := newGame(exp)
	agents := make([]engine.Agent, 0, 2)
	for _, config := range []metrics.AgentConfig{config1, config2} {
		mcts, err := createMCTS(config, evaluate)
		if err != nil {
			return 0, metrics.GameMetric{}, nil, err
		}
		agents = append(agents, mcts)
	}

	budget := engine.DefaultBudget
	budget.Seconds = exp.Seconds
	e, err := engine.LocalEngine(state, agents, budget)
	if err != nil {
		return 0, metrics.GameMetric{}, nil, err
	}
	winner, gameMetric, moveMetrics := e.Run()
	return winner, gameMetric, moveMetrics, nil
}

func newGame(exp *Experiment) (game.State, game.Evaluate) {
	if exp.Game == "pig" {
		return pig.New(exp.Target), pig.Evaluate
	}
	return tictactoe.New(), tictactoe.EvaluateLines
}
