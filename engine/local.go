package engine

import (
	"time"

	"treesearch/experiments/metrics"
	"treesearch/game"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type local struct {
	state  game.State
	agents []Agent
	budget Budget
}

// LocalEngine plays a game from state between agents, the i-th agent taking
// player i+1. Every agent is initialized before the first move.
func LocalEngine(state game.State, agents []Agent, budget Budget) (Engine, error) {
	if len(agents) != state.NumPlayers() {
		return nil, errors.Errorf("number of agents %d does not match number of players %d", len(agents), state.NumPlayers())
	}
	if len(agents) < 2 {
		return nil, errors.New("need at least two players")
	}
	for i, agent := range agents {
		if err := agent.InitAI(state, i+1); err != nil {
			return nil, errors.Wrapf(err, "failed to initialize agent for player %d", i+1)
		}
	}
	return &local{state: state, agents: agents, budget: budget}, nil
}

// Run executes the entire game loop until the game is over
func (e *local) Run() (int, metrics.GameMetric, []metrics.MoveMetric) {
	gameMetric := metrics.GameMetric{
		StartingPlayer: e.state.Player(),
		StartTime:      time.Now(),
	}
	log.Info().Msgf("player %d is starting", e.state.Player())

	var moveMetrics []metrics.MoveMetric
	step := 1
	for !e.state.IsTerminal() && step <= MaxMoves {
		player := e.state.Player()
		agent := e.agents[player-1]

		move := agent.SelectAction(e.state, e.budget.Seconds, e.budget.Iterations, e.budget.Depth)
		move = legalize(e.state, move)
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         step,
			Player:       player,
			SearchMetric: agent.Metric(),
		})

		e.state = e.state.Play(move)
		step++
	}

	winner := Winner(e.state)
	if e.state.IsTerminal() {
		log.Info().Msgf("game over after %d moves with winner: %d", step-1, winner)
	} else {
		log.Info().Msgf("stopped after %d moves (no winner yet)", MaxMoves)
	}

	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = step - 1
	gameMetric.Winner = winner
	return winner, gameMetric, moveMetrics
}

// legalize replaces a move that is not legal in state by the first legal move
func legalize(state game.State, move game.Move) game.Move {
	moves := state.LegalMoves()
	if move != nil && game.IndexOf(moves, move.ID()) >= 0 {
		return move
	}
	log.Warn().Msgf("agent for player %d returned an illegal move %v, forcing %v", state.Player(), move, moves[0])
	return moves[0]
}

// Winner returns the player that won a terminal state, 0 for a draw or an
// unfinished game
func Winner(state game.State) int {
	if !state.IsTerminal() {
		return 0
	}
	utilities := state.Utilities()
	for p := 1; p < len(utilities); p++ {
		if utilities[p] >= game.Win {
			return p
		}
	}
	return 0
}
