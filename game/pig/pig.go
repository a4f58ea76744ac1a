// Package pig implements the two-player dice game Pig. Players take turns rolling a
// die, accumulating a turn total that is lost on a one, or holding to bank it. The
// first to reach the target wins. Rolls make the game stochastic.
package pig

import (
	"fmt"

	"treesearch/game"

	"golang.org/x/exp/rand"
)

const DefaultTarget = 30

type Action int

const (
	Roll Action = iota
	Hold
)

func (a Action) ID() game.MoveID {
	return game.MoveID(a)
}

func (a Action) String() string {
	if a == Roll {
		return "roll"
	}
	return "hold"
}

type State struct {
	target  int
	scores  [3]int
	turn    int // Points accumulated this turn
	player  int
	die     func() int
	history []game.Move
}

func New(target int) *State {
	return NewWithDie(target, func() int { return rand.Intn(6) + 1 })
}

// NewWithDie uses die for every roll, which lets tests fix the outcomes.
func NewWithDie(target int, die func() int) *State {
	if target <= 0 {
		target = DefaultTarget
	}
	return &State{target: target, player: 1, die: die}
}

func (s *State) Player() int {
	return s.player
}

func (s *State) NumPlayers() int {
	return 2
}

func (s *State) IsStochastic() bool {
	return true
}

func (s *State) LegalMoves() []game.Move {
	if s.IsTerminal() {
		return nil
	}
	if s.turn == 0 {
		return []game.Move{Roll}
	}
	return []game.Move{Roll, Hold}
}

func (s *State) Play(move game.Move) game.State {
	next := *s
	next.history = append(s.history[:len(s.history):len(s.history)], move)
	switch move.(Action) {
	case Roll:
		if face := s.die(); face == 1 {
			next.turn = 0
			next.player = 3 - s.player
		} else {
			next.turn += face
			if next.scores[s.player]+next.turn >= s.target {
				next.scores[s.player] += next.turn
				next.turn = 0
			}
		}
	case Hold:
		next.scores[s.player] += s.turn
		next.turn = 0
		next.player = 3 - s.player
	default:
		panic(fmt.Sprintf("unexpected move %v", move))
	}
	return &next
}

func (s *State) winner() int {
	for p := 1; p <= 2; p++ {
		if s.scores[p] >= s.target {
			return p
		}
	}
	return 0
}

func (s *State) IsTerminal() bool {
	return s.winner() != 0
}

func (s *State) Utilities() []float64 {
	utilities := game.Drawn(2)
	if w := s.winner(); w != 0 {
		utilities[w] = game.Win
		utilities[3-w] = game.Loss
	}
	return utilities
}

func (s *State) Score(player int) int {
	return s.scores[player]
}

func (s *State) Hash() game.StateHash {
	h := uint64(s.scores[1])
	h = h<<16 | uint64(s.scores[2])
	h = h<<16 | uint64(s.turn)
	return game.StateHash(h<<2 | uint64(s.player))
}

func (s *State) History() []game.Move {
	return s.history
}

// Evaluate compares the banked and pending points of both players relative to the
// target, from the current player's perspective.
func Evaluate(s game.State) float64 {
	ps, ok := s.(*State)
	if !ok {
		panic("unexpected state type")
	}
	if w := ps.winner(); w != 0 {
		return ps.Utilities()[ps.player]
	}
	own := float64(ps.scores[ps.player] + ps.turn)
	other := float64(ps.scores[3-ps.player])
	return game.Clamp((own - other) / float64(ps.target))
}
