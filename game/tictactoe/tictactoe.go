// Package tictactoe is a compact two-player game used to exercise the searcher.
package tictactoe

import (
	"fmt"
	"strings"

	"treesearch/game"

	"github.com/pkg/errors"
)

const (
	empty  = 0
	cross  = 1 // First player
	naught = 2
)

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Mark places the mover's symbol on a cell numbered 0..8, row by row.
type Mark int

func (m Mark) ID() game.MoveID {
	return game.MoveID(m)
}

func (m Mark) String() string {
	return fmt.Sprintf("(%d,%d)", int(m)/3, int(m)%3)
}

type State struct {
	board   [9]int8
	player  int
	winner  int
	history []game.Move
}

func New() *State {
	return &State{player: cross}
}

// Parse builds a position from nine characters: X, O or '.', row by row. The
// player to act is derived from the number of marks on the board.
func Parse(board string) (*State, error) {
	board = strings.ReplaceAll(board, "\n", "")
	if len(board) != 9 {
		return nil, errors.Errorf("board must have 9 cells, got %d", len(board))
	}
	s := New()
	crosses, naughts := 0, 0
	for i, c := range board {
		switch c {
		case 'X', 'x':
			s.board[i] = cross
			crosses++
		case 'O', 'o':
			s.board[i] = naught
			naughts++
		case '.':
		default:
			return nil, errors.Errorf("unexpected cell %q", c)
		}
	}
	if crosses != naughts && crosses != naughts+1 {
		return nil, errors.Errorf("impossible mark counts X=%d O=%d", crosses, naughts)
	}
	if crosses > naughts {
		s.player = naught
	}
	s.winner = s.findWinner()
	return s, nil
}

func (s *State) Player() int {
	return s.player
}

func (s *State) NumPlayers() int {
	return 2
}

func (s *State) LegalMoves() []game.Move {
	if s.IsTerminal() {
		return nil
	}
	moves := make([]game.Move, 0, 9)
	for i, cell := range s.board {
		if cell == empty {
			moves = append(moves, Mark(i))
		}
	}
	return moves
}

func (s *State) Play(move game.Move) game.State {
	mark := move.(Mark)
	if s.board[mark] != empty {
		panic(fmt.Sprintf("cell %v is already marked", mark))
	}
	next := &State{
		board:   s.board,
		player:  3 - s.player,
		history: append(s.history[:len(s.history):len(s.history)], move),
	}
	next.board[mark] = int8(s.player)
	next.winner = next.findWinner()
	return next
}

func (s *State) findWinner() int {
	for _, line := range lines {
		a := s.board[line[0]]
		if a != empty && a == s.board[line[1]] && a == s.board[line[2]] {
			return int(a)
		}
	}
	return 0
}

func (s *State) full() bool {
	for _, cell := range s.board {
		if cell == empty {
			return false
		}
	}
	return true
}

func (s *State) IsTerminal() bool {
	return s.winner != 0 || s.full()
}

func (s *State) Winner() int {
	return s.winner
}

func (s *State) Utilities() []float64 {
	utilities := game.Drawn(2)
	if s.winner != 0 {
		utilities[s.winner] = game.Win
		utilities[3-s.winner] = game.Loss
	}
	return utilities
}

func (s *State) Hash() game.StateHash {
	var h uint64
	for _, cell := range s.board {
		h = h*3 + uint64(cell)
	}
	return game.StateHash(h<<1 | uint64(s.player-1))
}

func (s *State) History() []game.Move {
	return s.history
}

func (s *State) String() string {
	var b strings.Builder
	for i, cell := range s.board {
		switch cell {
		case cross:
			b.WriteByte('X')
		case naught:
			b.WriteByte('O')
		default:
			b.WriteByte('.')
		}
		if i%3 == 2 && i < 8 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
