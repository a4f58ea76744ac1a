package searcher

import (
	"context"
	"sync/atomic"
	"time"

	"treesearch/game"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// search is the state shared by the workers of one SelectAction call
type search struct {
	m        *MCTS
	ctx      context.Context
	root     *Node
	state    game.State // Position at the root
	kind     Kind
	flags    Flags
	deadline time.Time // Zero for no deadline
	cap      int64     // Iteration cap, NoLimit for none
	depth    int       // Playout depth limit, NoLimit for none

	claimed   atomic.Int64
	completed atomic.Int64
	busy      atomic.Int32
	halt      atomic.Bool
}

// stopped reports whether the search was told to stop or its deadline passed
func (s *search) stopped() bool {
	if s.halt.Load() || s.interrupted() {
		return true
	}
	return !s.deadline.IsZero() && time.Now().After(s.deadline)
}

func (s *search) interrupted() bool {
	return s.m.interrupt.Load() || s.ctx.Err() != nil
}

// proceed claims the next iteration, unless the search is over
func (s *search) proceed() bool {
	if s.stopped() || s.root.Proven() {
		return false
	}
	return s.cap < 0 || s.claimed.Add(1) <= s.cap
}

// Worker is the context of one search goroutine. Strategies receive it to draw
// random numbers and reach the engine.
type Worker struct {
	id    int
	m     *MCTS
	s     *search
	rand  *rand.Rand
	depth int

	path      []*Node // Nodes holding a virtual visit of this worker
	trial     Trial
	reference *Node // GRAVE reference node of the current descent
}

func (s *search) newWorker(id int, seed uint64) *Worker {
	return &Worker{
		id:    id,
		m:     s.m,
		s:     s,
		rand:  rand.New(rand.NewSource(seed)),
		depth: s.depth,
	}
}

func (w *Worker) Rand() *rand.Rand {
	return w.rand
}

func (w *Worker) Engine() *MCTS {
	return w.m
}

// Stopped reports whether long-running strategies should give up
func (w *Worker) Stopped() bool {
	return w.s.stopped()
}

// MaxDepth returns the playout depth limit, NoLimit for none
func (w *Worker) MaxDepth() int {
	return w.depth
}

func (w *Worker) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("search worker %d panicked: %v", w.id, r)
			log.Error().Err(err).
				Str("engine", w.m.name).
				Uint64("position", uint64(w.s.state.Hash())).
				Msg("stopping search worker")
		}
		w.clean()
		w.s.busy.Add(-1)
	}()

	for w.s.proceed() {
		w.iterate()
		w.clean()
		w.s.completed.Add(1)
		w.m.metrics.AddIteration()
	}
	return nil
}

// clean settles the virtual visits of an unfinished iteration and resets the
// per-iteration context
func (w *Worker) clean() {
	for _, node := range w.path {
		node.removeVirtual()
	}
	w.path = w.path[:0]
	w.trial.reset()
	w.reference = nil
}

func (w *Worker) visit(n *Node) {
	n.addVirtual()
	w.path = append(w.path, n)
}

func (w *Worker) iterate() {
	node, state := w.selectLeaf()

	var utilities []float64
	if proof := node.Proof(); proof != nil {
		utilities = provenUtilities(proof)
		w.m.metrics.AddProven()
	} else {
		end := state
		if !state.IsTerminal() && w.m.playout != nil {
			end = w.m.playout.Playout(w, state, &w.trial)
		}
		if end.IsTerminal() {
			w.m.metrics.AddFullPlayout()
		}
		utilities = w.m.backprop.Utilities(w, node, end, w.trial.PlayoutMoves())
	}
	w.backup(utilities)
}

// selectLeaf descends from the root, holding one node lock at a time, until it
// expands a new node, reaches a terminal position or a proven node.
func (w *Worker) selectLeaf() (*Node, game.State) {
	node, state := w.s.root, w.s.state
	w.visit(node)
	for {
		node.Lock()
		if node.kind == OpenLoop {
			node.observe(state)
		}
		if node.Proven() || state.IsTerminal() || len(node.moves) == 0 {
			node.Unlock()
			w.trial.endSelection()
			return node, state
		}

		i := w.m.selection.Select(w, node)
		mover := node.player
		move := node.moves[i]
		child, next, expanded := w.s.descend(node, state, i)
		node.Unlock()

		w.trial.add(mover, move)
		w.visit(child)
		node, state = child, next
		if expanded {
			w.trial.endSelection()
			return node, state
		}
	}
}

// backup settles the iteration on every node of the path, leaf first, and
// propagates implicit estimates, proofs and bounds toward the root.
func (w *Worker) backup(utilities []float64) {
	amaf := w.s.flags.has(AMAFStats)
	path := w.path
	for d := len(path) - 1; d >= 0; d-- {
		node := path[d]
		node.Lock()
		node.update(utilities)
		if amaf && node.amaf != nil && d < len(w.trial.Actions) {
			for _, action := range w.trial.Actions[d:] {
				node.amaf.Add(keyOf(action.Player, action.Move), utilities[action.Player])
			}
		}
		if d+1 < len(path) {
			child := path[d+1]
			node.backValue(child)
			if node.bounds != nil {
				node.tighten()
			} else if w.s.kind.proves() {
				node.resolve()
			}
		}
		node.Unlock()
		w.path = path[:d] // Settled nodes no longer carry a virtual visit
	}

	if w.s.flags.has(GlobalActionStats) {
		for _, action := range w.trial.Actions {
			w.m.actions.Add(keyOf(action.Player, action.Move), utilities[action.Player])
		}
	}
}
