package searcher

import (
	"math"

	"treesearch/game"
)

// estimates hold the implicit minimax values of a node's moves from the
// perspective of the player to act. values start at the evaluator's one-ply
// estimates and are replaced by the children's backed-up values as they are
// visited. They are guarded by the node lock; best is read by the parent.
type estimates struct {
	initial []float64
	values  []float64
	best    atomicFloat
}

func (e *estimates) refresh() {
	if len(e.values) == 0 {
		return
	}
	best := math.Inf(-1)
	for _, v := range e.values {
		best = math.Max(best, v)
	}
	e.best.Store(best)
}

// estimate evaluates every successor of state, batching the evaluations when
// the engine has a batch evaluator.
func (s *search) estimate(state game.State, moves []game.Move) *estimates {
	e := &estimates{
		initial: make([]float64, len(moves)),
		values:  make([]float64, len(moves)),
	}
	mover := state.Player()
	if state.IsTerminal() {
		e.best.Store(state.Utilities()[mover])
		return e
	}
	if len(moves) == 0 {
		e.best.Store(s.evaluateAll([]game.State{state})[0])
		return e
	}

	var pending []game.State
	var indices []int
	for i, move := range moves {
		next := state.Play(move)
		if next.IsTerminal() {
			e.initial[i] = next.Utilities()[mover]
			continue
		}
		pending = append(pending, next)
		indices = append(indices, i)
	}
	for k, value := range s.evaluateAll(pending) {
		if pending[k].Player() != mover {
			value = -value
		}
		e.initial[indices[k]] = value
	}
	copy(e.values, e.initial)
	e.refresh()
	return e
}

func (s *search) evaluateAll(states []game.State) []float64 {
	if len(states) == 0 {
		return nil
	}
	if s.m.batch != nil {
		return s.m.batch(states)
	}
	values := make([]float64, len(states))
	if s.m.evaluate == nil {
		return values
	}
	for i, state := range states {
		values[i] = s.m.evaluate(state)
	}
	return values
}

// valueFor returns the backed-up value of n from the perspective of player
func (n *Node) valueFor(player int) float64 {
	if proof := n.Proof(); proof != nil {
		return proof[player]
	}
	if n.estimates == nil {
		return n.exploit(player)
	}
	best := n.estimates.best.Load()
	if n.player == player {
		return best
	}
	return -best
}

// Estimate returns the implicit minimax value of the i-th legal move for the
// player to act, 0 when the node keeps no estimates.
func (n *Node) Estimate(i int) float64 {
	if n.estimates == nil {
		return 0
	}
	return n.estimates.values[i]
}

// InitialEstimate returns the evaluator's one-ply estimate of the i-th move
func (n *Node) InitialEstimate(i int) float64 {
	if n.estimates == nil {
		return 0
	}
	return n.estimates.initial[i]
}

// backValue stores the latest value of child in n, which the caller has locked
func (n *Node) backValue(child *Node) {
	if n.estimates == nil || child.index < 0 || child.index >= len(n.estimates.values) {
		return
	}
	n.estimates.values[child.index] = child.valueFor(n.player)
	n.estimates.refresh()
}

// Schedule moves a parameter linearly with the parent's visits until it
// reaches Bound. A zero Rate keeps the parameter fixed.
type Schedule struct {
	Rate  float64 // Change per parent visit
	Bound float64 // Floor when Rate < 0, ceiling when Rate > 0
}

func (s Schedule) At(base float64, visits int) float64 {
	if s.Rate == 0 {
		return base
	}
	value := base + s.Rate*float64(visits)
	if s.Rate < 0 {
		return math.Max(value, s.Bound)
	}
	return math.Min(value, s.Bound)
}

// ImplicitUCT scores a child as (1-α)·exploit + α·estimate + C·explore.
type ImplicitUCT struct {
	Alpha         float64 // Influence of the implicit minimax estimate
	C             float64 // Exploration constant
	AlphaSchedule Schedule
	CSchedule     Schedule
	// Softmax spreads exploration over children by a softmax of their estimates
	// with temperature 1/N instead of a flat constant
	Softmax bool
	// Jitter multiplies exploration by 1 + U[0, Jitter)
	Jitter float64
	// Below MASTThreshold parent visits, pick the move with the best global
	// statistics instead, uniformly at random with probability MASTEpsilon
	MASTThreshold int
	MASTEpsilon   float64
	Unvisited     float64
}

func NewImplicitUCT(alpha float64) ImplicitUCT {
	return ImplicitUCT{Alpha: alpha, C: ExplorationConstant}
}

func (u ImplicitUCT) UsesEstimates() bool {
	return true
}

func (u ImplicitUCT) Flags() Flags {
	if u.MASTThreshold > 0 {
		return GlobalActionStats
	}
	return 0
}

func (u ImplicitUCT) Select(w *Worker, n *Node) int {
	parentVisits := n.Visits()
	if parentVisits < u.MASTThreshold {
		return selectMAST(w, n, u.MASTEpsilon)
	}

	alpha := u.AlphaSchedule.At(u.Alpha, parentVisits)
	c := u.CSchedule.At(u.C, parentVisits)
	parentLog := math.Log(math.Max(1, float64(parentVisits)))
	mover := n.player

	var weights []float64
	if u.Softmax && n.estimates != nil {
		weights = softmax(n.estimates.values, 1/math.Max(1, float64(parentVisits)))
	}

	return argmax(w, n, func(i int, child *Node) float64 {
		exploit, explore := u.Unvisited, math.Sqrt(parentLog)
		if child != nil {
			if visits := child.totalVisits(); visits > 0 {
				exploit = child.exploit(mover)
				explore = math.Sqrt(parentLog / visits)
			}
		}
		if weights != nil {
			explore *= weights[i] * float64(len(weights))
		}
		if u.Jitter > 0 {
			explore *= 1 + w.rand.Float64()*u.Jitter
		}
		return (1-alpha)*exploit + alpha*n.Estimate(i) + c*explore
	})
}

func softmax(values []float64, temperature float64) []float64 {
	weights := make([]float64, len(values))
	if len(values) == 0 {
		return weights
	}
	highest := math.Inf(-1)
	for _, v := range values {
		highest = math.Max(highest, v)
	}
	sum := 0.0
	for i, v := range values {
		weights[i] = math.Exp((v - highest) / temperature)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// selectMAST picks the move with the best global mean for the player to act,
// or a uniformly random move with probability epsilon.
func selectMAST(w *Worker, n *Node, epsilon float64) int {
	if epsilon > 0 && w.rand.Float64() < epsilon {
		return w.rand.Intn(len(n.moves))
	}
	table := w.m.actions
	return pick(w, len(n.moves), func(i int) float64 {
		return table.Mean(keyOf(n.player, n.moves[i]), 0)
	})
}
