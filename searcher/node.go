package searcher

import (
	"sync"
	"sync/atomic"

	"treesearch/game"
)

// Kind is the node variant used for every node of one search
type Kind int

const (
	Standard Kind = iota
	SolverStandard
	ScoreBounded
	Implicit
	ImplicitSolver
	OpenLoop
)

func (k Kind) String() string {
	switch k {
	case Standard:
		return "standard"
	case SolverStandard:
		return "solver"
	case ScoreBounded:
		return "score-bounds"
	case Implicit:
		return "implicit"
	case ImplicitSolver:
		return "implicit-solver"
	case OpenLoop:
		return "open-loop"
	default:
		return "unknown"
	}
}

func (k Kind) proves() bool {
	return k == SolverStandard || k == ImplicitSolver || k == ScoreBounded
}

func (k Kind) implicit() bool {
	return k == Implicit || k == ImplicitSolver
}

type Phase int

const (
	Unexpanded Phase = iota
	PartiallyExpanded
	FullyProven
)

// Node is a vertex of the search tree. The embedded mutex guards the move list,
// the children and the variant extensions; visit and score statistics are
// atomic so a parent can score its children while holding only its own lock.
// A goroutine never holds more than one node lock at a time.
type Node struct {
	sync.Mutex
	kind   Kind
	parent *Node
	move   game.Move // Move that led from parent to this node
	index  int       // Index of move among the parent's legal moves

	state    game.State // Nil for open-loop nodes
	player   int
	moves    []game.Move
	children []*Node               // Closed loop: by legal move index
	outcomes map[game.MoveID]*Node // Open loop: by move identity
	expanded atomic.Int32

	visits  atomic.Int64
	virtual atomic.Int64
	scores  []atomicFloat // Per player, index 0 unused
	prior   []float64

	proof     atomic.Pointer[[]float64] // Exact utilities once proven
	estimates *estimates
	bounds    *bounds
	amaf      *ActionTable
}

func (n *Node) Kind() Kind {
	return n.kind
}

func (n *Node) Parent() *Node {
	return n.parent
}

// Move returns the move that led to this node, nil at the root
func (n *Node) Move() game.Move {
	return n.move
}

// Index returns the index of Move among the parent's legal moves
func (n *Node) Index() int {
	return n.index
}

// Player returns the player to act at this node. Open-loop nodes report the
// player seen on the latest visit.
func (n *Node) Player() int {
	return n.player
}

// NumMoves, Moves and Child read structure guarded by the node lock. Callers
// hold the lock or call them while no search is running.
func (n *Node) NumMoves() int {
	return len(n.moves)
}

func (n *Node) Moves() []game.Move {
	moves := make([]game.Move, len(n.moves))
	copy(moves, n.moves)
	return moves
}

// Child returns the child reached by the i-th legal move, or nil if that move has
// not been expanded yet.
func (n *Node) Child(i int) *Node {
	if n.kind == OpenLoop {
		return n.outcomes[n.moves[i].ID()]
	}
	return n.children[i]
}

func (n *Node) setChild(i int, child *Node) {
	if n.kind == OpenLoop {
		n.outcomes[n.moves[i].ID()] = child
	} else {
		n.children[i] = child
	}
	n.expanded.Add(1)
}

// childByID returns the child reached by the move with the given identity
func (n *Node) childByID(id game.MoveID) *Node {
	if n.kind == OpenLoop {
		return n.outcomes[id]
	}
	for i, move := range n.moves {
		if move.ID() == id {
			return n.children[i]
		}
	}
	return nil
}

func (n *Node) Phase() Phase {
	if n.Proven() {
		return FullyProven
	}
	if n.expanded.Load() == 0 {
		return Unexpanded
	}
	return PartiallyExpanded
}

func (n *Node) Visits() int {
	return int(n.visits.Load())
}

func (n *Node) VirtualVisits() int {
	return int(n.virtual.Load())
}

// totalVisits counts completed and in-flight visits
func (n *Node) totalVisits() float64 {
	return float64(n.visits.Load() + n.virtual.Load())
}

// Score returns the accumulated utility of player
func (n *Node) Score(player int) float64 {
	return n.scores[player].Load()
}

// MeanScore returns the average utility of player over completed visits
func (n *Node) MeanScore(player int) float64 {
	visits := n.visits.Load()
	if visits == 0 {
		return 0
	}
	return n.scores[player].Load() / float64(visits)
}

// exploit returns the mean utility of player counting in-flight visits as
// draws, and the heuristic prior as PriorWeight extra visits.
func (n *Node) exploit(player int) float64 {
	visits := n.totalVisits()
	score := n.scores[player].Load()
	if n.prior != nil {
		visits += PriorWeight
		score += PriorWeight * n.prior[player]
	}
	if visits == 0 {
		return 0
	}
	return score / visits
}

func (n *Node) addVirtual() {
	n.virtual.Add(1)
}

func (n *Node) removeVirtual() {
	n.virtual.Add(-1)
}

// update records a completed visit and settles its virtual visit
func (n *Node) update(utilities []float64) {
	for p := 1; p < len(n.scores) && p < len(utilities); p++ {
		n.scores[p].Add(utilities[p])
	}
	n.visits.Add(1)
	n.removeVirtual()
}

// Proof returns the exact utilities of the node once proven, nil otherwise
func (n *Node) Proof() []float64 {
	if p := n.proof.Load(); p != nil {
		return *p
	}
	return nil
}

func (n *Node) Proven() bool {
	return n.proof.Load() != nil
}

// ProvenWin reports whether the node is proven to end in a win for player
func (n *Node) ProvenWin(player int) bool {
	proof := n.Proof()
	return proof != nil && proof[player] >= game.Win
}

// ProvenLoss reports whether the node is proven to end in a loss for player
func (n *Node) ProvenLoss(player int) bool {
	proof := n.Proof()
	return proof != nil && proof[player] <= game.Loss
}

// prove marks the node with exact utilities. A proven node never changes.
func (n *Node) prove(utilities []float64) bool {
	proof := make([]float64, len(utilities))
	copy(proof, utilities)
	return n.proof.CompareAndSwap(nil, &proof)
}

// AMAF returns the all-moves-as-first statistics of the node, nil when the
// search does not collect them.
func (n *Node) AMAF() *ActionTable {
	return n.amaf
}

// decayAMAF decays the all-moves-as-first statistics of the subtree
func (n *Node) decayAMAF(factor float64) {
	if n.amaf != nil {
		n.amaf.Decay(factor)
	}
	for _, child := range n.allChildren() {
		child.decayAMAF(factor)
	}
}

func (n *Node) allChildren() []*Node {
	n.Lock()
	defer n.Unlock()

	children := make([]*Node, 0, n.expanded.Load())
	if n.kind == OpenLoop {
		for _, child := range n.outcomes {
			children = append(children, child)
		}
		return children
	}
	for _, child := range n.children {
		if child != nil {
			children = append(children, child)
		}
	}
	return children
}
